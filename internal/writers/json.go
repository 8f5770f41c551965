// internal/writers/json.go
package writers

import (
	"encoding/json"
	"io"

	"seedalign-core/alignment"
	"seedalign-core/seq"
	"seedalign/pkg/api"
)

func init() {
	Register("json", func(w io.Writer, _ Options) alignment.Visitor { return NewJSON(w) })
	Register("jsonl", func(w io.Writer, _ Options) alignment.Visitor { return NewJSONL(w) })
}

// JSON buffers every alignment and writes one indented array on Finish.
// An empty result is written as [].
type JSON struct {
	w    io.Writer
	list []api.AlignmentV1
}

func NewJSON(w io.Writer) *JSON { return &JSON{w: w, list: []api.AlignmentV1{}} }

func (j *JSON) VisitQuery(seq.Ref) error   { return nil }
func (j *JSON) VisitSubject(seq.Ref) error { return nil }

func (j *JSON) VisitAlignments(list []alignment.Alignment) error {
	for i := range list {
		j.list = append(j.list, ToAPI(&list[i]))
	}
	return nil
}

func (j *JSON) Finish() error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.list)
}

// JSONL streams each alignment as one JSON line (v1).
type JSONL struct {
	enc *json.Encoder
}

func NewJSONL(w io.Writer) *JSONL { return &JSONL{enc: json.NewEncoder(w)} }

func (j *JSONL) VisitQuery(seq.Ref) error   { return nil }
func (j *JSONL) VisitSubject(seq.Ref) error { return nil }

func (j *JSONL) VisitAlignments(list []alignment.Alignment) error {
	for i := range list {
		if err := j.enc.Encode(ToAPI(&list[i])); err != nil {
			return err
		}
	}
	return nil
}

func (j *JSONL) Finish() error { return nil }
