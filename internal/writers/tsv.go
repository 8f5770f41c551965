// internal/writers/tsv.go
package writers

import (
	"io"
	"strconv"

	"seedalign-core/alignment"
	"seedalign-core/seq"
	"seedalign/pkg/api"
)

// TSVHeader names the 12 BLAST tabular columns, in order.
// Keep this as the single source of truth for the tsv format.
const TSVHeader = "qseqid\tsseqid\tpident\tlength\tmismatch\tgapopen\tqstart\tqend\tsstart\tsend\tevalue\tbitscore"

func init() {
	Register("tsv", func(w io.Writer, opt Options) alignment.Visitor { return NewTSV(w, opt.Header) })
}

// TSV writes one BLAST tabular row per alignment.
type TSV struct {
	w      io.Writer
	header bool
	buf    []byte
}

func NewTSV(w io.Writer, header bool) *TSV { return &TSV{w: w, header: header} }

// writeHeader emits the header once, before the first row or on Finish
// when there are no rows.
func (t *TSV) writeHeader() error {
	if !t.header {
		return nil
	}
	t.header = false
	_, err := io.WriteString(t.w, TSVHeader+"\n")
	return err
}

func (t *TSV) VisitQuery(seq.Ref) error { return t.writeHeader() }

func (t *TSV) VisitSubject(seq.Ref) error { return nil }

func (t *TSV) VisitAlignments(list []alignment.Alignment) error {
	for i := range list {
		t.buf = appendRow(t.buf[:0], ToAPI(&list[i]))
		if _, err := t.w.Write(t.buf); err != nil {
			return err
		}
	}
	return nil
}

func (t *TSV) Finish() error { return t.writeHeader() }

func appendRow(b []byte, v api.AlignmentV1) []byte {
	b = append(b, v.QueryID...)
	b = append(b, '\t')
	b = append(b, v.SubjectID...)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, v.Identity, 'f', 3, 64)
	for _, n := range [...]int{v.Length, v.Mismatches, v.GapOpens, v.QueryStart, v.QueryEnd, v.SubjectStart, v.SubjectEnd} {
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(n), 10)
	}
	b = append(b, '\t')
	b = appendEValue(b, v.EValue)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, v.BitScore, 'f', 1, 64)
	return append(b, '\n')
}

// appendEValue prints e-values the way BLAST tables do: tiny values as
// 0.0, small ones in exponent form.
func appendEValue(b []byte, e float64) []byte {
	switch {
	case e < 1e-180:
		return append(b, "0.0"...)
	case e < 1e-3:
		return strconv.AppendFloat(b, e, 'e', 2, 64)
	case e < 1:
		return strconv.AppendFloat(b, e, 'f', 3, 64)
	}
	return strconv.AppendFloat(b, e, 'f', 1, 64)
}
