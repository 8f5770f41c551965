// internal/writers/convert.go
package writers

import (
	"seedalign-core/alignment"
	"seedalign/pkg/api"
)

// ToAPI converts an alignment to the stable wire schema (v1).
//
// A query frame of -1 means the alignment was found on the reverse
// complement of the query. Its query range is mapped back to forward
// coordinates and the subject positions are swapped, so sstart > send.
func ToAPI(a *alignment.Alignment) api.AlignmentV1 {
	v := api.AlignmentV1{
		QueryID:       a.Query.ID,
		QueryLength:   a.Query.Length,
		SubjectID:     a.Subject.ID,
		SubjectLength: a.Subject.Length,
		Strand:        "plus",
		QueryStart:    a.QueryRange.Begin + 1,
		QueryEnd:      a.QueryRange.End,
		SubjectStart:  a.SubjectRange.Begin + 1,
		SubjectEnd:    a.SubjectRange.End,
		Length:        a.Columns,
		Identity:      a.PercentIdentity(),
		Mismatches:    a.Mismatches,
		GapOpens:      a.GapOpens,
		Gaps:          a.QueryGaps + a.SubjectGaps,
		Positives:     a.Positives,
		Score:         a.Score,
		BitScore:      a.BitScore,
		EValue:        a.EValue,
	}
	if v.Length == 0 {
		v.Length = a.Length
	}
	if a.QueryFrame < 0 {
		n := a.Query.Length
		v.Strand = "minus"
		v.QueryStart = n - a.QueryRange.End + 1
		v.QueryEnd = n - a.QueryRange.Begin
		v.SubjectStart, v.SubjectEnd = a.SubjectRange.End, a.SubjectRange.Begin+1
	}
	return v
}
