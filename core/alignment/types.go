// Package alignment holds the result model of a search and the container
// that deduplicates, bounds and orders it.
package alignment

import (
	"cmp"
	"fmt"

	"seedalign-core/seq"
)

// Range is a half-open [Begin, End) interval of sequence offsets.
type Range struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

func (r Range) Len() int {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// Contains reports whether o lies entirely inside r.
func (r Range) Contains(o Range) bool { return r.Begin <= o.Begin && o.End <= r.End }

// Includes reports whether offset p lies inside r.
func (r Range) Includes(p int) bool { return r.Begin <= p && p < r.End }

// Widen grows r by band on both sides.
func (r Range) Widen(band int) Range { return Range{Begin: r.Begin - band, End: r.End + band} }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Begin, r.End) }

// HSP is an ungapped segment pair: both ranges have the same length, or the
// HSP is empty when extension failed.
type HSP struct {
	Query   Range
	Subject Range
	Score   int
}

func (h HSP) Empty() bool { return h.Query.Len() == 0 }

// Diagonal is the subject-minus-query offset shared by every column of h.
func (h HSP) Diagonal() int { return h.Subject.Begin - h.Query.Begin }

// Alignment is one gapped local alignment between a query and a subject
// sequence.
type Alignment struct {
	Query   seq.Ref
	Subject seq.Ref

	QueryRange   Range
	SubjectRange Range

	// gap letters inserted on each side and the number of gap runs
	QueryGaps   int
	SubjectGaps int
	GapOpens    int

	// +1/-1 strand (or translation frame) of each side
	QueryFrame   int8
	SubjectFrame int8

	// Length is the extent of the longer side; Columns counts aligned
	// columns including gaps.
	Length  int
	Columns int

	Score      int
	BitScore   float64
	EValue     float64
	Identity   int
	Positives  int
	Mismatches int
}

// Normalize restores the Length invariant after ranges were edited.
func (a *Alignment) Normalize() {
	a.Length = max(a.QueryRange.Len(), a.SubjectRange.Len())
	if a.QueryFrame == 0 {
		a.QueryFrame = 1
	}
	if a.SubjectFrame == 0 {
		a.SubjectFrame = 1
	}
}

// Contains reports whether a's range pair, widened by band, holds b's.
func (a *Alignment) Contains(b *Alignment, band int) bool {
	return a.QueryFrame == b.QueryFrame && a.SubjectFrame == b.SubjectFrame &&
		a.QueryRange.Widen(band).Contains(b.QueryRange) &&
		a.SubjectRange.Widen(band).Contains(b.SubjectRange)
}

// PercentIdentity is Identity over Columns.
func (a *Alignment) PercentIdentity() float64 {
	if a.Columns == 0 {
		return 0
	}
	return 100 * float64(a.Identity) / float64(a.Columns)
}

// Compare orders alignments best first: bit-score, raw score, then
// coordinates.
func Compare(a, b *Alignment) int {
	if c := cmp.Compare(b.BitScore, a.BitScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.QueryRange.Begin, b.QueryRange.Begin); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SubjectRange.Begin, b.SubjectRange.Begin); c != 0 {
		return c
	}
	if c := cmp.Compare(a.QueryRange.End, b.QueryRange.End); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SubjectRange.End, b.SubjectRange.End); c != 0 {
		return c
	}
	return cmp.Compare(b.QueryFrame, a.QueryFrame)
}
