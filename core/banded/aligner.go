// Package banded computes gapped alignments restricted to a diagonal band
// with affine gap costs, and the traceback of the best one.
//
// The alignment is anchored at the start of both ranges and ends at the
// best scoring cell, so callers extend one way at a time: forward from an
// anchor for the right half, and on reversed letters for the left half.
package banded

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"seedalign-core/alignment"
	"seedalign-core/matrix"
)

// ErrTooLarge is returned for regions whose band holds more than
// Options.MaxCells cells. The pair is skipped, the search goes on.
var ErrTooLarge = errors.New("alignment region too large")

const negInf = -1 << 28

func clamp(v int32) int32 {
	if v < negInf {
		return negInf
	}
	return v
}

// Options tunes an Aligner. Zero fields take the defaults below.
type Options struct {
	GapOpen   int
	GapExtend int
	// Margin is added to the length difference of the two ranges to get
	// the band half-width.
	Margin int
	// DenseLimit is the largest cell count aligned with full band
	// matrices; larger regions use the rolling rows.
	DenseLimit int
	// MaxCells rejects larger regions with ErrTooLarge.
	MaxCells int
}

const (
	DefaultMargin     = 16
	DefaultDenseLimit = 1 << 18
	DefaultMaxCells   = 1 << 26
)

func (o Options) withDefaults() Options {
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	if o.DenseLimit <= 0 {
		o.DenseLimit = DefaultDenseLimit
	}
	if o.MaxCells <= 0 {
		o.MaxCells = DefaultMaxCells
	}
	return o
}

// OpKind is the kind of a run of alignment columns.
type OpKind uint8

const (
	// Match pairs a subject letter with a query letter.
	Match OpKind = iota
	// Insert pairs a query letter with a gap in the subject.
	Insert
	// Delete pairs a subject letter with a gap in the query.
	Delete
)

func (k OpKind) String() string {
	switch k {
	case Insert:
		return "I"
	case Delete:
		return "D"
	}
	return "M"
}

type Op struct {
	Kind OpKind
	Len  int
}

// Result describes the best alignment of an Align call.
type Result struct {
	Ops        []Op
	Score      int
	Identity   int
	Positives  int
	Mismatches int
	// QueryGaps counts gap columns on the query side (Delete), SubjectGaps
	// on the subject side (Insert).
	QueryGaps   int
	SubjectGaps int
	GapOpens    int
	// Length is the number of columns.
	Length int
	// SubjectEnd and QueryEnd are the letters consumed on each side.
	SubjectEnd int
	QueryEnd   int
}

// SplitPositions returns the column where each run ends.
func (r *Result) SplitPositions() []int {
	out := make([]int, len(r.Ops))
	n := 0
	for i, op := range r.Ops {
		n += op.Len
		out[i] = n
	}
	return out
}

// Cigar renders the runs as 12M1I3M.
func (r *Result) Cigar() string {
	var b strings.Builder
	for _, op := range r.Ops {
		b.WriteString(strconv.Itoa(op.Len))
		b.WriteString(op.Kind.String())
	}
	return b.String()
}

// Aligner holds the scratch space of one worker. It is not safe for
// concurrent use.
type Aligner struct {
	m    *matrix.Matrix
	opts Options

	// dense band matrices
	h, e, f []int32
	// rolling rows and traceback codes
	prevH, prevF, curH, curF []int32
	codes                    []uint8

	ops []Op
}

func New(m *matrix.Matrix, opts Options) *Aligner {
	return &Aligner{m: m, opts: opts.withDefaults()}
}

func (a *Aligner) Options() Options { return a.opts }

func (a *Aligner) halfWidth(m, n int) int {
	d := m - n
	if d < 0 {
		d = -d
	}
	return d + a.opts.Margin
}

// Cells is the number of band cells of an m by n region.
func (a *Aligner) Cells(m, n int) int {
	return (m + 1) * (2*a.halfWidth(m, n) + 1)
}

// Align aligns subject[sr] with query[qr].
func (a *Aligner) Align(subject, query []byte, sr, qr alignment.Range) (Result, error) {
	if sr.Begin < 0 || sr.End > len(subject) || qr.Begin < 0 || qr.End > len(query) {
		return Result{}, fmt.Errorf("range %v/%v outside sequences of length %d/%d", sr, qr, len(subject), len(query))
	}
	s, q := subject[sr.Begin:max(sr.Begin, sr.End)], query[qr.Begin:max(qr.Begin, qr.End)]
	if len(s) == 0 || len(q) == 0 {
		return Result{}, nil
	}
	cells := a.Cells(len(s), len(q))
	if cells > a.opts.MaxCells {
		return Result{}, fmt.Errorf("%w: %d cells for %dx%d", ErrTooLarge, cells, len(s), len(q))
	}
	if cells <= a.opts.DenseLimit {
		return a.AlignDense(s, q), nil
	}
	return a.AlignRolling(s, q), nil
}

func grow(b []int32, n int) []int32 {
	if cap(b) < n {
		return make([]int32, n)
	}
	return b[:n]
}

// tracer accumulates the columns of a traceback, last column first.
type tracer struct {
	s, q []byte
	m    *matrix.Matrix
	res  Result
	ops  []Op
}

func (t *tracer) push(k OpKind, i, j int) {
	if n := len(t.ops); n > 0 && t.ops[n-1].Kind == k {
		t.ops[n-1].Len++
	} else {
		t.ops = append(t.ops, Op{Kind: k, Len: 1})
		if k != Match {
			t.res.GapOpens++
		}
	}
	t.res.Length++
	switch k {
	case Match:
		sc := t.m.Score(t.s[i-1], t.q[j-1])
		if t.s[i-1] == t.q[j-1] {
			t.res.Identity++
		} else {
			t.res.Mismatches++
		}
		if sc > 0 {
			t.res.Positives++
		}
	case Insert:
		t.res.SubjectGaps++
	case Delete:
		t.res.QueryGaps++
	}
}

func (t *tracer) finish() Result {
	for l, r := 0, len(t.ops)-1; l < r; l, r = l+1, r-1 {
		t.ops[l], t.ops[r] = t.ops[r], t.ops[l]
	}
	t.res.Ops = append([]Op(nil), t.ops...)
	return t.res
}
