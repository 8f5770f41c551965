// Package extend holds the stages that turn raw seed hits into scored
// candidate pairs: ungapped X-drop extension and the protein neighborhood
// prefilter.
package extend

import (
	"seedalign-core/hits"
)

// Stage keeps the pairs of h worth going on with. Survivors stay in h.Pairs
// in their original order with Segment filled in; the return value is their
// number.
type Stage interface {
	Filter(h *hits.Hit) int
}

// Chain runs stages in order and stops as soon as one leaves no pair.
type Chain []Stage

func (c Chain) Filter(h *hits.Hit) int {
	n := len(h.Pairs)
	for _, s := range c {
		if n = s.Filter(h); n == 0 {
			break
		}
	}
	return n
}

// Known reports whether an offset pair of a (query, subject) couple already
// falls inside a recorded result, widened by band. *alignment.Container and
// *HSPSet implement it.
type Known interface {
	DoesExist(q, s uint32, qOff, sOff, band int) bool
}

// KnownFunc adapts a function to Known.
type KnownFunc func(q, s uint32, qOff, sOff, band int) bool

func (f KnownFunc) DoesExist(q, s uint32, qOff, sOff, band int) bool { return f(q, s, qOff, sOff, band) }
