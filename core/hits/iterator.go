// Package hits walks the seed codes shared by a subject and a query index
// and produces the occurrence pairs that feed extension.
package hits

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"seedalign-core/alignment"
	"seedalign-core/index"
	"seedalign-core/seed"
)

// BatchSize bounds the number of pairs handed to the callback at once.
const BatchSize = 4096

var ErrModelMismatch = errors.New("indexes use different seed models")

// Pair addresses one subject occurrence and one query occurrence of a Hit.
// Segment is written by extension stages.
type Pair struct {
	S, Q    uint32
	Segment alignment.HSP
}

// Hit is a batch of pairs sharing Code. Subject and Query are the full
// occurrence lists of the code; Pairs index into them.
type Hit struct {
	Code    seed.Code
	Subject []index.Occurrence
	Query   []index.Occurrence
	Pairs   []Pair
}

// Iterator produces the pairs of the codes in [lo, hi).
type Iterator struct {
	subject *index.Index
	query   *index.Index
	lo, hi  int
}

func New(subject, query *index.Index) (*Iterator, error) {
	if !subject.Model().Equal(query.Model()) {
		return nil, fmt.Errorf("%w: subject %s, query %s", ErrModelMismatch, subject.Model(), query.Model())
	}
	return &Iterator{subject: subject, query: query, lo: 0, hi: subject.Model().CodeCount()}, nil
}

func (it *Iterator) Subject() *index.Index { return it.subject }
func (it *Iterator) Query() *index.Index { return it.query }

// Range is the [lo, hi) code range covered by it.
func (it *Iterator) Range() (lo, hi int) { return it.lo, it.hi }

func (it *Iterator) weight(c seed.Code) uint64 {
	return uint64(it.subject.Count(c)) * uint64(it.query.Count(c))
}

// PairCount is the number of pairs Each will produce.
func (it *Iterator) PairCount() uint64 {
	var n uint64
	for c := it.lo; c < it.hi; c++ {
		n += it.weight(seed.Code(c))
	}
	return n
}

// Each calls fn with the pairs of every code present on both sides, codes
// ascending, then subject order, then query order. The Hit and its Pairs
// slice are reused between calls. The context is checked between codes.
func (it *Iterator) Each(ctx context.Context, fn func(h *Hit) error) error {
	h := &Hit{Pairs: make([]Pair, 0, BatchSize)}
	for c := it.lo; c < it.hi; c++ {
		code := seed.Code(c)
		s := it.subject.Entry(code)
		if len(s) == 0 {
			continue
		}
		q := it.query.Entry(code)
		if len(q) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		h.Code, h.Subject, h.Query = code, s, q
		h.Pairs = h.Pairs[:0]
		for i := range s {
			for j := range q {
				h.Pairs = append(h.Pairs, Pair{S: uint32(i), Q: uint32(j)})
				if len(h.Pairs) == BatchSize {
					if err := fn(h); err != nil {
						return err
					}
					h.Pairs = h.Pairs[:0]
				}
			}
		}
		if len(h.Pairs) > 0 {
			if err := fn(h); err != nil {
				return err
			}
		}
	}
	return nil
}

func (it *Iterator) sub(lo, hi int) *Iterator {
	return &Iterator{subject: it.subject, query: it.query, lo: lo, hi: hi}
}

// Split cuts the code range into at most n contiguous sub-iterators of
// balanced pair counts. Codes heavier than the running average are found
// from a descending sort of the weights and get a range of their own; the
// remaining codes are packed greedily against the average of what is left.
// The union of the parts' pairs is the pairs of it.
func (it *Iterator) Split(n int) []*Iterator {
	size := it.hi - it.lo
	if n <= 1 || size <= 1 {
		return []*Iterator{it.sub(it.lo, it.hi)}
	}
	w := make([]uint64, size)
	var total uint64
	for i := range w {
		w[i] = it.weight(seed.Code(it.lo + i))
		total += w[i]
	}
	if total == 0 {
		return []*Iterator{it.sub(it.lo, it.hi)}
	}

	order := make([]int, 0, size)
	for i, x := range w {
		if x > 0 {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case w[a] > w[b]:
			return -1
		case w[a] < w[b]:
			return 1
		}
		return 0
	})
	outlier := make(map[int]bool)
	rest, parts := total, uint64(n)
	for _, i := range order {
		if parts <= 1 || w[i]*parts <= rest {
			break
		}
		outlier[i] = true
		rest -= w[i]
		parts--
	}
	target := rest / parts
	if target == 0 {
		target = 1
	}

	var ranges [][2]int
	var weights []uint64
	lo := 0
	var acc uint64
	cut := func(hi int) {
		if hi > lo {
			ranges = append(ranges, [2]int{lo, hi})
			weights = append(weights, acc)
		}
		lo, acc = hi, 0
	}
	for i, x := range w {
		if outlier[i] {
			cut(i)
			acc = x
			cut(i + 1)
			continue
		}
		acc += x
		if acc >= target {
			cut(i + 1)
		}
	}
	cut(size)
	if len(ranges) > 0 && weights[len(weights)-1] == 0 && len(ranges) > 1 {
		// trailing codes without pairs join the previous range
		ranges[len(ranges)-2][1] = ranges[len(ranges)-1][1]
		ranges = ranges[:len(ranges)-1]
		weights = weights[:len(weights)-1]
	}

	// outliers can leave more ranges than asked for; fold the lightest
	// adjacent couples until the count fits
	for len(ranges) > n {
		best := 0
		for i := 1; i+1 < len(ranges); i++ {
			if weights[i]+weights[i+1] < weights[best]+weights[best+1] {
				best = i
			}
		}
		ranges[best][1] = ranges[best+1][1]
		weights[best] += weights[best+1]
		ranges = slices.Delete(ranges, best+1, best+2)
		weights = slices.Delete(weights, best+1, best+2)
	}

	out := make([]*Iterator, len(ranges))
	for i, r := range ranges {
		out[i] = it.sub(it.lo+r[0], it.lo+r[1])
	}
	return out
}
