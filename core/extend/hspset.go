package extend

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"

	"github.com/rdleal/intervalst/interval"
	"github.com/zeebo/wyhash"

	"seedalign-core/alignment"
)

// DiagonalBucket is the diagonal width grouped in one interval tree.
const DiagonalBucket = 16

type pairSet struct {
	q, s  uint32
	trees map[int]*interval.MultiValueSearchTree[alignment.HSP, int]
	n     int
}

// HSPSet records ungapped segments per (query, subject) couple and answers
// whether an offset pair lies on or near one. It is owned by one worker.
type HSPSet struct {
	seed  uint64
	pairs map[uint64][]*pairSet
	n     int
}

func NewHSPSet() *HSPSet {
	return &HSPSet{pairs: make(map[uint64][]*pairSet)}
}

func (h *HSPSet) key(q, s uint32) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[:4], q)
	binary.LittleEndian.PutUint32(b[4:], s)
	return wyhash.Hash(b[:], h.seed)
}

func (h *HSPSet) lookup(q, s uint32, create bool) *pairSet {
	k := h.key(q, s)
	for _, p := range h.pairs[k] {
		if p.q == q && p.s == s {
			return p
		}
	}
	if !create {
		return nil
	}
	p := &pairSet{q: q, s: s, trees: make(map[int]*interval.MultiValueSearchTree[alignment.HSP, int])}
	h.pairs[k] = append(h.pairs[k], p)
	return p
}

func bucketOf(diag int) int {
	if diag < 0 {
		return (diag - DiagonalBucket + 1) / DiagonalBucket
	}
	return diag / DiagonalBucket
}

// Add records hsp for the couple. An HSP already recorded with the same
// ranges is kept and Add reports false. HSPs sharing a query range on
// different diagonals of one bucket are all kept.
func (h *HSPSet) Add(q, s uint32, hsp alignment.HSP) bool {
	if hsp.Empty() {
		return false
	}
	p := h.lookup(q, s, true)
	b := bucketOf(hsp.Diagonal())
	t := p.trees[b]
	if t == nil {
		t = interval.NewMultiValueSearchTreeWithOptions[alignment.HSP](cmp.Compare[int], interval.TreeWithIntervalPoint())
		p.trees[b] = t
	}
	if prev, ok := t.AllIntersections(hsp.Query.Begin, hsp.Query.End-1); ok {
		for _, o := range prev {
			if o.Query == hsp.Query && o.Subject == hsp.Subject {
				return false
			}
		}
	}
	if err := t.Insert(hsp.Query.Begin, hsp.Query.End-1, hsp); err != nil {
		return false
	}
	p.n++
	h.n++
	return true
}

// DoesExist reports whether a recorded HSP whose diagonal is within band of
// sOff-qOff covers qOff, widened by band.
func (h *HSPSet) DoesExist(q, s uint32, qOff, sOff, band int) bool {
	p := h.lookup(q, s, false)
	if p == nil {
		return false
	}
	diag := sOff - qOff
	for b := bucketOf(diag - band); b <= bucketOf(diag+band); b++ {
		t := p.trees[b]
		if t == nil {
			continue
		}
		found, ok := t.AllIntersections(qOff-band, qOff+band)
		if !ok {
			continue
		}
		for _, o := range found {
			if d := o.Diagonal() - diag; d >= -band && d <= band {
				return true
			}
		}
	}
	return false
}

// Len is the number of recorded HSPs.
func (h *HSPSet) Len() int { return h.n }

// Segments returns the HSPs of a couple ordered by query then subject start.
func (h *HSPSet) Segments(q, s uint32) []alignment.HSP {
	p := h.lookup(q, s, false)
	if p == nil {
		return nil
	}
	var out []alignment.HSP
	for _, t := range p.trees {
		if all, ok := t.AllIntersections(math.MinInt, math.MaxInt); ok {
			out = append(out, all...)
		}
	}
	slices.SortFunc(out, func(a, b alignment.HSP) int {
		if c := cmp.Compare(a.Query.Begin, b.Query.Begin); c != 0 {
			return c
		}
		return cmp.Compare(a.Subject.Begin, b.Subject.Begin)
	})
	return out
}
