package index

import (
	"math/bits"

	"seedalign-core/seed"
)

// Mask is a set of seed codes accepted by Build. A nil *Mask accepts every
// code.
type Mask struct {
	words []uint64
	n     int
}

// NewMask returns an empty mask sized for model.
func NewMask(model *seed.Model) *Mask {
	n := model.CodeCount()
	return &Mask{words: make([]uint64, (n+63)/64), n: n}
}

// AddReverseComplements extends m so that a code and its reverse complement
// are accepted together. A subject index built with it serves both strands
// of a query scanned forward only. model must be a nucleotide model.
func (m *Mask) AddReverseComplements(model *seed.Model) {
	for i, w := range m.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			w &= w - 1
			m.Set(model.ReverseComplement(seed.Code(i<<6 + b)))
		}
	}
}

func (m *Mask) Set(c seed.Code) { m.words[c>>6] |= 1 << (c & 63) }

func (m *Mask) Has(c seed.Code) bool {
	if m == nil {
		return true
	}
	return m.words[c>>6]&(1<<(c&63)) != 0
}

// Count returns how many codes the mask accepts.
func (m *Mask) Count() int {
	if m == nil {
		return -1
	}
	n := 0
	for _, w := range m.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Len is the size of the code space the mask was built for.
func (m *Mask) Len() int { return m.n }
