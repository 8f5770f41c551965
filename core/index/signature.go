package index

import (
	"math/bits"

	"seedalign-core/seed"
)

// MaxSignatureWidth is the number of 5-bit lanes that fit in 64 bits.
const MaxSignatureWidth = 12

const laneBits = 5

// signatures packs the letters around a seed at off into two words, nearest
// letter in the lowest lane. A lane holds letter code+1; 0 marks the
// sequence boundary or an ambiguous letter. diversity counts distinct
// letters over both sides.
func signatures(model *seed.Model, data []byte, off, width int) (right, left uint64, diversity uint8) {
	var seen uint32
	end := off + model.Span()
	for i := 0; i < width; i++ {
		if p := end + i; p < len(data) {
			if l, ok := model.Letter(data[p]); ok {
				right |= uint64(l+1) << (laneBits * i)
				seen |= 1 << l
			}
		}
		if p := off - 1 - i; p >= 0 {
			if l, ok := model.Letter(data[p]); ok {
				left |= uint64(l+1) << (laneBits * i)
				seen |= 1 << l
			}
		}
	}
	return right, left, uint8(bits.OnesCount32(seen))
}

// MatchingLanes counts lanes among the first width where a and b hold the
// same letter.
func MatchingLanes(a, b uint64, width int) int {
	n := 0
	for i := 0; i < width; i++ {
		la := (a >> (laneBits * i)) & 0x1f
		if la != 0 && la == (b>>(laneBits*i))&0x1f {
			n++
		}
	}
	return n
}
