package banded

// traceback codes, one byte per band cell
const (
	fromDiag uint8 = iota
	fromE
	fromF
	srcMask uint8 = 3
	eOpened uint8 = 1 << 2
	fOpened uint8 = 1 << 3
)

// AlignRolling keeps two rows of H and F and one traceback code per cell,
// so memory grows by one byte per cell instead of three scores. It returns
// exactly what AlignDense returns. s and q must be non-empty.
func (a *Aligner) AlignRolling(s, q []byte) Result {
	m, n := len(s), len(q)
	w := a.halfWidth(m, n)
	width := 2*w + 1
	cells := (m + 1) * width
	if cap(a.codes) < cells {
		a.codes = make([]uint8, cells)
	}
	codes := a.codes[:cells]
	a.prevH, a.prevF = grow(a.prevH, width), grow(a.prevF, width)
	a.curH, a.curF = grow(a.curH, width), grow(a.curF, width)
	prevH, prevF, curH, curF := a.prevH, a.prevF, a.curH, a.curF
	for d := 0; d < width; d++ {
		prevH[d], prevF[d] = negInf, negInf
	}
	o, x := int32(a.opts.GapOpen), int32(a.opts.GapExtend)
	mx := a.m

	var best int32
	bi, bj := 0, 0
	for i := 0; i <= m; i++ {
		lo, hi := max(0, i-w), min(n, i+w)
		for d := 0; d < width; d++ {
			curH[d], curF[d] = negInf, negInf
		}
		var row []int8
		if i > 0 {
			row = mx.Row(s[i-1])
		}
		eRun := int32(negInf)
		for j := lo; j <= hi; j++ {
			d := j - i + w
			if i == 0 && j == 0 {
				curH[d] = 0
				continue
			}
			var code uint8
			ev := int32(negInf)
			if j > lo {
				open, ext := curH[d-1]-o-x, eRun-x
				if open >= ext {
					ev, code = clamp(open), code|eOpened
				} else {
					ev = clamp(ext)
				}
			}
			fv := int32(negInf)
			if i > 0 && j <= i-1+w {
				open, ext := prevH[d+1]-o-x, prevF[d+1]-x
				if open >= ext {
					fv, code = clamp(open), code|fOpened
				} else {
					fv = clamp(ext)
				}
			}
			var hv int32
			if i > 0 && j > 0 {
				hv = prevH[d] + int32(row[mx.Code(q[j-1])])
				code |= fromDiag
				if ev > hv {
					hv, code = ev, code&^srcMask|fromE
				}
			} else {
				hv, code = ev, code|fromE
			}
			if fv > hv {
				hv, code = fv, code&^srcMask|fromF
			}
			hv = clamp(hv)
			curH[d], curF[d], eRun = hv, fv, ev
			codes[i*width+d] = code
			if hv > best {
				best, bi, bj = hv, i, j
			}
		}
		prevH, curH = curH, prevH
		prevF, curF = curF, prevF
	}

	t := tracer{s: s, q: q, m: mx, ops: a.ops[:0]}
	t.res.Score = int(best)
	t.res.SubjectEnd, t.res.QueryEnd = bi, bj
	state := srcMask // in H
	i, j := bi, bj
	for i > 0 || j > 0 {
		code := codes[i*width+j-i+w]
		if state == srcMask {
			state = code & srcMask
			if state == fromDiag {
				t.push(Match, i, j)
				i, j = i-1, j-1
				state = srcMask
				continue
			}
		}
		switch state {
		case fromE:
			t.push(Insert, i, j)
			if code&eOpened != 0 {
				state = srcMask
			}
			j--
		case fromF:
			t.push(Delete, i, j)
			if code&fOpened != 0 {
				state = srcMask
			}
			i--
		}
	}
	res := t.finish()
	a.ops = t.ops
	return res
}
