package banded

// AlignDense fills the whole band of H, E and F and retraces the best path
// by recomputing each step's choice from the stored scores. s and q must be
// non-empty.
func (a *Aligner) AlignDense(s, q []byte) Result {
	m, n := len(s), len(q)
	w := a.halfWidth(m, n)
	width := 2*w + 1
	cells := (m + 1) * width
	a.h, a.e, a.f = grow(a.h, cells), grow(a.e, cells), grow(a.f, cells)
	H, E, F := a.h, a.e, a.f
	for k := range H {
		H[k], E[k], F[k] = negInf, negInf, negInf
	}
	at := func(i, j int) int { return i*width + j - i + w }
	o, x := int32(a.opts.GapOpen), int32(a.opts.GapExtend)
	mx := a.m

	H[at(0, 0)] = 0
	var best int32
	bi, bj := 0, 0
	for i := 0; i <= m; i++ {
		lo, hi := max(0, i-w), min(n, i+w)
		var row []int8
		if i > 0 {
			row = mx.Row(s[i-1])
		}
		for j := lo; j <= hi; j++ {
			if i == 0 && j == 0 {
				continue
			}
			k := at(i, j)
			ev := int32(negInf)
			if j > lo {
				ev = clamp(max(H[k-1]-o-x, E[k-1]-x))
			}
			fv := int32(negInf)
			if i > 0 && j <= i-1+w {
				u := k - width + 1
				fv = clamp(max(H[u]-o-x, F[u]-x))
			}
			hv := max(ev, fv)
			if i > 0 && j > 0 {
				hv = max(hv, H[k-width]+int32(row[mx.Code(q[j-1])]))
			}
			H[k], E[k], F[k] = clamp(hv), ev, fv
			if H[k] > best {
				best, bi, bj = H[k], i, j
			}
		}
	}

	t := tracer{s: s, q: q, m: mx, ops: a.ops[:0]}
	t.res.Score = int(best)
	t.res.SubjectEnd, t.res.QueryEnd = bi, bj
	const (
		inH = iota
		inE
		inF
	)
	state := inH
	i, j := bi, bj
	for i > 0 || j > 0 {
		k := at(i, j)
		switch state {
		case inH:
			if i > 0 && j > 0 && H[k] == H[k-width]+int32(mx.Score(s[i-1], q[j-1])) {
				t.push(Match, i, j)
				i, j = i-1, j-1
				continue
			}
			if H[k] == E[k] {
				state = inE
			} else {
				state = inF
			}
		case inE:
			t.push(Insert, i, j)
			if E[k] == clamp(H[k-1]-o-x) {
				state = inH
			}
			j--
		case inF:
			t.push(Delete, i, j)
			if F[k] == clamp(H[k-width+1]-o-x) {
				state = inH
			}
			i--
		}
	}
	res := t.finish()
	a.ops = t.ops
	return res
}
