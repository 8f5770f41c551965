package extend

import (
	"seedalign-core/alignment"
	"seedalign-core/hits"
	"seedalign-core/matrix"
	"seedalign-core/seed"
	"seedalign-core/seq"
	"seedalign-core/stats"
)

// XDropConfig tunes the ungapped stage.
type XDropConfig struct {
	Matrix *matrix.Matrix
	Model  *seed.Model
	// XDrop stops a side once the running score is XDrop below its best.
	XDrop int
	// MinScore is the lowest HSP score kept.
	MinScore int
	// Info, when set, raises MinScore to its cutoff for each query.
	Info stats.QueryInfo
	// AllSeeds disables the seed-minimality rejection.
	AllSeeds bool
}

// XDrop extends every pair along its diagonal without gaps.
type XDrop struct {
	cfg     XDropConfig
	subject seq.Database
	query   seq.Database

	// cutoff of the last query seen by Filter
	lastQuery int
	lastMin   int
}

func NewXDrop(cfg XDropConfig, subject, query seq.Database) *XDrop {
	return &XDrop{cfg: cfg, subject: subject, query: query, lastQuery: -1}
}

func (x *XDrop) Filter(h *hits.Hit) int {
	kept := h.Pairs[:0]
	for _, p := range h.Pairs {
		so, qo := h.Subject[p.S], h.Query[p.Q]
		s := x.subject.Sequence(int(so.Seq)).Data
		q := x.query.Sequence(int(qo.Seq))
		hsp, ok := x.extend(s, q.Data, int(so.Offset), int(qo.Offset), h.Code, x.minScore(q))
		if !ok {
			continue
		}
		p.Segment = hsp
		kept = append(kept, p)
	}
	h.Pairs = kept
	return len(kept)
}

// Extend grows the seed at sOff/qOff to the right and to the left. It fails
// when the score stays under MinScore, or when the extended region holds a
// seed shared on this diagonal that ranks before code: a smaller code, or
// the same code further left. Only one seed of an HSP then reports it.
func (x *XDrop) Extend(s, q []byte, sOff, qOff int, code seed.Code) (alignment.HSP, bool) {
	return x.extend(s, q, sOff, qOff, code, x.cfg.MinScore)
}

func (x *XDrop) minScore(q *seq.Sequence) int {
	if x.cfg.Info == nil {
		return x.cfg.MinScore
	}
	if int(q.Index) != x.lastQuery {
		cutoff, _ := x.cfg.Info.Cutoff(q)
		x.lastQuery, x.lastMin = int(q.Index), max(x.cfg.MinScore, cutoff)
	}
	return x.lastMin
}

func (x *XDrop) extend(s, q []byte, sOff, qOff int, code seed.Code, minScore int) (alignment.HSP, bool) {
	k := x.cfg.Model.Span()
	m := x.cfg.Matrix
	seedScore := 0
	for i := 0; i < k; i++ {
		seedScore += m.Score(s[sOff+i], q[qOff+i])
	}

	right, rLen := x.side(s, q, sOff+k, qOff+k, 1)
	left, lLen := x.side(s, q, sOff-1, qOff-1, -1)
	// both sides include the seed
	rightScore, leftScore := seedScore+right, seedScore+left
	score := leftScore + rightScore - seedScore

	hsp := alignment.HSP{
		Query:   alignment.Range{Begin: qOff - lLen, End: qOff + k + rLen},
		Subject: alignment.Range{Begin: sOff - lLen, End: sOff + k + rLen},
		Score:   score,
	}
	if score < minScore {
		return alignment.HSP{}, false
	}
	if !x.cfg.AllSeeds && !x.minimal(s, q, hsp, qOff, code) {
		return alignment.HSP{}, false
	}
	return hsp, true
}

// side walks from (si, qi) in direction step and returns the best gain and
// the number of letters reaching it.
func (x *XDrop) side(s, q []byte, si, qi, step int) (best, length int) {
	run := 0
	for n := 1; si >= 0 && qi >= 0 && si < len(s) && qi < len(q); n++ {
		run += x.cfg.Matrix.Score(s[si], q[qi])
		if run > best {
			best, length = run, n
		} else if best-run >= x.cfg.XDrop {
			break
		}
		si += step
		qi += step
	}
	return best, length
}

func (x *XDrop) minimal(s, q []byte, hsp alignment.HSP, qOff int, code seed.Code) bool {
	model := x.cfg.Model
	k := model.Span()
	diag := hsp.Diagonal()
	for p := hsp.Query.Begin; p+k <= hsp.Query.End; p++ {
		if p == qOff {
			continue
		}
		cq, ok := model.Code(q[p : p+k])
		if !ok || cq > code || (cq == code && p > qOff) {
			continue
		}
		if cs, ok := model.Code(s[p+diag : p+diag+k]); ok && cs == cq {
			return false
		}
	}
	return true
}
