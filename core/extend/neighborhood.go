package extend

import (
	"seedalign-core/alignment"
	"seedalign-core/hits"
	"seedalign-core/index"
	"seedalign-core/matrix"
	"seedalign-core/seed"
	"seedalign-core/seq"
	"seedalign-core/stats"
)

// Lanes is the number of pairs scored together by the batched kernel.
const Lanes = 8

const negInf = -1 << 28

// NeighborhoodConfig tunes the protein prefilter.
type NeighborhoodConfig struct {
	Matrix *matrix.Matrix
	Model  *seed.Model
	// Width is the number of letters scored on each side of the seed.
	Width int
	// Band is the diagonal half-width of the small gapped window.
	Band      int
	GapOpen   int
	GapExtend int
	Info      stats.QueryInfo
	// Known, when set, drops pairs already inside a recorded result.
	Known     Known
	KnownBand int
	// SignatureWidth is the lane count of the indexes' signatures; the
	// two prefilters below need it.
	SignatureWidth int
	// MinSignatureLanes is the number of neighbor lanes that must agree.
	MinSignatureLanes int
	// MinDiversity drops query seeds in low complexity regions.
	MinDiversity int
	// Batched selects the lane kernel; results are identical.
	Batched bool
}

func (c NeighborhoodConfig) withDefaults() NeighborhoodConfig {
	if c.Width <= 0 {
		c.Width = 16
	}
	if c.Band < 0 {
		c.Band = 0
	}
	return c
}

type candidate struct {
	pair   hits.Pair
	cutoff int
	seed   int
	score  int
}

// Neighborhood scores a fixed window on both sides of each seed with a
// banded affine recurrence and keeps pairs whose combined score reaches the
// query cutoff.
type Neighborhood struct {
	cfg     NeighborhoodConfig
	subject seq.Database
	query   seq.Database

	cands []candidate
	// per candidate right and left windows of both sides; left ones reversed
	as, bs   [][]byte
	las, lbs [][]byte
	rev      []byte
	scores   []int32

	h, f   []int32
	lh, lf [][Lanes]int32
}

func NewNeighborhood(cfg NeighborhoodConfig, subject, query seq.Database) *Neighborhood {
	return &Neighborhood{cfg: cfg.withDefaults(), subject: subject, query: query}
}

func (n *Neighborhood) Filter(h *hits.Hit) int {
	cfg := &n.cfg
	k := cfg.Model.Span()
	w := cfg.Width
	n.cands = n.cands[:0]
	n.as, n.bs, n.las, n.lbs = n.as[:0], n.bs[:0], n.las[:0], n.lbs[:0]
	n.rev = n.rev[:0]

	for _, p := range h.Pairs {
		so, qo := h.Subject[p.S], h.Query[p.Q]
		if !n.prefilter(so, qo) {
			continue
		}
		if cfg.Known != nil && cfg.Known.DoesExist(qo.Seq, so.Seq, int(qo.Offset), int(so.Offset), cfg.KnownBand) {
			continue
		}
		ss := n.subject.Sequence(int(so.Seq))
		qs := n.query.Sequence(int(qo.Seq))
		s, q := ss.Data, qs.Data
		sOff, qOff := int(so.Offset), int(qo.Offset)
		cutoff, _ := cfg.Info.Cutoff(qs)
		seedScore := 0
		for i := 0; i < k; i++ {
			seedScore += cfg.Matrix.Score(s[sOff+i], q[qOff+i])
		}
		n.cands = append(n.cands, candidate{pair: p, cutoff: cutoff, seed: seedScore})
		n.as = append(n.as, s[sOff+k:min(len(s), sOff+k+w)])
		n.bs = append(n.bs, q[qOff+k:min(len(q), qOff+k+w)])
		n.las = append(n.las, n.reversed(s[max(0, sOff-w):sOff]))
		n.lbs = append(n.lbs, n.reversed(q[max(0, qOff-w):qOff]))
	}
	// n.rev may have moved while growing; re-slice the left windows
	off := 0
	for i := range n.cands {
		la, lb := len(n.las[i]), len(n.lbs[i])
		n.las[i] = n.rev[off : off+la : off+la]
		off += la
		n.lbs[i] = n.rev[off : off+lb : off+lb]
		off += lb
	}

	n.score(n.as, n.bs)
	for i := range n.cands {
		n.cands[i].score = n.cands[i].seed + int(n.scores[i])
	}
	n.score(n.las, n.lbs)
	for i := range n.cands {
		n.cands[i].score += int(n.scores[i])
	}

	kept := h.Pairs[:0]
	for _, c := range n.cands {
		if c.score <= c.cutoff {
			continue
		}
		so, qo := h.Subject[c.pair.S], h.Query[c.pair.Q]
		p := c.pair
		p.Segment = alignment.HSP{
			Query:   alignment.Range{Begin: int(qo.Offset), End: int(qo.Offset) + k},
			Subject: alignment.Range{Begin: int(so.Offset), End: int(so.Offset) + k},
			Score:   c.score,
		}
		kept = append(kept, p)
	}
	h.Pairs = kept
	return len(kept)
}

func (n *Neighborhood) prefilter(so, qo index.Occurrence) bool {
	cfg := &n.cfg
	if cfg.SignatureWidth == 0 {
		return true
	}
	if cfg.MinDiversity > 0 && int(qo.Diversity) < cfg.MinDiversity {
		return false
	}
	if cfg.MinSignatureLanes > 0 {
		m := index.MatchingLanes(so.Right, qo.Right, cfg.SignatureWidth) +
			index.MatchingLanes(so.Left, qo.Left, cfg.SignatureWidth)
		if m < cfg.MinSignatureLanes {
			return false
		}
	}
	return true
}

func (n *Neighborhood) reversed(b []byte) []byte {
	start := len(n.rev)
	for i := len(b) - 1; i >= 0; i-- {
		n.rev = append(n.rev, b[i])
	}
	return n.rev[start:]
}

// score fills n.scores with the best extension score of every window pair.
func (n *Neighborhood) score(as, bs [][]byte) {
	if cap(n.scores) < len(as) {
		n.scores = make([]int32, len(as))
	}
	n.scores = n.scores[:len(as)]
	if !n.cfg.Batched {
		for i := range as {
			n.scores[i] = n.scoreScalar(as[i], bs[i])
		}
		return
	}
	for i := 0; i < len(as); i += Lanes {
		j := min(i+Lanes, len(as))
		n.scoreLanes(as[i:j], bs[i:j], n.scores[i:j])
	}
}

func (n *Neighborhood) gapCosts() (open, extend int32) {
	return int32(n.cfg.GapOpen), int32(n.cfg.GapExtend)
}

// scoreScalar returns the best score of an alignment of a prefix of a with
// a prefix of b, both anchored at their first letter, 0 for the empty one.
// H is the best score of a cell, E of a gap moving along b, F of a gap
// moving along a; a gap of length L costs open + L*extend.
func (n *Neighborhood) scoreScalar(a, b []byte) int32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	m := n.cfg.Matrix
	band := n.cfg.Band
	o, e := n.gapCosts()
	if cap(n.h) < len(b)+1 {
		n.h = make([]int32, len(b)+1)
		n.f = make([]int32, len(b)+1)
	}
	hp, fp := n.h[:len(b)+1], n.f[:len(b)+1]
	hp[0], fp[0] = 0, negInf
	for j := 1; j <= len(b); j++ {
		hp[j], fp[j] = negInf, negInf
		if j <= band {
			hp[j] = -(o + e*int32(j))
		}
	}
	var best int32
	for i := 1; i <= len(a); i++ {
		row := m.Row(a[i-1])
		diag := hp[0]
		hp[0] = negInf
		if i <= band {
			hp[0] = -(o + e*int32(i))
		}
		ecur := int32(negInf)
		for j := 1; j <= len(b); j++ {
			up := hp[j]
			if j < i-band || j > i+band {
				hp[j], fp[j], ecur, diag = negInf, negInf, negInf, up
				continue
			}
			ecur = max(hp[j-1]-o-e, ecur-e)
			f := max(up-o-e, fp[j]-e)
			hc := max(diag+int32(row[m.Code(b[j-1])]), ecur, f)
			diag = up
			hp[j], fp[j] = hc, f
			best = max(best, hc)
		}
	}
	return best
}

// scoreLanes runs the scoreScalar recurrence on up to Lanes pairs at once.
// Every lane walks the same cells; cells outside a lane's windows hold
// negInf and never reach its best.
func (n *Neighborhood) scoreLanes(as, bs [][]byte, out []int32) {
	m := n.cfg.Matrix
	band := n.cfg.Band
	o, e := n.gapCosts()
	var la, lb [Lanes]int
	rows, cols := 0, 0
	for l := range as {
		la[l], lb[l] = len(as[l]), len(bs[l])
		if la[l] == 0 || lb[l] == 0 {
			// empty windows score zero; keep the lane idle
			la[l], lb[l] = 0, 0
		}
		rows, cols = max(rows, la[l]), max(cols, lb[l])
	}
	if cap(n.lh) < cols+1 {
		n.lh = make([][Lanes]int32, cols+1)
		n.lf = make([][Lanes]int32, cols+1)
	}
	hp, fp := n.lh[:cols+1], n.lf[:cols+1]
	var best [Lanes]int32
	for l := 0; l < Lanes; l++ {
		hp[0][l], fp[0][l] = 0, negInf
	}
	for j := 1; j <= cols; j++ {
		for l := 0; l < Lanes; l++ {
			hp[j][l], fp[j][l] = negInf, negInf
			if j <= band && j <= lb[l] {
				hp[j][l] = -(o + e*int32(j))
			}
		}
	}
	var diag, ecur [Lanes]int32
	var row [Lanes][]int8
	for i := 1; i <= rows; i++ {
		for l := 0; l < Lanes; l++ {
			diag[l] = hp[0][l]
			ecur[l] = negInf
			hp[0][l] = negInf
			if i <= la[l] {
				row[l] = m.Row(as[l][i-1])
				if i <= band {
					hp[0][l] = -(o + e*int32(i))
				}
			}
		}
		inBand := func(j int) bool { return j >= i-band && j <= i+band }
		for j := 1; j <= cols; j++ {
			for l := 0; l < Lanes; l++ {
				up := hp[j][l]
				if !inBand(j) || i > la[l] || j > lb[l] {
					hp[j][l], fp[j][l], ecur[l], diag[l] = negInf, negInf, negInf, up
					continue
				}
				ecur[l] = max(hp[j-1][l]-o-e, ecur[l]-e)
				f := max(up-o-e, fp[j][l]-e)
				hc := max(diag[l]+int32(row[l][m.Code(bs[l][j-1])]), ecur[l], f)
				diag[l] = up
				hp[j][l], fp[j][l] = hc, f
				best[l] = max(best[l], hc)
			}
		}
	}
	copy(out, best[:len(as)])
}
