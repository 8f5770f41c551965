// core/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"seedalign-core/alignment"
	"seedalign-core/banded"
	"seedalign-core/dispatch"
	"seedalign-core/extend"
	"seedalign-core/hits"
	"seedalign-core/index"
	"seedalign-core/matrix"
	"seedalign-core/seed"
	"seedalign-core/seq"
	"seedalign-core/stats"
)

// Stats counts what a search did. Fields are cumulative over searches run
// by the same Engine.
type Stats struct {
	Pairs     uint64 // seed pairs produced
	Extended  uint64 // pairs surviving extension
	Aligned   uint64 // gapped alignments computed
	Skipped   uint64 // pairs dropped as too large
	Inserted  uint64 // alignments accepted by worker containers
	Retained  uint64 // alignments left after merge and shrink
	Partition uint64 // hit partitions processed
}

type counters struct {
	pairs, extended, aligned, skipped, inserted, retained, parts atomic.Uint64
}

// Engine runs searches with one configuration. It is safe to run several
// searches at once.
type Engine struct {
	cfg    Config
	model  *seed.Model
	matrix *matrix.Matrix
	karlin stats.Karlin
	// ungapped parameters gate the X-drop stage
	ungapped stats.Karlin
	d      dispatch.Dispatcher
	log    log.FieldLogger
	n      counters
}

// New validates cfg and resolves its model, score matrix and statistics.
// Matrices are looked up in reg; a nil reg uses a fresh default registry.
func New(cfg Config, reg *matrix.Registry) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if reg == nil {
		reg = matrix.NewRegistry()
	}
	e := &Engine{cfg: cfg, d: dispatch.NewParallel(cfg.Workers), log: cfg.Logger}

	var err error
	switch cfg.Kind {
	case seed.Protein:
		e.model, err = seed.NewProtein(cfg.Span, cfg.Reduction)
		if err == nil {
			e.matrix, err = reg.Get(cfg.Matrix)
		}
	default:
		e.model, err = seed.NewNucleotide(cfg.Span)
		e.matrix = matrix.NewNucleotide(cfg.Match, cfg.Mismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if e.karlin, err = stats.Defaults(cfg.Kind, e.matrix.Name(), cfg.GapOpen, cfg.GapExtend); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if e.ungapped, err = stats.Defaults(cfg.Kind, e.matrix.Name(), 0, 0); err != nil {
		e.ungapped = e.karlin
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }
func (e *Engine) Model() *seed.Model { return e.model }
func (e *Engine) Matrix() *matrix.Matrix { return e.matrix }

func (e *Engine) Stats() Stats {
	return Stats{
		Pairs:     e.n.pairs.Load(),
		Extended:  e.n.extended.Load(),
		Aligned:   e.n.aligned.Load(),
		Skipped:   e.n.skipped.Load(),
		Inserted:  e.n.inserted.Load(),
		Retained:  e.n.retained.Load(),
		Partition: e.n.parts.Load(),
	}
}

type strandView struct {
	db    seq.Database
	index *index.Index
}

func (v *strandView) frame() int8 { return int8(v.db.Direction()) }

// Search aligns every query sequence against the subject database and
// returns the merged, shrunk results. The first error of any worker, or
// the cancellation of ctx, aborts the search without results.
func (e *Engine) Search(ctx context.Context, subject, query seq.Database) (*alignment.Container, error) {
	t0 := time.Now()
	cfg := e.cfg
	info := stats.NewSearchInfo(e.karlin, subject.TotalLength(), cfg.EValue, 0)
	var gate stats.QueryInfo = stats.NewSearchInfo(e.ungapped, subject.TotalLength(), cfg.EValue, 0)
	if cfg.MinUngappedScore > 0 {
		gate = stats.Fixed{Threshold: cfg.MinUngappedScore}
	}
	signatures := cfg.Kind == seed.Protein && (cfg.MinSignatureLanes > 0 || cfg.MinDiversity > 0)
	iopts := index.Options{Signatures: signatures, Logger: e.log}

	var views []*strandView
	if cfg.Strand != StrandMinus {
		views = append(views, &strandView{db: query})
	}
	if cfg.Strand != StrandPlus {
		views = append(views, &strandView{db: seq.ReverseComplement(query)})
	}
	var mask *index.Mask
	for _, v := range views {
		x, err := index.Build(ctx, v.db, e.model, iopts, e.d)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", v.db.Name(), err)
		}
		v.index = x
		if mask == nil {
			mask = x.PresenceMask()
		}
	}
	if len(views) > 1 {
		// the reverse view holds exactly the reverse complements
		mask.AddReverseComplements(e.model)
	}
	sopts := iopts
	sopts.Mask = mask
	sx, err := index.Build(ctx, subject, e.model, sopts, e.d)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", subject.Name(), err)
	}
	e.log.WithFields(log.Fields{
		"subject":     subject.Name(),
		"query":       query.Name(),
		"seed":        e.model.String(),
		"codes":       humanize.Comma(int64(mask.Count())),
		"occurrences": humanize.Comma(int64(sx.Total())),
	}).Info("indexes built")

	result := alignment.NewContainer(e.containerOptions())
	for _, v := range views {
		c, err := e.searchStrand(ctx, sx, v, info, gate)
		if err != nil {
			return nil, err
		}
		result.Merge(c)
	}
	result.Shrink()
	e.n.retained.Add(uint64(result.Len()))

	st := e.Stats()
	e.log.WithFields(log.Fields{
		"pairs":      humanize.Comma(int64(st.Pairs)),
		"extended":   humanize.Comma(int64(st.Extended)),
		"aligned":    humanize.Comma(int64(st.Aligned)),
		"skipped":    st.Skipped,
		"alignments": result.Len(),
		"elapsed":    time.Since(t0).Round(time.Millisecond),
	}).Info("search finished")
	return result, nil
}

func (e *Engine) containerOptions() alignment.Options {
	return alignment.Options{
		Band:                e.cfg.Band,
		MaxAlignmentsPerHit: e.cfg.MaxAlignmentsPerHit,
		MaxHitsPerQuery:     e.cfg.MaxHitsPerQuery,
	}
}

func (e *Engine) searchStrand(ctx context.Context, sx *index.Index, v *strandView, info *stats.SearchInfo, gate stats.QueryInfo) (*alignment.Container, error) {
	it, err := hits.New(sx, v.index)
	if err != nil {
		return nil, err
	}
	parts := it.Split(e.d.Workers() * 4)
	e.log.WithFields(log.Fields{
		"frame": v.frame(),
		"pairs": humanize.Comma(int64(it.PairCount())),
		"parts": len(parts),
	}).Debug("hits split")

	out := make([]*alignment.Container, len(parts))
	var done atomic.Int64
	cmds := make([]dispatch.Command, len(parts))
	for i, p := range parts {
		i, p := i, p
		cmds[i] = func(ctx context.Context) error {
			w := e.newWorker(sx, v, info, gate)
			if err := p.Each(ctx, w.hit); err != nil {
				return err
			}
			out[i] = w.container
			e.n.parts.Add(1)
			if cb := e.cfg.OnPartDone; cb != nil {
				cb(int(done.Add(1)), len(parts))
			}
			return nil
		}
	}
	if err := e.d.Dispatch(ctx, cmds); err != nil {
		return nil, err
	}
	merged := alignment.NewContainer(e.containerOptions())
	merged.Merge(out...)
	return merged, nil
}

// worker owns everything one hit partition writes to.
type worker struct {
	e         *Engine
	subject   seq.Database
	query     seq.Database
	frame     int8
	info      *stats.SearchInfo
	stage     extend.Stage
	hsps      *extend.HSPSet
	aligner   *banded.Aligner
	container *alignment.Container
	rs, rq    []byte
}

func (e *Engine) newWorker(sx *index.Index, v *strandView, info *stats.SearchInfo, gate stats.QueryInfo) *worker {
	cfg := e.cfg
	subject := sx.Database()
	w := &worker{
		e:       e,
		subject: subject,
		query:   v.db,
		frame:   v.frame(),
		info:    info,
		hsps:    extend.NewHSPSet(),
		aligner: banded.New(e.matrix, banded.Options{
			GapOpen:   cfg.GapOpen,
			GapExtend: cfg.GapExtend,
			Margin:    cfg.Margin,
			MaxCells:  cfg.MaxCells,
		}),
		container: alignment.NewContainer(e.containerOptions()),
	}
	xdrop := extend.NewXDrop(extend.XDropConfig{
		Matrix: e.matrix,
		Model:  e.model,
		XDrop:  cfg.XDrop,
		Info:   gate,
	}, subject, v.db)
	if cfg.Kind != seed.Protein {
		w.stage = xdrop
		return w
	}
	width := 0
	if cfg.MinSignatureLanes > 0 || cfg.MinDiversity > 0 {
		width = min(sx.SignatureWidth(), v.index.SignatureWidth())
	}
	nb := extend.NewNeighborhood(extend.NeighborhoodConfig{
		Matrix:            e.matrix,
		Model:             e.model,
		Width:             cfg.NeighborhoodWidth,
		Band:              cfg.NeighborhoodBand,
		GapOpen:           cfg.GapOpen,
		GapExtend:         cfg.GapExtend,
		Info:              info,
		Known:             extend.KnownFunc(w.known),
		SignatureWidth:    width,
		MinSignatureLanes: cfg.MinSignatureLanes,
		MinDiversity:      cfg.MinDiversity,
		Batched:           cfg.Batched,
	}, subject, v.db)
	w.stage = extend.Chain{nb, xdrop}
	return w
}

// known reports seeds already covered by an HSP on a nearby diagonal or by
// a gapped alignment of this worker.
func (w *worker) known(q, s uint32, qOff, sOff, band int) bool {
	return w.hsps.DoesExist(q, s, qOff, sOff, band) ||
		w.container.DoesExist(q, s, qOff, sOff, band)
}

func (w *worker) hit(h *hits.Hit) error {
	w.e.n.pairs.Add(uint64(len(h.Pairs)))
	n := w.stage.Filter(h)
	w.e.n.extended.Add(uint64(n))
	for _, p := range h.Pairs {
		so, qo := h.Subject[p.S], h.Query[p.Q]
		if !w.hsps.Add(qo.Seq, so.Seq, p.Segment) {
			continue
		}
		w.align(w.subject.Sequence(int(so.Seq)), w.query.Sequence(int(qo.Seq)), p.Segment)
	}
	return nil
}

// align runs the banded aligner both ways from the middle of hsp.
func (w *worker) align(s, q *seq.Sequence, hsp alignment.HSP) {
	half := hsp.Query.Len() / 2
	qc, sc := hsp.Query.Begin+half, hsp.Subject.Begin+half
	if w.container.DoesExist(q.Index, s.Index, qc, sc, 0) {
		return
	}
	margin := w.aligner.Options().Margin

	right, err := w.extend(hsp.Query.End-qc, func(n int) ([]byte, []byte, bool) {
		qe, se := min(q.Len(), qc+n), min(s.Len(), sc+n+margin)
		return s.Data[sc:se], q.Data[qc:qe], qe == q.Len() || se == s.Len()
	})
	if err != nil {
		w.skip(s, q, err)
		return
	}
	left, err := w.extend(qc-hsp.Query.Begin, func(n int) ([]byte, []byte, bool) {
		qb, sb := max(0, qc-n), max(0, sc-n-margin)
		w.rq = reverseInto(w.rq, q.Data[qb:qc])
		w.rs = reverseInto(w.rs, s.Data[sb:sc])
		return w.rs, w.rq, qb == 0 || sb == 0
	})
	if err != nil {
		w.skip(s, q, err)
		return
	}
	w.e.n.aligned.Add(1)

	a := alignment.Alignment{
		Query:        q.Ref(),
		Subject:      s.Ref(),
		QueryRange:   alignment.Range{Begin: qc - left.QueryEnd, End: qc + right.QueryEnd},
		SubjectRange: alignment.Range{Begin: sc - left.SubjectEnd, End: sc + right.SubjectEnd},
		QueryGaps:    left.QueryGaps + right.QueryGaps,
		SubjectGaps:  left.SubjectGaps + right.SubjectGaps,
		GapOpens:     left.GapOpens + right.GapOpens,
		QueryFrame:   w.frame,
		SubjectFrame: 1,
		Columns:      left.Length + right.Length,
		Score:        left.Score + right.Score,
		Identity:     left.Identity + right.Identity,
		Positives:    left.Positives + right.Positives,
		Mismatches:   left.Mismatches + right.Mismatches,
	}
	if a.Columns == 0 {
		return
	}
	a.Normalize()
	_, space := w.info.Cutoff(q)
	a.BitScore = w.info.Params.BitScore(a.Score)
	a.EValue = w.info.Params.EValue(a.Score, space)
	if a.EValue > w.info.EValue {
		return
	}
	if w.container.Insert(a) == alignment.Inserted {
		w.e.n.inserted.Add(1)
	}
}

// extend aligns forward from an anchor inside a window of the next n query
// letters. The first window covers reach letters of the HSP plus Flank; it
// doubles while the best cell lies within Flank of the window end and no
// sequence end was reached. window returns the subject and query letters of
// an n-letter window and whether it touches a sequence end.
func (w *worker) extend(reach int, window func(n int) (s, q []byte, last bool)) (banded.Result, error) {
	flank := w.e.cfg.Flank
	var prev banded.Result
	for n, grown := reach+flank, false; ; n, grown = 2*n, true {
		s, q, last := window(n)
		res, err := w.aligner.Align(s, q, alignment.Range{End: len(s)}, alignment.Range{End: len(q)})
		if err != nil {
			if grown && errors.Is(err, banded.ErrTooLarge) {
				// keep the best alignment that fitted
				return prev, nil
			}
			return res, err
		}
		if last || (res.QueryEnd+flank <= len(q) && res.SubjectEnd+flank <= len(s)) {
			return res, nil
		}
		prev = res
	}
}

func (w *worker) skip(s, q *seq.Sequence, err error) {
	if !errors.Is(err, banded.ErrTooLarge) {
		w.e.log.WithError(err).Warn("alignment failed")
	}
	w.e.n.skipped.Add(1)
	w.e.log.WithFields(log.Fields{
		"query":   q.ID,
		"subject": s.ID,
	}).WithError(err).Debug("pair skipped")
}

func reverseInto(dst, src []byte) []byte {
	dst = append(dst[:0], src...)
	for i, j := 0, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
	return dst
}
