// Package index maps every seed code of a database to the contiguous list of
// positions where it occurs.
package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"seedalign-core/dispatch"
	"seedalign-core/seed"
	"seedalign-core/seq"
)

// ErrTooManyOccurrences is returned when a database holds more seed windows
// than a 32-bit arena offset can address.
var ErrTooManyOccurrences = errors.New("too many seed occurrences")

// Occurrence is one indexed window. It is written once while the index is
// built and is read-only afterwards.
type Occurrence struct {
	Seq       uint32
	Offset    uint32
	DBOffset  uint64
	Right     uint64
	Left      uint64
	Diversity uint8
}

// Options tunes Build.
type Options struct {
	// Mask restricts which codes are stored; nil stores all of them.
	Mask *Mask
	// Signatures fills Occurrence.Right/Left/Diversity.
	Signatures     bool
	SignatureWidth int
	Logger         log.FieldLogger
}

// Index is the code → occurrences table of one (database, model, mask).
// Occurrences of a code are ordered by (Seq, Offset). It is safe for
// concurrent readers.
type Index struct {
	db    seq.Database
	model *seed.Model
	mask  *Mask
	width int
	start []uint32 // len CodeCount+1
	occ   []Occurrence
}

// Build scans db in three phases: a parallel count of occurrences per code,
// a single-threaded prefix allocation of one arena, and a parallel fill that
// uses the per-code counters as atomic write cursors. A last parallel pass
// orders every code's slice so the result does not depend on scheduling.
func Build(ctx context.Context, db seq.Database, model *seed.Model, opts Options, d dispatch.Dispatcher) (*Index, error) {
	if opts.Mask != nil && opts.Mask.Len() != model.CodeCount() {
		return nil, fmt.Errorf("mask built for %d codes, model %s has %d", opts.Mask.Len(), model, model.CodeCount())
	}
	if d == nil {
		d = dispatch.Serial{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	width := 0
	if opts.Signatures {
		width = opts.SignatureWidth
		if width <= 0 || width > MaxSignatureWidth {
			width = MaxSignatureWidth
		}
	}

	idx := &Index{db: db, model: model, mask: opts.Mask, width: width}
	parts := sequenceParts(db, d.Workers()*4)
	counts := make([]uint32, model.CodeCount())
	t0 := time.Now()

	// 1) count
	cmds := make([]dispatch.Command, len(parts))
	for i, p := range parts {
		p := p
		cmds[i] = func(ctx context.Context) error {
			for s := p[0]; s < p[1]; s++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				model.Scan(db.Sequence(s).Data, func(_ int, c seed.Code) {
					if idx.mask.Has(c) {
						atomic.AddUint32(&counts[c], 1)
					}
				})
			}
			return nil
		}
	}
	if err := d.Dispatch(ctx, cmds); err != nil {
		return nil, err
	}

	// 2) allocate
	idx.start = make([]uint32, len(counts)+1)
	var total uint64
	for c, n := range counts {
		idx.start[c] = uint32(total)
		total += uint64(n)
		if total > math.MaxUint32 {
			return nil, fmt.Errorf("%w: more than %d in %s", ErrTooManyOccurrences, uint64(math.MaxUint32), db.Name())
		}
		counts[c] = idx.start[c] // counters become write cursors
	}
	idx.start[len(counts)] = uint32(total)
	idx.occ = make([]Occurrence, total)

	// 3) fill
	for i, p := range parts {
		p := p
		cmds[i] = func(ctx context.Context) error {
			for s := p[0]; s < p[1]; s++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				sq := db.Sequence(s)
				model.Scan(sq.Data, func(off int, c seed.Code) {
					if !idx.mask.Has(c) {
						return
					}
					slot := atomic.AddUint32(&counts[c], 1) - 1
					o := Occurrence{Seq: sq.Index, Offset: uint32(off), DBOffset: sq.Offset + uint64(off)}
					if width > 0 {
						o.Right, o.Left, o.Diversity = signatures(model, sq.Data, off, width)
					}
					idx.occ[slot] = o
				})
			}
			return nil
		}
	}
	if err := d.Dispatch(ctx, cmds); err != nil {
		return nil, err
	}

	// 4) order each code's slice
	codeParts := dispatch.Ranges(model.CodeCount(), d.Workers()*4)
	cmds = cmds[:0]
	for _, p := range codeParts {
		p := p
		cmds = append(cmds, func(ctx context.Context) error {
			for c := p[0]; c < p[1]; c++ {
				if e := idx.occ[idx.start[c]:idx.start[c+1]]; len(e) > 1 {
					slices.SortFunc(e, compareOccurrence)
				}
			}
			return ctx.Err()
		})
	}
	if err := d.Dispatch(ctx, cmds); err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"database":    db.Name(),
		"model":       model.String(),
		"occurrences": total,
		"elapsed":     time.Since(t0).Round(time.Millisecond),
	}).Debug("seed index built")
	return idx, nil
}

func compareOccurrence(a, b Occurrence) int {
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return cmp.Compare(a.Offset, b.Offset)
}

// sequenceParts splits the database into contiguous sequence ranges of
// similar residue count.
func sequenceParts(db seq.Database, parts int) [][2]int {
	w := make([]uint64, db.Len())
	for i := range w {
		w[i] = uint64(db.Sequence(i).Len())
	}
	return dispatch.WeightedRanges(w, parts)
}

// Entry returns the occurrences of code. Unseen and masked codes give an
// empty slice; codes outside the model panic with *seed.CodeError.
func (x *Index) Entry(code seed.Code) []Occurrence {
	x.model.Check(code)
	a, b := x.start[code], x.start[code+1]
	return x.occ[a:b:b]
}

// Count is len(Entry(code)).
func (x *Index) Count(code seed.Code) int {
	x.model.Check(code)
	return int(x.start[code+1] - x.start[code])
}

// Total is the number of stored occurrences.
func (x *Index) Total() int { return len(x.occ) }

func (x *Index) Model() *seed.Model { return x.model }
func (x *Index) Database() seq.Database { return x.db }
func (x *Index) Mask() *Mask { return x.mask }

// SignatureWidth is the number of neighbor lanes stored per side, 0 if the
// index carries no signatures.
func (x *Index) SignatureWidth() int { return x.width }

// Sequence resolves the sequence an occurrence points into.
func (x *Index) Sequence(o Occurrence) *seq.Sequence { return x.db.Sequence(int(o.Seq)) }

// PresenceMask returns the set of codes with at least one occurrence. It is
// the mask used to build the other side of a search.
func (x *Index) PresenceMask() *Mask {
	m := NewMask(x.model)
	for c := 0; c < x.model.CodeCount(); c++ {
		if x.start[c+1] > x.start[c] {
			m.Set(seed.Code(c))
		}
	}
	return m
}
