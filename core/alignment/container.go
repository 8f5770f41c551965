package alignment

import (
	"cmp"
	"slices"
	"sync"

	"github.com/twotwotwo/sorts/sortutil"

	"seedalign-core/seq"
)

// InsertResult tells what Insert did with an alignment.
type InsertResult int8

const (
	Inserted InsertResult = iota
	Dominated
)

func (r InsertResult) String() string {
	if r == Dominated {
		return "dominated"
	}
	return "inserted"
}

// Options bounds a Container.
type Options struct {
	// Band widens stored ranges when testing containment.
	Band int
	// MaxAlignmentsPerHit caps each (query, subject) bucket on Shrink; 0 = no cap.
	MaxAlignmentsPerHit int
	// MaxHitsPerQuery caps the subjects kept per query on Shrink; 0 = no cap.
	MaxHitsPerQuery int
}

type bucket struct {
	subject seq.Ref
	list    []Alignment
}

type queryBucket struct {
	query     seq.Ref
	subjects  []*bucket
	bySubject map[uint32]*bucket
}

// Container maps query → subject → alignments. Within a bucket no stored
// alignment's range pair contains another's with a score that is not lower;
// this is enforced on every Insert. All methods are serialized by one mutex,
// so the usual pattern is one Container per worker and a final Merge.
type Container struct {
	mu      sync.Mutex
	opts    Options
	queries map[uint32]*queryBucket
	n       int
}

func NewContainer(opts Options) *Container {
	return &Container{opts: opts, queries: make(map[uint32]*queryBucket)}
}

func (c *Container) Options() Options { return c.opts }

// Insert adds a unless an existing alignment of the same bucket contains it
// with an equal or higher score. Existing alignments contained by a with a
// score not higher than a's are removed first.
func (c *Container) Insert(a Alignment) InsertResult {
	a.Normalize()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(a)
}

func (c *Container) insertLocked(a Alignment) InsertResult {
	qb := c.queries[a.Query.Index]
	if qb == nil {
		qb = &queryBucket{query: a.Query, bySubject: make(map[uint32]*bucket)}
		c.queries[a.Query.Index] = qb
	}
	b := qb.bySubject[a.Subject.Index]
	if b == nil {
		b = &bucket{subject: a.Subject}
		qb.bySubject[a.Subject.Index] = b
		qb.subjects = append(qb.subjects, b)
	}
	band := c.opts.Band
	for i := range b.list {
		e := &b.list[i]
		if e.Contains(&a, band) && e.Score >= a.Score {
			return Dominated
		}
	}
	kept := b.list[:0]
	for _, e := range b.list {
		if a.Contains(&e, band) && a.Score >= e.Score {
			c.n--
			continue
		}
		kept = append(kept, e)
	}
	b.list = append(kept, a)
	c.n++
	return Inserted
}

// Merge replays every alignment of others through Insert, so dominance is
// resolved across containers and not only inside each of them. others are
// read in the order given.
func (c *Container) Merge(others ...*Container) {
	for _, o := range others {
		if o == nil || o == c {
			continue
		}
		var all []Alignment
		o.mu.Lock()
		for _, k := range o.sortedQueryKeys() {
			for _, b := range o.queries[k].subjects {
				all = append(all, b.list...)
			}
		}
		o.mu.Unlock()

		c.mu.Lock()
		for _, a := range all {
			c.insertLocked(a)
		}
		c.mu.Unlock()
	}
}

// Shrink orders each bucket best first and caps it, then orders the
// subjects of each query by their best alignment and caps them. It never
// adds alignments.
func (c *Container) Shrink() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, qb := range c.queries {
		kept := qb.subjects[:0]
		for _, b := range qb.subjects {
			if len(b.list) == 0 {
				delete(qb.bySubject, b.subject.Index)
				continue
			}
			slices.SortFunc(b.list, func(x, y Alignment) int { return Compare(&x, &y) })
			if m := c.opts.MaxAlignmentsPerHit; m > 0 && len(b.list) > m {
				b.list = b.list[:m]
			}
			kept = append(kept, b)
		}
		slices.SortFunc(kept, func(x, y *bucket) int {
			if r := Compare(&x.list[0], &y.list[0]); r != 0 {
				return r
			}
			return cmp.Compare(x.subject.Index, y.subject.Index)
		})
		if m := c.opts.MaxHitsPerQuery; m > 0 && len(kept) > m {
			for _, b := range kept[m:] {
				delete(qb.bySubject, b.subject.Index)
			}
			kept = kept[:m]
		}
		qb.subjects = kept
		for _, b := range kept {
			n += len(b.list)
		}
	}
	c.n = n
}

// DoesExist reports whether a stored alignment of (q, s), widened by band,
// covers query offset qOff and subject offset sOff.
func (c *Container) DoesExist(q, s uint32, qOff, sOff, band int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(q, s)
	if b == nil {
		return false
	}
	for i := range b.list {
		e := &b.list[i]
		if e.QueryRange.Widen(band).Includes(qOff) && e.SubjectRange.Widen(band).Includes(sOff) {
			return true
		}
	}
	return false
}

func (c *Container) bucket(q, s uint32) *bucket {
	qb := c.queries[q]
	if qb == nil {
		return nil
	}
	return qb.bySubject[s]
}

// Len is the number of stored alignments.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// QueryCount is the number of queries with at least one bucket.
func (c *Container) QueryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

// Alignments returns a copy of the (q, s) bucket.
func (c *Container) Alignments(q, s uint32) []Alignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(q, s)
	if b == nil {
		return nil
	}
	return slices.Clone(b.list)
}

// Accept walks queries in ascending index order and, per query, subjects in
// bucket order (insertion order, or rank order after Shrink).
func (c *Container) Accept(v Visitor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.sortedQueryKeys() {
		qb := c.queries[k]
		entered := false
		for _, b := range qb.subjects {
			if len(b.list) == 0 {
				continue
			}
			if !entered {
				if err := v.VisitQuery(qb.query); err != nil {
					return err
				}
				entered = true
			}
			if err := v.VisitSubject(b.subject); err != nil {
				return err
			}
			if err := v.VisitAlignments(slices.Clone(b.list)); err != nil {
				return err
			}
		}
	}
	return v.Finish()
}

func (c *Container) sortedQueryKeys() []uint32 {
	keys := make([]uint32, 0, len(c.queries))
	for k := range c.queries {
		keys = append(keys, k)
	}
	sortutil.Uint32s(keys)
	return keys
}
