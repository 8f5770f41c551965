package alignment

import "seedalign-core/seq"

// Visitor receives the content of a Container: for every query, the query,
// then for every subject hit by it, the subject and its alignments; Finish
// is called once at the end.
type Visitor interface {
	VisitQuery(q seq.Ref) error
	VisitSubject(s seq.Ref) error
	VisitAlignments(list []Alignment) error
	Finish() error
}

// Collector is an in-memory Visitor that flattens everything it sees.
type Collector struct {
	Queries    []seq.Ref
	Alignments []Alignment
	Finished   bool
}

func (c *Collector) VisitQuery(q seq.Ref) error {
	c.Queries = append(c.Queries, q)
	return nil
}

func (c *Collector) VisitSubject(seq.Ref) error { return nil }

func (c *Collector) VisitAlignments(list []Alignment) error {
	c.Alignments = append(c.Alignments, list...)
	return nil
}

func (c *Collector) Finish() error {
	c.Finished = true
	return nil
}
