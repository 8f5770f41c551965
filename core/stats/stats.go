// Package stats converts raw alignment scores to bit-scores and e-values
// and derives the per-query score cutoff used to gate extension.
package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"seedalign-core/seed"
	"seedalign-core/seq"
)

var ErrNoParameters = errors.New("no Karlin-Altschul parameters")

// Karlin holds the Karlin-Altschul parameters of a scoring system.
type Karlin struct {
	Lambda float64
	K      float64
}

// BitScore normalizes a raw score.
func (k Karlin) BitScore(raw int) float64 {
	return (k.Lambda*float64(raw) - math.Log(k.K)) / math.Ln2
}

// EValue is the expected number of chance alignments scoring at least raw in
// a search space of the given size.
func (k Karlin) EValue(raw int, space float64) float64 {
	return k.K * space * math.Exp(-k.Lambda*float64(raw))
}

// RawCutoff is the smallest raw score whose e-value is at most evalue.
func (k Karlin) RawCutoff(space, evalue float64) int {
	if space <= 0 || evalue <= 0 {
		return 0
	}
	c := math.Ceil(math.Log(k.K*space/evalue) / k.Lambda)
	if c < 1 {
		return 1
	}
	return int(c)
}

type key struct {
	matrix    string
	gapOpen   int
	gapExtend int
}

// gapped parameters for the common scoring systems
var table = map[key]Karlin{
	{"BLOSUM62", 11, 1}: {Lambda: 0.267, K: 0.041},
	{"BLOSUM62", 10, 1}: {Lambda: 0.243, K: 0.032},
	{"BLOSUM62", 9, 2}:  {Lambda: 0.279, K: 0.058},
	{"BLOSUM62", 0, 0}:  {Lambda: 0.3176, K: 0.134},
	{"NUC.1.-2", 5, 2}:  {Lambda: 1.28, K: 0.46},
	{"NUC.1.-2", 2, 2}:  {Lambda: 1.19, K: 0.34},
	{"NUC.1.-2", 0, 0}:  {Lambda: 1.28, K: 0.46},
	{"NUC.1.-3", 5, 2}:  {Lambda: 1.37, K: 0.711},
	{"NUC.1.-3", 2, 2}:  {Lambda: 1.35, K: 0.61},
	{"NUC.2.-3", 5, 2}:  {Lambda: 0.675, K: 0.27},
	{"NUC.2.-3", 4, 4}:  {Lambda: 0.63, K: 0.22},
}

// Defaults looks up the parameters of a matrix and gap costs. Nucleotide
// lookups fall back to the ungapped entry of the same reward pair.
func Defaults(kind seed.Kind, matrix string, gapOpen, gapExtend int) (Karlin, error) {
	name := strings.ToUpper(matrix)
	if k, ok := table[key{name, gapOpen, gapExtend}]; ok {
		return k, nil
	}
	if kind == seed.Nucleotide {
		if k, ok := table[key{name, 0, 0}]; ok {
			return k, nil
		}
	}
	return Karlin{}, fmt.Errorf("%w for %s %s gap %d/%d", ErrNoParameters, kind, matrix, gapOpen, gapExtend)
}

// QueryInfo is the read-only statistics service the search consults per
// query.
type QueryInfo interface {
	Cutoff(q *seq.Sequence) (threshold int, effSearchSpace float64)
}

// SearchInfo implements QueryInfo for one subject database.
type SearchInfo struct {
	Params  Karlin
	EValue  float64
	dbLen   float64
	minimum int
}

// NewSearchInfo prepares cutoffs against a subject database of
// subjectLength residues. minimum floors every cutoff.
func NewSearchInfo(params Karlin, subjectLength uint64, evalue float64, minimum int) *SearchInfo {
	return &SearchInfo{Params: params, EValue: evalue, dbLen: float64(subjectLength), minimum: minimum}
}

// Space is the search space of a query of length n.
func (s *SearchInfo) Space(n int) float64 { return float64(n) * s.dbLen }

func (s *SearchInfo) Cutoff(q *seq.Sequence) (int, float64) {
	space := s.Space(q.Len())
	return max(s.Params.RawCutoff(space, s.EValue), s.minimum), space
}

// Fixed is a QueryInfo with the same answer for every query.
type Fixed struct {
	Threshold int
	Space     float64
}

func (f Fixed) Cutoff(*seq.Sequence) (int, float64) { return f.Threshold, f.Space }
