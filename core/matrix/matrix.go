// Package matrix holds substitution score tables and the registry that
// hands them out for one search run.
package matrix

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/TuftsBCB/seq"
)

// ErrUnknownMatrix is returned by Registry.Get for a name nobody registered.
var ErrUnknownMatrix = errors.New("unknown score matrix")

const unknownCode = 0xff

// Matrix is an alphabet×alphabet table of signed byte scores. Letters that
// are not part of the alphabet all share one extra row scored with Unknown.
type Matrix struct {
	name    string
	letters []byte
	code    [256]uint8
	n       int // rows, including the unknown row
	table   []int8
	min     int
	max     int
}

// New builds a matrix from an alphabet and a square score table. Lower-case
// letters are folded onto their upper-case rows. unknown scores every pair
// that involves a letter outside alphabet.
func New(name string, alphabet []byte, scores [][]int, unknown int) (*Matrix, error) {
	if len(scores) != len(alphabet) {
		return nil, fmt.Errorf("matrix %s: %d rows for %d letters", name, len(scores), len(alphabet))
	}
	m := &Matrix{name: name, letters: append([]byte(nil), alphabet...), n: len(alphabet) + 1}
	for i := range m.code {
		m.code[i] = unknownCode
	}
	for i, l := range alphabet {
		m.code[l] = uint8(i)
		if l >= 'A' && l <= 'Z' {
			m.code[l+'a'-'A'] = uint8(i)
		}
	}
	m.table = make([]int8, m.n*m.n)
	m.min, m.max = unknown, unknown
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			v := unknown
			if i < len(alphabet) && j < len(alphabet) {
				if len(scores[i]) != len(alphabet) {
					return nil, fmt.Errorf("matrix %s: row %d has %d columns", name, i, len(scores[i]))
				}
				v = scores[i][j]
			}
			if v < -128 || v > 127 {
				return nil, fmt.Errorf("matrix %s: score %d out of byte range", name, v)
			}
			m.table[i*m.n+j] = int8(v)
			m.min = min(m.min, v)
			m.max = max(m.max, v)
		}
	}
	return m, nil
}

func (m *Matrix) Name() string { return m.name }

// Score returns the substitution score of letters a and b.
func (m *Matrix) Score(a, b byte) int {
	return int(m.table[m.row(a)*m.n+m.row(b)])
}

// Row returns the scores of letter a against every letter code, indexed by
// Code. Callers must not modify it.
func (m *Matrix) Row(a byte) []int8 {
	r := m.row(a)
	return m.table[r*m.n : (r+1)*m.n]
}

// Code returns the row of letter b.
func (m *Matrix) Code(b byte) int { return m.row(b) }

func (m *Matrix) row(b byte) int {
	c := m.code[b]
	if c == unknownCode {
		return m.n - 1
	}
	return int(c)
}

// Min and Max bound every score of the table.
func (m *Matrix) Min() int { return m.min }
func (m *Matrix) Max() int { return m.max }

// NewNucleotide builds an A/C/G/T match/mismatch matrix. Ambiguous bases
// score as a mismatch against everything.
func NewNucleotide(match, mismatch int) *Matrix {
	const acgt = "ACGT"
	scores := make([][]int, len(acgt))
	for i := range scores {
		scores[i] = make([]int, len(acgt))
		for j := range scores[i] {
			if i == j {
				scores[i][j] = match
			} else {
				scores[i][j] = mismatch
			}
		}
	}
	m, err := New(fmt.Sprintf("NUC.%d.%d", match, mismatch), []byte(acgt), scores, mismatch)
	if err != nil {
		panic(err) // match/mismatch outside int8 is a programming error
	}
	return m
}

func blosum62() *Matrix {
	sub := seq.SubstBlosum62
	var letters []byte
	var rows []int
	for i, r := range sub.Alphabet {
		if l := byte(r); l >= 'A' && l <= 'Z' {
			letters = append(letters, l)
			rows = append(rows, i)
		}
	}
	scores := make([][]int, len(rows))
	lowest := 0
	for i, ri := range rows {
		scores[i] = make([]int, len(rows))
		for j, rj := range rows {
			scores[i][j] = sub.Scores[ri][rj]
			lowest = min(lowest, scores[i][j])
		}
	}
	m, err := New("BLOSUM62", letters, scores, lowest)
	if err != nil {
		panic(err)
	}
	return m
}

// Registry maps matrix names to tables for the lifetime of one search. It is
// safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*Matrix
}

// NewRegistry returns a registry that already knows BLOSUM62.
func NewRegistry() *Registry {
	r := &Registry{m: make(map[string]*Matrix)}
	r.Register(blosum62())
	return r
}

// Register adds or replaces m under its name (case-insensitive).
func (r *Registry) Register(m *Matrix) {
	r.mu.Lock()
	r.m[strings.ToUpper(m.name)] = m
	r.mu.Unlock()
}

// Get looks name up case-insensitively.
func (r *Registry) Get(name string) (*Matrix, error) {
	r.mu.RLock()
	m, ok := r.m[strings.ToUpper(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatrix, name)
	}
	return m, nil
}
