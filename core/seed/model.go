// Package seed defines how fixed-length windows of a sequence become
// integer seed codes: the span, the alphabet and its reduction.
package seed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shenwei356/kmers"
)

// Kind is the molecule type a Model reads.
type Kind int8

const (
	Nucleotide Kind = iota
	Protein
)

func (k Kind) String() string {
	if k == Protein {
		return "protein"
	}
	return "nucleotide"
}

// ParseKind accepts "nucleotide"/"dna"/"nt" and "protein"/"aa".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "nucleotide", "dna", "nt", "n":
		return Nucleotide, nil
	case "protein", "aa", "p":
		return Protein, nil
	}
	return 0, fmt.Errorf("unknown sequence kind %q", s)
}

// Code is a seed encoded big-endian in base AlphabetSize.
type Code uint32

// MaxCodeCount bounds alphabet^span so per-code tables stay allocatable.
const MaxCodeCount = 1 << 26

var (
	ErrSpanTooLarge     = errors.New("seed span too large for alphabet")
	ErrUnknownReduction = errors.New("unknown alphabet reduction")
)

// CodeError reports a code outside [0, CodeCount). It is raised as a panic:
// it means an index and its caller disagree about the model.
type CodeError struct {
	Code  Code
	Count int
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("seed code %d outside model range [0,%d)", e.Code, e.Count)
}

// Model is immutable after construction and safe for concurrent use.
type Model struct {
	kind      Kind
	span      int
	size      int
	reduction string
	letter    [256]int8 // -1 = ambiguous
	count     int
	high      int // size^(span-1)
	groups    []string
}

// NewNucleotide returns an A/C/G/T model. Any other letter (N, IUPAC codes)
// makes a window ambiguous.
func NewNucleotide(span int) (*Model, error) {
	if span > 32 {
		return nil, fmt.Errorf("%w: span %d > 32", ErrSpanTooLarge, span)
	}
	return newModel(Nucleotide, span, "", []string{"A", "C", "G", "T"})
}

// NewProtein returns an amino-acid model. reduction is "" (20 letters),
// "murphy10" or "dayhoff6".
func NewProtein(span int, reduction string) (*Model, error) {
	g, ok := reductions[strings.ToLower(reduction)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReduction, reduction)
	}
	return newModel(Protein, span, strings.ToLower(reduction), g)
}

// Reductions lists the accepted protein reduction names.
func Reductions() []string {
	return []string{"", "murphy10", "dayhoff6"}
}

var reductions = map[string][]string{
	"":         {"A", "C", "D", "E", "F", "G", "H", "I", "K", "L", "M", "N", "P", "Q", "R", "S", "T", "V", "W", "Y"},
	"none":     {"A", "C", "D", "E", "F", "G", "H", "I", "K", "L", "M", "N", "P", "Q", "R", "S", "T", "V", "W", "Y"},
	"murphy10": {"LVIM", "C", "A", "G", "ST", "P", "FYW", "EDNQ", "KR", "H"},
	"dayhoff6": {"AGPST", "C", "DENQ", "HKR", "ILMV", "FWY"},
}

func newModel(kind Kind, span int, reduction string, groups []string) (*Model, error) {
	if span < 1 {
		return nil, fmt.Errorf("seed span must be >= 1, got %d", span)
	}
	m := &Model{kind: kind, span: span, size: len(groups), reduction: reduction, groups: groups}
	for i := range m.letter {
		m.letter[i] = -1
	}
	for code, g := range groups {
		for i := 0; i < len(g); i++ {
			m.letter[g[i]] = int8(code)
			m.letter[g[i]+'a'-'A'] = int8(code)
		}
	}
	count := 1
	for i := 0; i < span; i++ {
		if count > MaxCodeCount/m.size {
			return nil, fmt.Errorf("%w: %d^%d exceeds %d", ErrSpanTooLarge, m.size, span, MaxCodeCount)
		}
		count *= m.size
	}
	m.count = count
	m.high = count / m.size
	return m, nil
}

func (m *Model) Kind() Kind { return m.kind }
func (m *Model) Span() int { return m.span }
func (m *Model) AlphabetSize() int { return m.size }
func (m *Model) CodeCount() int { return m.count }
func (m *Model) Reduction() string { return m.reduction }

// Letter returns the reduced code of b, or false if b is ambiguous.
func (m *Model) Letter(b byte) (int, bool) {
	c := m.letter[b]
	return int(c), c >= 0
}

// Equal reports whether two models produce the same codes.
func (m *Model) Equal(o *Model) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	return m.kind == o.kind && m.span == o.span && m.letter == o.letter
}

func (m *Model) String() string {
	if m.reduction != "" {
		return fmt.Sprintf("%s/%s/k%d", m.kind, m.reduction, m.span)
	}
	return fmt.Sprintf("%s/k%d", m.kind, m.span)
}

// Code encodes window, which must be exactly Span letters long. It reports
// false if any letter is ambiguous.
func (m *Model) Code(window []byte) (Code, bool) {
	if len(window) != m.span {
		return 0, false
	}
	if m.kind == Nucleotide {
		for _, b := range window {
			if m.letter[b] < 0 {
				return 0, false
			}
		}
		k, err := kmers.Encode(window)
		return Code(k), err == nil
	}
	var c int
	for _, b := range window {
		l := m.letter[b]
		if l < 0 {
			return 0, false
		}
		c = c*m.size + int(l)
	}
	return Code(c), true
}

// Scan calls fn for every window of data without ambiguous letters, in
// offset order. Sequences shorter than Span produce no calls.
func (m *Model) Scan(data []byte, fn func(offset int, c Code)) {
	if m.kind == Nucleotide {
		m.scanBases(data, fn)
		return
	}
	valid := 0
	c := 0
	for i, b := range data {
		l := m.letter[b]
		if l < 0 {
			valid = 0
			c = 0
			continue
		}
		c = (c%m.high)*m.size + int(l)
		valid++
		if valid >= m.span {
			fn(i-m.span+1, Code(c))
		}
	}
}

// scanBases rolls 2-bit k-mer codes. kmers folds IUPAC letters onto a base,
// so ambiguous letters are cut out here before they reach it.
func (m *Model) scanBases(data []byte, fn func(offset int, c Code)) {
	k := m.span
	valid := 0
	var code uint64
	for i, b := range data {
		if m.letter[b] < 0 {
			valid = 0
			continue
		}
		valid++
		if valid < k {
			continue
		}
		start := i - k + 1
		var err error
		if valid == k {
			code, err = kmers.Encode(data[start : i+1])
		} else {
			code, err = kmers.MustEncodeFromFormerKmer(data[start:i+1], data[start-1:i], code)
		}
		if err != nil {
			valid = 0
			continue
		}
		fn(start, Code(code))
	}
}

// ReverseComplement returns the code of the reverse complement window.
// It panics for protein models.
func (m *Model) ReverseComplement(c Code) Code {
	if m.kind != Nucleotide {
		panic("seed: reverse complement of a protein code")
	}
	m.Check(c)
	return Code(kmers.MustRevComp(uint64(c), m.span))
}

// Check panics with a *CodeError if c is not a code of this model.
func (m *Model) Check(c Code) {
	if int(c) >= m.count {
		panic(&CodeError{Code: c, Count: m.count})
	}
}

// Decode renders c using the first letter of each reduced group.
func (m *Model) Decode(c Code) string {
	m.Check(c)
	out := make([]byte, m.span)
	v := int(c)
	for i := m.span - 1; i >= 0; i-- {
		out[i] = m.groups[v%m.size][0]
		v /= m.size
	}
	return string(out)
}
