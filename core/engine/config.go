// core/engine/config.go
package engine

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"seedalign-core/seed"
)

// ErrConfig wraps every configuration problem found before a search starts.
var ErrConfig = errors.New("invalid search configuration")

// Strand selects which query orientations a nucleotide search covers.
type Strand int8

const (
	StrandPlus Strand = iota
	StrandMinus
	StrandBoth
)

func (s Strand) String() string {
	switch s {
	case StrandMinus:
		return "minus"
	case StrandBoth:
		return "both"
	}
	return "plus"
}

func ParseStrand(s string) (Strand, error) {
	switch strings.ToLower(s) {
	case "", "plus", "+":
		return StrandPlus, nil
	case "minus", "-":
		return StrandMinus, nil
	case "both":
		return StrandBoth, nil
	}
	return StrandPlus, fmt.Errorf("%w: unknown strand %q", ErrConfig, s)
}

// Config holds the search parameters. Zero values pick the per-kind
// defaults of withDefaults.
type Config struct {
	Kind      seed.Kind
	Span      int
	Reduction string // protein alphabet reduction
	Matrix    string // protein score matrix
	Match     int    // nucleotide reward
	Mismatch  int    // nucleotide penalty, negative

	GapOpen   int
	GapExtend int
	XDrop     int
	// MinUngappedScore is the lowest ungapped HSP score sent to the
	// gapped aligner. Zero derives it per query: the ungapped score whose
	// e-value reaches EValue.
	MinUngappedScore int
	Margin           int
	// Flank is how far past an HSP the first gapped window reaches.
	Flank int
	// MaxCells caps the band cells of one gapped window; larger pairs are
	// skipped. Zero keeps the aligner default.
	MaxCells int

	EValue              float64
	MaxHitsPerQuery     int
	MaxAlignmentsPerHit int
	// Band widens stored alignments in dominance checks.
	Band int

	Workers int
	Strand  Strand

	// protein neighborhood prefilter
	NeighborhoodWidth int
	NeighborhoodBand  int
	Batched           bool
	MinSignatureLanes int
	MinDiversity      int

	Logger log.FieldLogger
	// OnPartDone is called after each hit partition with the number of
	// finished and total partitions. It may run on any worker.
	OnPartDone func(done, total int)
}

// Defaults returns the configuration used for a kind when nothing is set.
func Defaults(kind seed.Kind) Config {
	return Config{Kind: kind}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Kind == seed.Protein {
		if c.Span == 0 {
			c.Span = 4
		}
		if c.Reduction == "" {
			c.Reduction = "murphy10"
		}
		if c.Matrix == "" {
			c.Matrix = "BLOSUM62"
		}
		if c.GapOpen == 0 && c.GapExtend == 0 {
			c.GapOpen, c.GapExtend = 11, 1
		}
		if c.NeighborhoodWidth == 0 {
			c.NeighborhoodWidth = 16
		}
		if c.NeighborhoodBand == 0 {
			c.NeighborhoodBand = 3
		}
	} else {
		if c.Span == 0 {
			c.Span = 11
		}
		if c.Match == 0 && c.Mismatch == 0 {
			c.Match, c.Mismatch = 1, -2
		}
		if c.GapOpen == 0 && c.GapExtend == 0 {
			c.GapOpen, c.GapExtend = 5, 2
		}
	}
	if c.XDrop == 0 {
		c.XDrop = 20
	}
	if c.Margin == 0 {
		c.Margin = 16
	}
	if c.Flank == 0 {
		c.Flank = 64
	}
	if c.EValue == 0 {
		c.EValue = 10
	}
	if c.Logger == nil {
		c.Logger = log.StandardLogger()
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.Kind != seed.Nucleotide && c.Kind != seed.Protein:
		return fmt.Errorf("%w: unknown sequence kind %d", ErrConfig, c.Kind)
	case c.Span < 1:
		return fmt.Errorf("%w: span must be positive, got %d", ErrConfig, c.Span)
	case c.GapOpen < 0 || c.GapExtend < 0:
		return fmt.Errorf("%w: gap costs must not be negative (%d/%d)", ErrConfig, c.GapOpen, c.GapExtend)
	case c.GapOpen+c.GapExtend == 0:
		return fmt.Errorf("%w: gaps must cost something", ErrConfig)
	case c.Kind == seed.Nucleotide && (c.Match <= 0 || c.Mismatch >= 0):
		return fmt.Errorf("%w: match must be positive and mismatch negative (%d/%d)", ErrConfig, c.Match, c.Mismatch)
	case c.XDrop < 1:
		return fmt.Errorf("%w: x-drop must be positive, got %d", ErrConfig, c.XDrop)
	case c.Margin < 0:
		return fmt.Errorf("%w: band margin must not be negative", ErrConfig)
	case c.Flank < 0 || c.MaxCells < 0 || c.MinUngappedScore < 0:
		return fmt.Errorf("%w: flank, max cells and ungapped score must not be negative", ErrConfig)
	case c.NeighborhoodWidth < 0 || c.NeighborhoodBand < 0 || c.MinSignatureLanes < 0 || c.MinDiversity < 0:
		return fmt.Errorf("%w: neighborhood settings must not be negative", ErrConfig)
	case c.EValue < 0:
		return fmt.Errorf("%w: e-value must not be negative", ErrConfig)
	case c.MaxHitsPerQuery < 0 || c.MaxAlignmentsPerHit < 0:
		return fmt.Errorf("%w: result caps must not be negative", ErrConfig)
	case c.Band < 0:
		return fmt.Errorf("%w: dominance band must not be negative", ErrConfig)
	case c.Kind == seed.Protein && c.Strand != StrandPlus:
		return fmt.Errorf("%w: strand %s needs a nucleotide search", ErrConfig, c.Strand)
	}
	return nil
}
