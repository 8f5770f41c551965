// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"seedalign-core/engine"
	"seedalign-core/seed"
	"seedalign/internal/config"
	"seedalign/internal/writers"
)

// ErrUsage marks command-line mistakes; the caller exits with status 2.
var ErrUsage = errors.New("usage error")

// Options holds all search flags and arguments.
type Options struct {
	// Input
	Subject    []string
	Query      []string
	ConfigFile string

	// Seeding
	Kind      string
	Span      int
	Reduction string
	Strand    string

	// Scoring
	Matrix    string
	Match     int
	Mismatch  int
	GapOpen   int
	GapExtend int
	XDrop     int
	Margin    int
	Band      int

	// Extension
	MinUngappedScore  int
	Flank             int
	MaxCells          int
	NeighborhoodWidth int
	NeighborhoodBand  int
	MinSignatureLanes int
	MinDiversity      int

	// Reporting
	EValue  float64
	MaxHits int
	MaxHSPs int

	// Performance
	Workers int
	Batched bool

	// Output
	Format          string // tsv|json|jsonl
	NoHeader        bool
	NoMatchExitCode int
	Progress        bool

	// Misc
	Verbose bool
	Quiet   bool
}

// Header reports whether tabular output starts with a header row.
func (o *Options) Header() bool { return !o.NoHeader }

// applyFile copies every value set in f whose flag was not given on the
// command line.
func (o *Options) applyFile(f *config.File, changed func(name string) bool) {
	str := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}
	num := func(flag string, dst *int, v int) {
		if v != 0 && !changed(flag) {
			*dst = v
		}
	}
	s, sc := f.Search, f.Scoring
	str("kind", &o.Kind, s.Kind)
	num("span", &o.Span, s.Span)
	str("reduction", &o.Reduction, s.Reduction)
	str("strand", &o.Strand, s.Strand)
	if s.EValue != 0 && !changed("evalue") {
		o.EValue = s.EValue
	}
	num("max-hits", &o.MaxHits, s.MaxHits)
	num("max-hsps", &o.MaxHSPs, s.MaxHSPs)
	num("workers", &o.Workers, s.Workers)
	if s.Batched && !changed("batched") {
		o.Batched = true
	}

	str("matrix", &o.Matrix, sc.Matrix)
	num("match", &o.Match, sc.Match)
	num("mismatch", &o.Mismatch, sc.Mismatch)
	num("gap-open", &o.GapOpen, sc.GapOpen)
	num("gap-extend", &o.GapExtend, sc.GapExtend)
	num("xdrop", &o.XDrop, sc.XDrop)
	num("band-margin", &o.Margin, sc.Margin)
	num("dominance-band", &o.Band, sc.Band)

	x := f.Extension
	num("min-ungapped-score", &o.MinUngappedScore, x.MinUngappedScore)
	num("flank", &o.Flank, x.Flank)
	num("max-cells", &o.MaxCells, x.MaxCells)
	num("neighborhood-width", &o.NeighborhoodWidth, x.NeighborhoodWidth)
	num("neighborhood-band", &o.NeighborhoodBand, x.NeighborhoodBand)
	num("min-signature-lanes", &o.MinSignatureLanes, x.MinSignatureLanes)
	num("min-diversity", &o.MinDiversity, x.MinDiversity)

	str("format", &o.Format, f.Output.Format)
	if f.Output.Header != nil && !changed("no-header") {
		o.NoHeader = !*f.Output.Header
	}
}

// Validate applies the invariants the search command relies on.
func (o *Options) Validate() error {
	switch {
	case len(o.Subject) == 0:
		return fmt.Errorf("%w: at least one --subject file is required", ErrUsage)
	case len(o.Query) == 0:
		return fmt.Errorf("%w: at least one --query file is required", ErrUsage)
	case stdinCount(o.Subject)+stdinCount(o.Query) > 1:
		return fmt.Errorf("%w: stdin ('-') can feed only one input", ErrUsage)
	case o.Verbose && o.Quiet:
		return fmt.Errorf("%w: --verbose conflicts with --quiet", ErrUsage)
	case o.Workers < 0:
		return fmt.Errorf("%w: --workers must be ≥ 0", ErrUsage)
	case o.Span < 0:
		return fmt.Errorf("%w: --span must be ≥ 0", ErrUsage)
	case o.EValue < 0:
		return fmt.Errorf("%w: --evalue must be ≥ 0", ErrUsage)
	case o.MaxHits < 0 || o.MaxHSPs < 0:
		return fmt.Errorf("%w: --max-hits and --max-hsps must be ≥ 0", ErrUsage)
	case o.XDrop < 0 || o.Margin < 0 || o.Band < 0:
		return fmt.Errorf("%w: --xdrop, --band-margin and --dominance-band must be ≥ 0", ErrUsage)
	case o.MinUngappedScore < 0 || o.Flank < 0 || o.MaxCells < 0:
		return fmt.Errorf("%w: --min-ungapped-score, --flank and --max-cells must be ≥ 0", ErrUsage)
	case o.NeighborhoodWidth < 0 || o.NeighborhoodBand < 0 || o.MinSignatureLanes < 0 || o.MinDiversity < 0:
		return fmt.Errorf("%w: neighborhood and signature settings must be ≥ 0", ErrUsage)
	}
	if _, ok := writers.Visitors[o.Format]; !ok {
		return fmt.Errorf("%w: invalid --format %q (want %s)", ErrUsage, o.Format, strings.Join(writers.Formats(), " | "))
	}
	if _, err := seed.ParseKind(o.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if _, err := engine.ParseStrand(o.Strand); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

// EngineConfig translates the options; zero values keep the engine defaults.
func (o *Options) EngineConfig() (engine.Config, error) {
	kind, err := seed.ParseKind(o.Kind)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	strand, err := engine.ParseStrand(o.Strand)
	if err != nil {
		return engine.Config{}, err
	}
	if o.Strand == "" && kind == seed.Nucleotide {
		strand = engine.StrandBoth
	}
	return engine.Config{
		Kind:                kind,
		Span:                o.Span,
		Reduction:           o.Reduction,
		Matrix:              o.Matrix,
		Match:               o.Match,
		Mismatch:            o.Mismatch,
		GapOpen:             o.GapOpen,
		GapExtend:           o.GapExtend,
		XDrop:               o.XDrop,
		Margin:              o.Margin,
		Band:                o.Band,
		MinUngappedScore:    o.MinUngappedScore,
		Flank:               o.Flank,
		MaxCells:            o.MaxCells,
		NeighborhoodWidth:   o.NeighborhoodWidth,
		NeighborhoodBand:    o.NeighborhoodBand,
		MinSignatureLanes:   o.MinSignatureLanes,
		MinDiversity:        o.MinDiversity,
		EValue:              o.EValue,
		MaxHitsPerQuery:     o.MaxHits,
		MaxAlignmentsPerHit: o.MaxHSPs,
		Workers:             o.Workers,
		Strand:              strand,
		Batched:             o.Batched,
	}, nil
}

// LogLevel maps --verbose/--quiet to a logrus level.
func (o *Options) LogLevel() log.Level {
	switch {
	case o.Verbose:
		return log.DebugLevel
	case o.Quiet:
		return log.WarnLevel
	}
	return log.InfoLevel
}

func stdinCount(paths []string) int {
	n := 0
	for _, p := range paths {
		if p == "-" {
			n++
		}
	}
	return n
}

func hasGlobMeta(s string) bool { return strings.ContainsAny(s, "*?[") }

// expandInputs expands globs among input paths; "-" stays stdin.
func expandInputs(paths []string) ([]string, error) {
	var out []string
	for _, a := range paths {
		if a == "-" || !hasGlobMeta(a) {
			out = append(out, a)
			continue
		}
		m, err := filepath.Glob(a)
		if err != nil {
			return nil, fmt.Errorf("%w: bad glob %q: %v", ErrUsage, a, err)
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("%w: no input matched %q", ErrUsage, a)
		}
		out = append(out, m...)
	}
	return out, nil
}
