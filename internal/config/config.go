// internal/config/config.go
//
// Package config reads and writes the TOML search configuration accepted by
// `seedalign search --config`. Zero values mean "not set": the command line
// or the engine defaults decide.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"seedalign-core/engine"
)

// ErrInvalid marks a configuration file that cannot be read or decoded.
var ErrInvalid = errors.New("invalid configuration file")

// File is the on-disk layout.
type File struct {
	Search  Search  `toml:"search"`
	Scoring   Scoring   `toml:"scoring"`
	Extension Extension `toml:"extension"`
	Output    Output    `toml:"output"`
}

type Search struct {
	Kind      string  `toml:"kind" comment:"protein | nucleotide"`
	Span      int     `toml:"span" comment:"seed length in letters"`
	Reduction string  `toml:"reduction,omitempty" comment:"protein alphabet reduction: murphy10 | dayhoff6 | none"`
	Strand    string  `toml:"strand,omitempty" comment:"nucleotide query strands: plus | minus | both"`
	EValue    float64 `toml:"evalue"`
	MaxHits   int     `toml:"max-hits" comment:"subjects kept per query, 0 = all"`
	MaxHSPs   int     `toml:"max-hsps" comment:"alignments kept per query/subject pair, 0 = all"`
	Workers   int     `toml:"workers" comment:"0 = all CPUs"`
	Batched   bool    `toml:"batched,omitempty"`
}

type Scoring struct {
	Matrix    string `toml:"matrix,omitempty"`
	Match     int    `toml:"match,omitempty"`
	Mismatch  int    `toml:"mismatch,omitempty"`
	GapOpen   int    `toml:"gap-open"`
	GapExtend int    `toml:"gap-extend"`
	XDrop     int    `toml:"xdrop"`
	Margin    int    `toml:"band-margin"`
	Band      int    `toml:"dominance-band"`
}

// Extension tunes the stages between seeding and reporting.
type Extension struct {
	MinUngappedScore  int `toml:"min-ungapped-score" comment:"lowest ungapped score sent to the gapped stage, 0 = derived per query"`
	Flank             int `toml:"flank" comment:"letters past an HSP covered by the first gapped window"`
	MaxCells          int `toml:"max-cells" comment:"band cells allowed per gapped window, 0 = aligner default"`
	NeighborhoodWidth int `toml:"neighborhood-width,omitempty" comment:"protein neighborhood letters on each side of a seed"`
	NeighborhoodBand  int `toml:"neighborhood-band,omitempty" comment:"protein neighborhood diagonal slack"`
	MinSignatureLanes int `toml:"min-signature-lanes" comment:"protein neighbor lanes that must agree, 0 = off"`
	MinDiversity      int `toml:"min-diversity" comment:"protein query seeds in regions less diverse than this are dropped, 0 = off"`
}

type Output struct {
	Format string `toml:"format,omitempty" comment:"tsv | json | jsonl"`
	Header *bool  `toml:"header,omitempty"`
}

// Load decodes path. Unknown keys are rejected so typos surface early.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return Decode(bytes.NewReader(data), path)
}

// Decode reads one File from r; name is only used in errors.
func Decode(r io.Reader, name string) (*File, error) {
	var f File
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("%w: %s:%d:%d: %s", ErrInvalid, name, row, col, de.Error())
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	return &f, nil
}

// FromEngine renders an engine configuration as a File, e.g. to print the
// effective defaults of a kind.
func FromEngine(c engine.Config) File {
	return File{
		Search: Search{
			Kind:      c.Kind.String(),
			Span:      c.Span,
			Reduction: c.Reduction,
			Strand:    c.Strand.String(),
			EValue:    c.EValue,
			MaxHits:   c.MaxHitsPerQuery,
			MaxHSPs:   c.MaxAlignmentsPerHit,
			Workers:   c.Workers,
			Batched:   c.Batched,
		},
		Scoring: Scoring{
			Matrix:    c.Matrix,
			Match:     c.Match,
			Mismatch:  c.Mismatch,
			GapOpen:   c.GapOpen,
			GapExtend: c.GapExtend,
			XDrop:     c.XDrop,
			Margin:    c.Margin,
			Band:      c.Band,
		},
		Extension: Extension{
			MinUngappedScore:  c.MinUngappedScore,
			Flank:             c.Flank,
			MaxCells:          c.MaxCells,
			NeighborhoodWidth: c.NeighborhoodWidth,
			NeighborhoodBand:  c.NeighborhoodBand,
			MinSignatureLanes: c.MinSignatureLanes,
			MinDiversity:      c.MinDiversity,
		},
	}
}

// Encode writes f as TOML.
func (f *File) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(f)
}
