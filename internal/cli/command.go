// internal/cli/command.go
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"seedalign-core/engine"
	"seedalign-core/seed"
	"seedalign/internal/config"
	"seedalign/internal/version"
	"seedalign/internal/writers"
)

// SearchFunc runs one validated search.
type SearchFunc func(ctx context.Context, cmd *cobra.Command, opt Options) error

// NewRootCommand builds the seedalign command tree. search is called by the
// search subcommand once its options are merged and validated.
func NewRootCommand(search SearchFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "seedalign",
		Short:         "seed-and-extend local alignment search",
		Long:          "seedalign: seed-and-extend local alignment of protein or nucleotide queries against a subject database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})
	root.AddCommand(newSearchCommand(search), newConfigCommand(), newVersionCommand())
	return root
}

func newSearchCommand(search SearchFunc) *cobra.Command {
	var opt Options
	cmd := &cobra.Command{
		Use:   "search --subject db.fa --query q.fa [flags] [more-subject.fa ...]",
		Short: "align queries against a subject database",
		Long: `Align every query sequence against a subject database.

Inputs are (gzipped) FASTA files or '-' for stdin. Extra positional
arguments are subject files; globs are expanded.

Output formats:
  tsv    12 BLAST tabular columns, 1-based:
         ` + strings.ReplaceAll(writers.TSVHeader, "\t", " ") + `
  json   one array of alignment objects (v1 schema)
  jsonl  one alignment object per line (v1 schema)
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opt.ConfigFile != "" {
				f, err := config.Load(opt.ConfigFile)
				if err != nil {
					return err
				}
				opt.applyFile(f, cmd.Flags().Changed)
			}
			var err error
			if opt.Subject, err = expandInputs(append(opt.Subject, args...)); err != nil {
				return err
			}
			if opt.Query, err = expandInputs(opt.Query); err != nil {
				return err
			}
			if err := opt.Validate(); err != nil {
				return err
			}
			return search(cmd.Context(), cmd, opt)
		},
	}

	f := cmd.Flags()
	// Input
	f.StringArrayVarP(&opt.Subject, "subject", "s", nil, "subject (database) FASTA file(s), repeatable or '-' [*]")
	f.StringArrayVarP(&opt.Query, "query", "q", nil, "query FASTA file(s), repeatable or '-' [*]")
	f.StringVarP(&opt.ConfigFile, "config", "c", "", "TOML search configuration; flags given on the command line win")

	// Seeding
	f.StringVarP(&opt.Kind, "kind", "k", "nucleotide", "sequence kind: nucleotide | protein")
	f.IntVar(&opt.Span, "span", 0, "seed span (0 = 11 for nucleotide, 4 for protein)")
	f.StringVar(&opt.Reduction, "reduction", "", "protein alphabet reduction: murphy10 | dayhoff6 | none [murphy10]")
	f.StringVar(&opt.Strand, "strand", "", "nucleotide query strands: plus | minus | both [both]")

	// Scoring
	f.StringVar(&opt.Matrix, "matrix", "", "protein score matrix [BLOSUM62]")
	f.IntVar(&opt.Match, "match", 0, "nucleotide match reward [1]")
	f.IntVar(&opt.Mismatch, "mismatch", 0, "nucleotide mismatch penalty, negative [-2]")
	f.IntVar(&opt.GapOpen, "gap-open", 0, "gap open cost (0 = default for kind)")
	f.IntVar(&opt.GapExtend, "gap-extend", 0, "gap extension cost (0 = default for kind)")
	f.IntVar(&opt.XDrop, "xdrop", 0, "ungapped X-drop [20]")
	f.IntVar(&opt.Margin, "band-margin", 0, "extra diagonals on each side of the DP band [16]")
	f.IntVar(&opt.Band, "dominance-band", 0, "slack when testing whether a stored alignment contains a new one [0]")

	// Extension
	f.IntVar(&opt.MinUngappedScore, "min-ungapped-score", 0, "lowest ungapped score sent to the gapped stage (0 = derived from --evalue per query)")
	f.IntVar(&opt.Flank, "flank", 0, "letters past an HSP covered by the first gapped window [64]")
	f.IntVar(&opt.MaxCells, "max-cells", 0, "band cells allowed per gapped window (0 = aligner default)")
	f.IntVar(&opt.NeighborhoodWidth, "neighborhood-width", 0, "protein neighborhood letters on each side of a seed [16]")
	f.IntVar(&opt.NeighborhoodBand, "neighborhood-band", 0, "protein neighborhood diagonal slack [3]")
	f.IntVar(&opt.MinSignatureLanes, "min-signature-lanes", 0, "protein neighbor lanes that must agree (0 = off)")
	f.IntVar(&opt.MinDiversity, "min-diversity", 0, "drop protein query seeds less diverse than this (0 = off)")

	// Reporting
	f.Float64VarP(&opt.EValue, "evalue", "e", 0, "maximum e-value [10]")
	f.IntVar(&opt.MaxHits, "max-hits", 0, "subjects kept per query (0 = all)")
	f.IntVar(&opt.MaxHSPs, "max-hsps", 0, "alignments kept per query/subject pair (0 = all)")

	// Performance
	f.IntVarP(&opt.Workers, "workers", "j", 0, "worker goroutines (0 = all CPUs)")
	f.BoolVar(&opt.Batched, "batched", false, "score protein neighborhoods 8 pairs at a time")

	// Output
	f.StringVarP(&opt.Format, "format", "f", "tsv", "output format: "+strings.Join(writers.Formats(), " | "))
	f.BoolVar(&opt.NoHeader, "no-header", false, "suppress the tsv header line")
	f.IntVar(&opt.NoMatchExitCode, "no-match-exit-code", 0, "exit code when no alignment is reported")
	f.BoolVarP(&opt.Progress, "progress", "p", false, "show a progress bar on stderr")

	// Misc
	f.BoolVarP(&opt.Verbose, "verbose", "v", false, "debug logging")
	f.BoolVar(&opt.Quiet, "quiet", false, "warnings and errors only")
	return cmd
}

func newConfigCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the default search configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := seed.ParseKind(kind)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrUsage, err)
			}
			d := engine.Defaults(k)
			if k == seed.Nucleotide {
				d.Strand = engine.StrandBoth
			}
			f := config.FromEngine(d)
			f.Output.Format = "tsv"
			return f.Encode(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "nucleotide", "sequence kind: nucleotide | protein")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "seedalign version %s\n", version.Version)
			return err
		},
	}
}
