package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"seedalign-core/engine"
	"seedalign/internal/config"
)

// execute runs the command tree and returns the options the search
// subcommand received, if it got that far.
func execute(t *testing.T, args ...string) (*Options, string, error) {
	t.Helper()
	var got *Options
	root := NewRootCommand(func(_ context.Context, _ *cobra.Command, o Options) error {
		got = &o
		return nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return got, out.String(), err
}

func mustSearch(t *testing.T, args ...string) Options {
	t.Helper()
	o, _, err := execute(t, append([]string{"search"}, args...)...)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if o == nil {
		t.Fatal("search handler not called")
	}
	return *o
}

func TestSearchOK(t *testing.T) {
	o := mustSearch(t, "-s", "db.fa", "--query", "q.fa", "--kind", "protein", "-e", "1e-3", "--workers", "2")
	if len(o.Subject) != 1 || o.Subject[0] != "db.fa" || o.Query[0] != "q.fa" {
		t.Errorf("bad inputs %+v", o)
	}
	if o.Kind != "protein" || o.EValue != 1e-3 || o.Workers != 2 || o.Format != "tsv" || !o.Header() {
		t.Errorf("bad parse %+v", o)
	}
}

func TestPositionalsAreSubjects(t *testing.T) {
	o := mustSearch(t, "-s", "a.fa", "-q", "q.fa", "b.fa", "c.fa")
	if want := []string{"a.fa", "b.fa", "c.fa"}; strings.Join(o.Subject, ",") != strings.Join(want, ",") {
		t.Fatalf("subjects = %v, want %v", o.Subject, want)
	}
}

func TestSearchUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"no query":        {"search", "-s", "db.fa"},
		"no subject":      {"search", "-q", "q.fa"},
		"unknown flag":    {"search", "-s", "db.fa", "-q", "q.fa", "--nope"},
		"bad format":      {"search", "-s", "db.fa", "-q", "q.fa", "--format", "xml"},
		"bad kind":        {"search", "-s", "db.fa", "-q", "q.fa", "--kind", "rna?"},
		"bad strand":      {"search", "-s", "db.fa", "-q", "q.fa", "--strand", "sideways"},
		"negative evalue": {"search", "-s", "db.fa", "-q", "q.fa", "--evalue=-1"},
		"stdin twice":     {"search", "-s", "-", "-q", "-"},
		"verbose+quiet":   {"search", "-s", "db.fa", "-q", "q.fa", "-v", "--quiet"},
		"empty glob":      {"search", "-s", filepath.Join(t.TempDir(), "*.fa"), "-q", "q.fa"},
	}
	for name, args := range cases {
		o, _, err := execute(t, args...)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("%s: want ErrUsage, got %v", name, err)
		}
		if o != nil {
			t.Errorf("%s: search handler must not run", name)
		}
	}
}

func TestConfigFileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.toml")
	toml := "[search]\nkind = \"protein\"\nspan = 5\nevalue = 1e-5\n\n[output]\nformat = \"json\"\nheader = false\n"
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	o := mustSearch(t, "-s", "db.fa", "-q", "q.fa", "--config", path, "--span", "3")
	if o.Span != 3 {
		t.Errorf("flag must win over file: span = %d", o.Span)
	}
	if o.Kind != "protein" || o.EValue != 1e-5 || o.Format != "json" || o.Header() {
		t.Errorf("file values not applied: %+v", o)
	}
}

func TestExtensionSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.toml")
	toml := "[extension]\nmin-ungapped-score = 20\nflank = 40\nmin-diversity = 3\n"
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	o := mustSearch(t, "-s", "db.fa", "-q", "q.fa", "--config", path, "--flank", "16",
		"--max-cells", "5000", "--neighborhood-width", "10", "--neighborhood-band", "2", "--min-signature-lanes", "4")
	cfg, err := o.EngineConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinUngappedScore != 20 || cfg.Flank != 16 || cfg.MaxCells != 5000 || cfg.MinDiversity != 3 {
		t.Errorf("gapped stage settings not carried: %+v", cfg)
	}
	if cfg.NeighborhoodWidth != 10 || cfg.NeighborhoodBand != 2 || cfg.MinSignatureLanes != 4 {
		t.Errorf("neighborhood settings not carried: %+v", cfg)
	}

	_, _, err = execute(t, "search", "-s", "db.fa", "-q", "q.fa", "--flank=-1")
	if !errors.Is(err, ErrUsage) {
		t.Errorf("negative flank: want ErrUsage, got %v", err)
	}
}

func TestConfigFileErrors(t *testing.T) {
	_, _, err := execute(t, "search", "-s", "db.fa", "-q", "q.fa", "--config", filepath.Join(t.TempDir(), "none.toml"))
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("want config.ErrInvalid, got %v", err)
	}
}

func TestEngineConfigStrandDefaults(t *testing.T) {
	cases := []struct {
		kind, strand string
		want         engine.Strand
	}{
		{"nucleotide", "", engine.StrandBoth},
		{"nucleotide", "plus", engine.StrandPlus},
		{"nucleotide", "minus", engine.StrandMinus},
		{"protein", "", engine.StrandPlus},
	}
	for _, c := range cases {
		o := Options{Kind: c.kind, Strand: c.strand}
		cfg, err := o.EngineConfig()
		if err != nil {
			t.Fatalf("%+v: %v", c, err)
		}
		if cfg.Strand != c.want {
			t.Errorf("%s/%q: strand = %s, want %s", c.kind, c.strand, cfg.Strand, c.want)
		}
	}
	o := mustSearch(t, "-s", "db.fa", "-q", "q.fa", "--max-hits", "7", "--max-hsps", "2", "--gap-open", "9")
	cfg, err := o.EngineConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxHitsPerQuery != 7 || cfg.MaxAlignmentsPerHit != 2 || cfg.GapOpen != 9 {
		t.Fatalf("flags not carried: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigCommandPrintsDefaults(t *testing.T) {
	_, out, err := execute(t, "config", "--kind", "protein")
	if err != nil {
		t.Fatal(err)
	}
	f, err := config.Decode(strings.NewReader(out), "stdout")
	if err != nil {
		t.Fatalf("%v\n%s", err, out)
	}
	if f.Search.Kind != "protein" || f.Search.Span != 4 || f.Scoring.Matrix != "BLOSUM62" {
		t.Fatalf("unexpected defaults %+v", f)
	}
}

func TestVersionCommand(t *testing.T) {
	_, out, err := execute(t, "version")
	if err != nil || !strings.HasPrefix(out, "seedalign version ") {
		t.Fatalf("version: err=%v out=%q", err, out)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.fa"), []byte(">a\nA\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.fa"), []byte(">b\nA\n"), 0o644)
	got, err := expandInputs([]string{"-", filepath.Join(dir, "*.fa")})
	if err != nil || len(got) != 3 || got[0] != "-" {
		t.Fatalf("expand: err=%v got=%v", err, got)
	}
}

func TestLogLevel(t *testing.T) {
	if l := (&Options{Verbose: true}).LogLevel(); l != log.DebugLevel {
		t.Errorf("verbose = %s", l)
	}
	if l := (&Options{Quiet: true}).LogLevel(); l != log.WarnLevel {
		t.Errorf("quiet = %s", l)
	}
	if l := (&Options{}).LogLevel(); l != log.InfoLevel {
		t.Errorf("default = %s", l)
	}
}
