package extend

import (
	"context"
	"testing"

	"seedalign-core/alignment"
	"seedalign-core/hits"
	"seedalign-core/index"
	"seedalign-core/matrix"
	"seedalign-core/seed"
	"seedalign-core/seq"
	"seedalign-core/stats"
)

type survivor struct {
	code seed.Code
	s, q index.Occurrence
	hsp  alignment.HSP
}

func runStage(t *testing.T, subject, query seq.Database, m *seed.Model, stage func(s, q seq.Database) Stage) []survivor {
	t.Helper()
	ctx := context.Background()
	qx, err := index.Build(ctx, query, m, index.Options{Signatures: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	sx, err := index.Build(ctx, subject, m, index.Options{Mask: qx.PresenceMask(), Signatures: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	it, err := hits.New(sx, qx)
	if err != nil {
		t.Fatal(err)
	}
	st := stage(subject, query)
	var out []survivor
	err = it.Each(ctx, func(h *hits.Hit) error {
		n := st.Filter(h)
		if n != len(h.Pairs) {
			t.Fatalf("Filter returned %d, %d pairs left", n, len(h.Pairs))
		}
		for _, p := range h.Pairs {
			out = append(out, survivor{code: h.Code, s: h.Subject[p.S], q: h.Query[p.Q], hsp: p.Segment})
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func blosum62(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.NewRegistry().Get("BLOSUM62")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestProteinExampleKeepsOneSeed(t *testing.T) {
	model, err := seed.NewProtein(4, "murphy10")
	if err != nil {
		t.Fatal(err)
	}
	cfg := XDropConfig{Matrix: blosum62(t), Model: model, XDrop: 20, MinScore: 1}
	subject := seq.FromStrings("s", "QWLGTMYEIMIFTNP")
	query := seq.FromStrings("q", "QWMGTMR")

	all := runStage(t, subject, query, model, func(s, q seq.Database) Stage {
		c := cfg
		c.AllSeeds = true
		return NewXDrop(c, s, q)
	})
	if len(all) != 3 {
		t.Fatalf("three seeds share diagonal 0, got %d", len(all))
	}

	got := runStage(t, subject, query, model, func(s, q seq.Database) Stage { return NewXDrop(cfg, s, q) })
	if len(got) != 1 {
		t.Fatalf("want exactly one surviving pair, got %d", len(got))
	}
	h := got[0].hsp
	if h.Query.Begin != 0 || h.Score <= 0 {
		t.Fatalf("hsp %+v", h)
	}
	// Q W M/L G T M score 5+11+2+6+5+5
	if h.Score != 34 || h.Query != (alignment.Range{Begin: 0, End: 6}) || h.Diagonal() != 0 {
		t.Fatalf("hsp %+v", h)
	}
	if h.Query.Len() != h.Subject.Len() {
		t.Fatal("ungapped hsp must be diagonal")
	}
}

func TestNucleotideMinimalSeed(t *testing.T) {
	model, _ := seed.NewNucleotide(4)
	cfg := XDropConfig{Matrix: matrix.NewNucleotide(1, -2), Model: model, XDrop: 5, MinScore: 6}
	subject := seq.FromStrings("s", "TTACGTACGTTT")
	query := seq.FromStrings("q", "GGACGTACGTCC")

	got := runStage(t, subject, query, model, func(s, q seq.Database) Stage { return NewXDrop(cfg, s, q) })
	if len(got) != 1 {
		t.Fatalf("want one survivor, got %d: %+v", len(got), got)
	}
	want := alignment.HSP{
		Query:   alignment.Range{Begin: 2, End: 10},
		Subject: alignment.Range{Begin: 2, End: 10},
		Score:   8,
	}
	if got[0].hsp != want {
		t.Fatalf("hsp = %+v, want %+v", got[0].hsp, want)
	}
	if got[0].q.Offset != 2 || model.Decode(got[0].code) != "ACGT" {
		t.Fatalf("reported from seed %s at %d", model.Decode(got[0].code), got[0].q.Offset)
	}

	cfg.AllSeeds = true
	all := runStage(t, subject, query, model, func(s, q seq.Database) Stage { return NewXDrop(cfg, s, q) })
	if len(all) != 5 {
		t.Fatalf("every seed of the diagonal reports without the rule, got %d", len(all))
	}
	for _, a := range all {
		if a.hsp != want {
			t.Fatalf("hsp %+v", a.hsp)
		}
	}
}

func TestXDropQueryCutoff(t *testing.T) {
	model, _ := seed.NewNucleotide(4)
	subject := seq.FromStrings("s", "TTACGTACGTTT")
	query := seq.FromStrings("q", "GGACGTACGTCC")
	for _, tc := range []struct {
		name     string
		minScore int
		cutoff   int
		want     int
	}{
		{"cutoff at hsp score", 0, 8, 1},
		{"cutoff above hsp score", 0, 9, 0},
		{"min score wins over a lower cutoff", 9, 2, 0},
	} {
		cfg := XDropConfig{
			Matrix:   matrix.NewNucleotide(1, -2),
			Model:    model,
			XDrop:    5,
			MinScore: tc.minScore,
			Info:     stats.Fixed{Threshold: tc.cutoff},
		}
		got := runStage(t, subject, query, model, func(s, q seq.Database) Stage { return NewXDrop(cfg, s, q) })
		if len(got) != tc.want {
			t.Errorf("%s: %d survivors, want %d", tc.name, len(got), tc.want)
		}
	}
}

func TestXDropStopsExtension(t *testing.T) {
	model, _ := seed.NewNucleotide(4)
	x := NewXDrop(XDropConfig{Matrix: matrix.NewNucleotide(1, -3), Model: model, XDrop: 4}, nil, nil)
	// two mismatches after the seed, then matches again
	s := []byte("ACGTTTAAACGTACGT")
	q := []byte("ACGTTTCCACGTACGT")
	code, _ := model.Code(s[:4])
	h, ok := x.Extend(s, q, 0, 0, code)
	if !ok {
		t.Fatal("rejected")
	}
	if h.Query != (alignment.Range{Begin: 0, End: 6}) || h.Score != 6 {
		t.Fatalf("hsp %+v", h)
	}

	x.cfg.XDrop = 10
	h, _ = x.Extend(s, q, 0, 0, code)
	if h.Query.End != 16 || h.Score != 8 {
		t.Fatalf("larger x-drop crosses the mismatches: %+v", h)
	}
}

func TestChainStopsOnEmpty(t *testing.T) {
	calls := 0
	count := stageFunc(func(h *hits.Hit) int {
		calls++
		return len(h.Pairs)
	})
	drop := stageFunc(func(h *hits.Hit) int {
		h.Pairs = h.Pairs[:0]
		return 0
	})
	h := &hits.Hit{Pairs: make([]hits.Pair, 3)}
	if n := (Chain{count, drop, count}).Filter(h); n != 0 || calls != 1 {
		t.Fatalf("n=%d calls=%d", n, calls)
	}
}

type stageFunc func(h *hits.Hit) int

func (f stageFunc) Filter(h *hits.Hit) int { return f(h) }
