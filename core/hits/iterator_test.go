package hits

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seedalign-core/dispatch"
	"seedalign-core/index"
	"seedalign-core/seed"
	"seedalign-core/seq"
)

type flatPair struct {
	Code seed.Code
	S, Q index.Occurrence
}

func randomDB(r *rand.Rand, name string, n, maxLen int, letters string) *seq.MemDatabase {
	var out []string
	for i := 0; i < n; i++ {
		b := make([]byte, r.Intn(maxLen))
		for j := range b {
			b[j] = letters[r.Intn(len(letters))]
		}
		out = append(out, string(b))
	}
	return seq.FromStrings(name, out...)
}

func build(t *testing.T, db seq.Database, m *seed.Model, mask *index.Mask) *index.Index {
	t.Helper()
	x, err := index.Build(context.Background(), db, m, index.Options{Mask: mask}, dispatch.NewParallel(3))
	if err != nil {
		t.Fatal(err)
	}
	return x
}

func collect(t *testing.T, it *Iterator) []flatPair {
	t.Helper()
	var out []flatPair
	err := it.Each(context.Background(), func(h *Hit) error {
		if len(h.Pairs) > BatchSize {
			t.Fatalf("batch of %d pairs", len(h.Pairs))
		}
		for _, p := range h.Pairs {
			out = append(out, flatPair{Code: h.Code, S: h.Subject[p.S], Q: h.Query[p.Q]})
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func fixture(t *testing.T, seedValue int64) *Iterator {
	t.Helper()
	r := rand.New(rand.NewSource(seedValue))
	m, _ := seed.NewNucleotide(3)
	// a skewed composition makes some codes much heavier than others
	subject := randomDB(r, "s", 30, 200, "AAAAAAACGT")
	query := randomDB(r, "q", 10, 120, "AAAACGTN")
	qx := build(t, query, m, nil)
	sx := build(t, subject, m, qx.PresenceMask())
	it, err := New(sx, qx)
	if err != nil {
		t.Fatal(err)
	}
	return it
}

func TestPairCountMatchesProducts(t *testing.T) {
	it := fixture(t, 1)
	var want uint64
	for c := 0; c < it.Subject().Model().CodeCount(); c++ {
		code := seed.Code(c)
		want += uint64(it.Subject().Count(code)) * uint64(it.Query().Count(code))
	}
	if got := it.PairCount(); got != want {
		t.Fatalf("PairCount = %d, want %d", got, want)
	}
	if got := uint64(len(collect(t, it))); got != want {
		t.Fatalf("Each produced %d pairs, want %d", got, want)
	}
	if want <= BatchSize {
		t.Fatalf("fixture too small to exercise batching: %d", want)
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	a := collect(t, fixture(t, 2))
	b := collect(t, fixture(t, 2))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("two runs differ:\n%s", diff)
	}
	for i := 1; i < len(a); i++ {
		if a[i].Code < a[i-1].Code {
			t.Fatalf("codes not ascending at %d", i)
		}
	}
}

func TestSplitUnionIsTheSameMultiset(t *testing.T) {
	it := fixture(t, 3)
	whole := collect(t, it)
	lo, hi := it.Range()
	for n := 1; n <= 7; n++ {
		parts := it.Split(n)
		if len(parts) == 0 || len(parts) > n {
			t.Fatalf("n=%d: %d parts", n, len(parts))
		}
		next := lo
		var union []flatPair
		var sum uint64
		for _, p := range parts {
			plo, phi := p.Range()
			if plo != next || phi <= plo {
				t.Fatalf("n=%d: range [%d,%d) does not continue at %d", n, plo, phi, next)
			}
			next = phi
			union = append(union, collect(t, p)...)
			sum += p.PairCount()
		}
		if next != hi {
			t.Fatalf("n=%d: ranges end at %d, want %d", n, next, hi)
		}
		if sum != it.PairCount() {
			t.Fatalf("n=%d: pair counts %d != %d", n, sum, it.PairCount())
		}
		// parts are contiguous and ordered, so the concatenation keeps the order
		if diff := cmp.Diff(whole, union); diff != "" {
			t.Fatalf("n=%d: union differs:\n%s", n, diff)
		}
	}
}

func TestSplitIsolatesHeavyCode(t *testing.T) {
	m, _ := seed.NewNucleotide(2)
	subject := seq.FromStrings("s", "AAAAAAAAAAAAAAAAAAAA", "ACGTCAGTTGCA")
	query := seq.FromStrings("q", "AAAAAAAAAA", "CGTGCATCAG")
	qx := build(t, query, m, nil)
	sx := build(t, subject, m, nil)
	it, _ := New(sx, qx)
	aa, _ := m.Code([]byte("AA"))
	parts := it.Split(3)
	found := false
	for _, p := range parts {
		lo, hi := p.Range()
		if lo == int(aa) && hi == int(aa)+1 {
			found = true
		}
	}
	if !found {
		var rs [][2]int
		for _, p := range parts {
			lo, hi := p.Range()
			rs = append(rs, [2]int{lo, hi})
		}
		t.Fatalf("heavy code AA not isolated: %v", rs)
	}
}

func TestModelMismatch(t *testing.T) {
	m3, _ := seed.NewNucleotide(3)
	m4, _ := seed.NewNucleotide(4)
	db := seq.FromStrings("db", "ACGTACGT")
	if _, err := New(build(t, db, m3, nil), build(t, db, m4, nil)); !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestEachStopsOnError(t *testing.T) {
	it := fixture(t, 4)
	stop := errors.New("stop")
	calls := 0
	err := it.Each(context.Background(), func(*Hit) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := it.Each(ctx, func(*Hit) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled: %v", err)
	}
}
