package banded

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seedalign-core/alignment"
	"seedalign-core/matrix"
)

func blosum62(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.NewRegistry().Get("BLOSUM62")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func full(b []byte) alignment.Range { return alignment.Range{Begin: 0, End: len(b)} }

func TestIdenticalSequences(t *testing.T) {
	a := New(blosum62(t), Options{GapOpen: 11, GapExtend: 1})
	s := []byte("MKVLATWHEYQRSTNPDGCIF")
	res, err := a.Align(s, s, full(s), full(s))
	if err != nil {
		t.Fatal(err)
	}
	if res.Identity != res.Length || res.Length != len(s) {
		t.Fatalf("identity %d, length %d", res.Identity, res.Length)
	}
	if res.Mismatches != 0 || res.QueryGaps != 0 || res.SubjectGaps != 0 || res.GapOpens != 0 {
		t.Fatalf("%+v", res)
	}
	if diff := cmp.Diff([]Op{{Match, len(s)}}, res.Ops); diff != "" {
		t.Fatal(diff)
	}
	if res.SubjectEnd != len(s) || res.QueryEnd != len(s) {
		t.Fatalf("ends %d/%d", res.SubjectEnd, res.QueryEnd)
	}
}

func TestSingleDeletion(t *testing.T) {
	a := New(blosum62(t), Options{GapOpen: 5, GapExtend: 1})
	s := []byte("MKVLATWHEYQR")
	q := []byte("MKVLAWHEYQR")
	for name, res := range map[string]Result{"dense": a.AlignDense(s, q), "rolling": a.AlignRolling(s, q)} {
		if res.Score != 22-6+41 {
			t.Fatalf("%s: score %d", name, res.Score)
		}
		if res.Cigar() != "5M1D6M" {
			t.Fatalf("%s: cigar %s", name, res.Cigar())
		}
		if res.QueryGaps != 1 || res.SubjectGaps != 0 || res.GapOpens != 1 || res.Identity != 11 || res.Length != 12 {
			t.Fatalf("%s: %+v", name, res)
		}
		if diff := cmp.Diff([]int{5, 6, 12}, res.SplitPositions()); diff != "" {
			t.Fatalf("%s: %s", name, diff)
		}
		if res.SubjectEnd != 12 || res.QueryEnd != 11 {
			t.Fatalf("%s: ends %d/%d", name, res.SubjectEnd, res.QueryEnd)
		}
	}
}

func TestFreeEndStopsAtBestCell(t *testing.T) {
	a := New(matrix.NewNucleotide(1, -3), Options{GapOpen: 5, GapExtend: 2})
	s := []byte("ACGTACGTGGGGGG")
	q := []byte("ACGTACGTCCCCCC")
	res, _ := a.Align(s, q, full(s), full(q))
	if res.Score != 8 || res.Length != 8 || res.SubjectEnd != 8 || res.QueryEnd != 8 {
		t.Fatalf("%+v", res)
	}
}

func mutate(r *rand.Rand, b []byte, letters string) []byte {
	var out []byte
	for _, c := range b {
		switch r.Intn(12) {
		case 0:
			// drop
		case 1:
			out = append(out, c, letters[r.Intn(len(letters))])
		case 2:
			out = append(out, letters[r.Intn(len(letters))])
		default:
			out = append(out, c)
		}
	}
	return out
}

func randomLetters(r *rand.Rand, n int, letters string) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return b
}

func TestDenseAndRollingAgree(t *testing.T) {
	r := rand.New(rand.NewSource(31))
	cases := []struct {
		m       *matrix.Matrix
		letters string
		opts    Options
	}{
		{blosum62(t), "ARNDCQEGHILKMFPSTWYV", Options{GapOpen: 11, GapExtend: 1, Margin: 4}},
		{blosum62(t), "ARNDCQEGHILKMFPSTWYV", Options{GapOpen: 0, GapExtend: 2, Margin: 1}},
		{matrix.NewNucleotide(1, -2), "ACGT", Options{GapOpen: 2, GapExtend: 2, Margin: 8}},
		{matrix.NewNucleotide(2, -3), "ACGTN", Options{GapOpen: 5, GapExtend: 2, Margin: 2}},
	}
	for ci, tc := range cases {
		a := New(tc.m, tc.opts)
		for round := 0; round < 60; round++ {
			s := randomLetters(r, 1+r.Intn(120), tc.letters)
			q := mutate(r, s, tc.letters)
			if len(q) == 0 {
				q = []byte{tc.letters[0]}
			}
			if r.Intn(4) == 0 {
				q = randomLetters(r, 1+r.Intn(60), tc.letters)
			}
			dense := a.AlignDense(s, q)
			rolling := a.AlignRolling(s, q)
			if diff := cmp.Diff(dense, rolling); diff != "" {
				t.Fatalf("case %d round %d: dense and rolling differ (-dense +rolling):\n%s", ci, round, diff)
			}
			checkConsistent(t, tc.m, s, q, dense)
		}
	}
}

// checkConsistent replays the runs and recomputes every count.
func checkConsistent(t *testing.T, m *matrix.Matrix, s, q []byte, res Result) {
	t.Helper()
	i, j := 0, 0
	var identity, mismatches, qGaps, sGaps, cols int
	for _, op := range res.Ops {
		for n := 0; n < op.Len; n++ {
			switch op.Kind {
			case Match:
				if s[i] == q[j] {
					identity++
				} else {
					mismatches++
				}
				i, j = i+1, j+1
			case Insert:
				sGaps++
				j++
			case Delete:
				qGaps++
				i++
			}
			cols++
		}
	}
	if i != res.SubjectEnd || j != res.QueryEnd || cols != res.Length {
		t.Fatalf("path ends at %d/%d after %d columns, result says %+v", i, j, cols, res)
	}
	if identity != res.Identity || mismatches != res.Mismatches || qGaps != res.QueryGaps || sGaps != res.SubjectGaps {
		t.Fatalf("counts differ from the path: %+v", res)
	}
	for k := 1; k < len(res.Ops); k++ {
		if res.Ops[k].Kind == res.Ops[k-1].Kind {
			t.Fatalf("runs not merged: %v", res.Ops)
		}
	}
}

func TestAlignSelectsRollingAboveDenseLimit(t *testing.T) {
	r := rand.New(rand.NewSource(37))
	s := randomLetters(r, 300, "ACGT")
	q := mutate(r, s, "ACGT")
	dense := New(matrix.NewNucleotide(1, -2), Options{GapOpen: 2, GapExtend: 1})
	rolling := New(matrix.NewNucleotide(1, -2), Options{GapOpen: 2, GapExtend: 1, DenseLimit: 1})
	a, err := dense.Align(s, q, full(s), full(q))
	if err != nil {
		t.Fatal(err)
	}
	b, err := rolling.Align(s, q, full(s), full(q))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatal(diff)
	}
	if rolling.h != nil || dense.codes != nil {
		t.Fatal("wrong formulation selected")
	}
}

func TestTooLargeAndDegenerate(t *testing.T) {
	a := New(blosum62(t), Options{GapOpen: 11, GapExtend: 1, MaxCells: 100})
	s := []byte("MKVLATWHEYQRSTNPDGCIF")
	if _, err := a.Align(s, s, full(s), full(s)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v", err)
	}
	res, err := a.Align(s, s, alignment.Range{Begin: 3, End: 3}, full(s))
	if err != nil || res.Length != 0 || res.Ops != nil {
		t.Fatalf("zero-length range: %+v %v", res, err)
	}
	if _, err := a.Align(s, s, alignment.Range{Begin: 0, End: 40}, full(s)); err == nil {
		t.Fatal("range past the sequence end")
	}
}

func TestSubRanges(t *testing.T) {
	a := New(blosum62(t), Options{GapOpen: 11, GapExtend: 1})
	s := []byte("GGGGMKVLATWHEY")
	q := []byte("PPMKVLATWHEYPP")
	res, err := a.Align(s, q, alignment.Range{Begin: 4, End: len(s)}, alignment.Range{Begin: 2, End: 12})
	if err != nil {
		t.Fatal(err)
	}
	if res.Cigar() != "10M" || res.Identity != 10 {
		t.Fatalf("%+v", res)
	}
}
