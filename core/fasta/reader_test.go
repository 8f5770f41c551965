package fasta

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	bioseq "seedalign-core/seq"
)

const plain = `>seq1 first record
ACGT
acgt
>seq2
NNnn
`

// writeGz creates a gzipped FASTA file with provided data, returns the file path.
func writeGz(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "test.fa.gz")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("tmp: %v", err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(data)); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := fh.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestLoadGzip(t *testing.T) {
	db, err := Load(context.Background(), "db", writeGz(t, plain))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if db.Len() != 2 {
		t.Fatalf("want 2 records, got %d", db.Len())
	}
	s := db.Sequence(0)
	if s.ID != "seq1" || s.Comment != "first record" || string(s.Data) != "ACGTACGT" {
		t.Fatalf("unexpected first record: %+v", s)
	}
	if got := string(db.Sequence(1).Data); got != "NNNN" {
		t.Fatalf("second record = %q", got)
	}
}

func TestRecordsPlainInOrder(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "x.fa")
	if err := os.WriteFile(fn, []byte(plain), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []bioseq.Record
	err := Records(context.Background(), fn, func(r bioseq.Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	want := []bioseq.Record{
		{ID: "seq1", Comment: "first record", Seq: []byte("ACGTacgt")},
		{ID: "seq2", Seq: []byte("NNnn")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
}

func TestRecordsCanceled(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "x.fa")
	if err := os.WriteFile(fn, []byte(">s\nACGT\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	err := Records(ctx, fn, func(bioseq.Record) error { n++; return nil })
	if err == nil || n != 0 {
		t.Fatalf("expected cancellation before any record, err=%v n=%d", err, n)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(context.Background(), "db", filepath.Join(t.TempDir(), "nope.fa")); !errors.Is(err, ErrNoFile) {
		t.Fatalf("err = %v", err)
	}
}
