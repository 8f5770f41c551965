// core/fasta/reader.go
package fasta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"

	bioseq "seedalign-core/seq"
)

// ErrNoFile is returned for a sequence file that does not exist.
var ErrNoFile = errors.New("sequence file not found")

// Records parses (optionally gzipped) FASTA from path and calls emit once per
// record. "-" reads stdin. Cancellation via ctx is checked between records.
func Records(ctx context.Context, path string, emit func(bioseq.Record) error) error {
	if path != "-" {
		ok, err := pathutil.Exists(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoFile, path)
		}
	}
	r, err := fastx.NewReader(seq.Unlimit, path, "")
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		id, comment := splitHeader(rec.Name)
		if err := emit(bioseq.Record{
			ID:      id,
			Comment: comment,
			Seq:     append([]byte(nil), rec.Seq.Seq...),
		}); err != nil {
			return err
		}
	}
}

// Load reads every record of paths, in order, into one in-memory database.
func Load(ctx context.Context, name string, paths ...string) (*bioseq.MemDatabase, error) {
	var recs []bioseq.Record
	for _, p := range paths {
		err := Records(ctx, p, func(r bioseq.Record) error {
			recs = append(recs, r)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return bioseq.NewMemDatabase(name, recs)
}

func splitHeader(hdr []byte) (string, string) {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i]), string(bytes.TrimSpace(hdr[i+1:]))
	}
	return string(hdr), ""
}
