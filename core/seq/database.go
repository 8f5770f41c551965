// core/seq/database.go
package seq

import (
	"bytes"
	"fmt"
)

// Database is the provider contract the search core relies on: O(1) lookup
// by index, the total letter count and the strand it presents.
type Database interface {
	Name() string
	Len() int
	Sequence(i int) *Sequence
	TotalLength() uint64
	Direction() Direction
}

// Record is a raw (id, comment, letters) triple as read from a file.
type Record struct {
	ID      string
	Comment string
	Seq     []byte
}

// MemDatabase keeps every sequence in memory.
type MemDatabase struct {
	name  string
	seqs  []*Sequence
	total uint64
	dir   Direction
}

// NewMemDatabase builds a forward database from records. Letters are
// upper-cased into private storage.
func NewMemDatabase(name string, records []Record) (*MemDatabase, error) {
	if uint64(len(records)) > 1<<32-1 {
		return nil, fmt.Errorf("database %q: too many sequences (%d)", name, len(records))
	}
	db := &MemDatabase{name: name, seqs: make([]*Sequence, len(records)), dir: Forward}
	for i, r := range records {
		db.seqs[i] = &Sequence{
			Index:   uint32(i),
			ID:      r.ID,
			Comment: r.Comment,
			Data:    bytes.ToUpper(r.Seq),
			Offset:  db.total,
			DB:      db,
		}
		db.total += uint64(len(r.Seq))
	}
	return db, nil
}

// FromStrings is a convenience for tests and small fixtures; ids are s0, s1, ...
func FromStrings(name string, letters ...string) *MemDatabase {
	recs := make([]Record, len(letters))
	for i, l := range letters {
		recs[i] = Record{ID: fmt.Sprintf("s%d", i), Seq: []byte(l)}
	}
	db, _ := NewMemDatabase(name, recs)
	return db
}

func (db *MemDatabase) Name() string { return db.name }
func (db *MemDatabase) Len() int { return len(db.seqs) }
func (db *MemDatabase) Sequence(i int) *Sequence { return db.seqs[i] }
func (db *MemDatabase) TotalLength() uint64 { return db.total }
func (db *MemDatabase) Direction() Direction { return db.dir }

// ReverseComplement returns a Reverse view of db. Sequence indices, ids and
// database offsets are preserved; only the letters are reverse-complemented.
func ReverseComplement(db Database) *MemDatabase {
	out := &MemDatabase{name: db.Name(), seqs: make([]*Sequence, db.Len()), dir: -db.Direction()}
	for i := range out.seqs {
		s := db.Sequence(i)
		out.seqs[i] = &Sequence{
			Index:   s.Index,
			ID:      s.ID,
			Comment: s.Comment,
			Data:    RevComp(s.Data),
			Offset:  s.Offset,
			DB:      out,
		}
	}
	out.total = db.TotalLength()
	return out
}
