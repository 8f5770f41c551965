// core/seq/sequence.go
package seq

// Direction tells which strand a database presents.
type Direction int8

const (
	Forward Direction = 1
	Reverse Direction = -1
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Sequence is one immutable record of a Database. Data holds upper-case
// residue/base letters and must not be modified after the database is built.
type Sequence struct {
	Index   uint32
	ID      string
	Comment string
	Data    []byte
	Offset  uint64 // start of Data within the concatenated database
	DB      Database
}

// Len returns the number of letters.
func (s *Sequence) Len() int { return len(s.Data) }

// Ref returns the durable descriptor of s. It does not retain Data.
func (s *Sequence) Ref() Ref {
	r := Ref{Index: s.Index, ID: s.ID, Length: len(s.Data)}
	if s.DB != nil {
		r.Database = s.DB.Name()
	}
	return r
}

// Ref is the minimal description of a sequence that outlives the database
// buffers it was taken from.
type Ref struct {
	Index    uint32 `json:"index"`
	ID       string `json:"id"`
	Length   int    `json:"length"`
	Database string `json:"database,omitempty"`
}
