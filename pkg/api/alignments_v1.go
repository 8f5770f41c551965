// pkg/api/alignments_v1.go
package api

// AlignmentV1 is the stable JSON schema for one gapped alignment.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
//
// Positions are 1-based and inclusive. On the minus strand the subject
// start is greater than the subject end, as in BLAST tabular output.
type AlignmentV1 struct {
	QueryID       string  `json:"query_id"`
	QueryLength   int     `json:"query_length"`
	SubjectID     string  `json:"subject_id"`
	SubjectLength int     `json:"subject_length"`
	Strand        string  `json:"strand"` // "plus" | "minus"
	QueryStart    int     `json:"query_start"`
	QueryEnd      int     `json:"query_end"`
	SubjectStart  int     `json:"subject_start"`
	SubjectEnd    int     `json:"subject_end"`
	Length        int     `json:"length"`
	Identity      float64 `json:"pident"`
	Mismatches    int     `json:"mismatches"`
	GapOpens      int     `json:"gap_opens"`
	Gaps          int     `json:"gaps"`
	Positives     int     `json:"positives,omitempty"`
	Score         int     `json:"score"`
	BitScore      float64 `json:"bitscore"`
	EValue        float64 `json:"evalue"`
}
