// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"seedalign-core/alignment"
)

// Options are the presentation switches shared by all formats.
type Options struct {
	Header bool // tsv only
}

// Factory builds a Visitor writing to w.
type Factory func(w io.Writer, opt Options) alignment.Visitor

// Writer registry (format → factory). Formats register in init() blocks.
var Visitors = map[string]Factory{}

// Register adds a format; idempotent last-wins.
func Register(format string, f Factory) { Visitors[format] = f }

// New returns the visitor registered for format.
func New(format string, w io.Writer, opt Options) (alignment.Visitor, error) {
	f, ok := Visitors[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (no writer registered)", format)
	}
	return f(w, opt), nil
}

// Formats lists the registered formats, sorted.
func Formats() []string {
	out := make([]string, 0, len(Visitors))
	for k := range Visitors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
