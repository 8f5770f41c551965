// Package dispatch runs batches of independent commands on a bounded set of
// workers and joins on completion.
package dispatch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Command is one unit of work owning a disjoint partition of the input.
// Commands check ctx between batches; a call already in progress is allowed
// to finish.
type Command func(ctx context.Context) error

// Dispatcher is the contract the search core needs from a worker pool:
// run every command, return once all are done, report the first error.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmds []Command) error
	Workers() int
}

// Parallel runs commands on at most N goroutines. The first failing command
// cancels the context seen by the others.
type Parallel struct {
	n int
}

// NewParallel returns a dispatcher with n workers; n <= 0 means GOMAXPROCS.
func NewParallel(n int) *Parallel {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Parallel{n: n}
}

func (p *Parallel) Workers() int { return p.n }

func (p *Parallel) Dispatch(ctx context.Context, cmds []Command) error {
	if len(cmds) == 0 {
		return ctx.Err()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.n)
	for _, c := range cmds {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return c(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Serial runs commands one after the other on the calling goroutine.
type Serial struct{}

func (Serial) Workers() int { return 1 }

func (Serial) Dispatch(ctx context.Context, cmds []Command) error {
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Ranges cuts [0, n) into at most parts contiguous [lo, hi) ranges of
// near-equal size. Empty ranges are never returned.
func Ranges(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([][2]int, 0, parts)
	for i := 0; i < parts; i++ {
		lo := i * n / parts
		hi := (i + 1) * n / parts
		if hi > lo {
			out = append(out, [2]int{lo, hi})
		}
	}
	return out
}

// WeightedRanges cuts [0, len(weights)) into at most parts contiguous ranges
// of near-equal total weight.
func WeightedRanges(weights []uint64, parts int) [][2]int {
	n := len(weights)
	if n == 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	var total uint64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return Ranges(n, parts)
	}
	out := make([][2]int, 0, parts)
	lo := 0
	var acc uint64
	for i, w := range weights {
		acc += w
		target := total * uint64(len(out)+1) / uint64(parts)
		if acc >= target && len(out) < parts-1 {
			out = append(out, [2]int{lo, i + 1})
			lo = i + 1
		}
	}
	if lo < n {
		out = append(out, [2]int{lo, n})
	}
	return out
}
