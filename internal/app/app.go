// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"seedalign-core/engine"
	"seedalign-core/fasta"
	"seedalign-core/matrix"
	"seedalign/internal/cli"
	"seedalign/internal/config"
	"seedalign/internal/writers"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitOutput   = 3
	ExitCanceled = 130
)

// runtimeError marks failures after the inputs were accepted.
type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

// outputError marks failures writing results.
type outputError struct{ err error }

func (e *outputError) Error() string { return e.err.Error() }
func (e *outputError) Unwrap() error { return e.err }

type runner struct {
	stdout *bufio.Writer
	stderr io.Writer

	// set by a finished search
	searched bool
	found    bool
	noMatch  int
}

// RunContext executes one command line and returns the process exit code.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	r := &runner{stdout: bufio.NewWriter(stdout), stderr: stderr}
	root := cli.NewRootCommand(r.search)
	root.SetArgs(argv)
	root.SetOut(r.stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(parent)
	if ferr := r.stdout.Flush(); err == nil && ferr != nil {
		err = &outputError{ferr}
	}
	code := exitCode(err)
	if code != ExitOK && code != ExitCanceled {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		if code == ExitUsage {
			_, _ = fmt.Fprintln(stderr, "run 'seedalign help' for usage")
		}
	}
	if code == ExitOK && r.searched && !r.found {
		return r.noMatch
	}
	return code
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func exitCode(err error) int {
	var oe *outputError
	var re *runtimeError
	switch {
	case err == nil, writers.IsBrokenPipe(err):
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.Is(err, cli.ErrUsage), errors.Is(err, config.ErrInvalid),
		errors.Is(err, engine.ErrConfig), errors.Is(err, fasta.ErrNoFile):
		return ExitUsage
	case errors.As(err, &oe):
		return ExitOutput
	case errors.As(err, &re):
		return ExitRuntime
	}
	// cobra's own argument errors
	return ExitUsage
}

func (r *runner) search(ctx context.Context, _ *cobra.Command, opt cli.Options) error {
	logger := log.New()
	logger.SetOutput(r.stderr)
	logger.SetLevel(opt.LogLevel())
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	vis, err := writers.New(opt.Format, r.stdout, writers.Options{Header: opt.Header()})
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	cfg, err := opt.EngineConfig()
	if err != nil {
		return err
	}
	cfg.Logger = logger
	var bar *progress
	if opt.Progress {
		bar = newProgress(r.stderr)
		cfg.OnPartDone = bar.partDone
	}
	eng, err := engine.New(cfg, matrix.NewRegistry())
	if err != nil {
		return err
	}

	subject, err := fasta.Load(ctx, dbName(opt.Subject), opt.Subject...)
	if err != nil {
		return &runtimeError{err}
	}
	query, err := fasta.Load(ctx, dbName(opt.Query), opt.Query...)
	if err != nil {
		return &runtimeError{err}
	}
	logger.WithFields(log.Fields{
		"subjects": humanize.Comma(int64(subject.Len())),
		"residues": humanize.Comma(int64(subject.TotalLength())),
		"queries":  humanize.Comma(int64(query.Len())),
	}).Info("sequences loaded")

	res, err := eng.Search(ctx, subject, query)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return &runtimeError{err}
	}
	if err := res.Accept(vis); err != nil {
		return &outputError{err}
	}
	r.searched, r.found, r.noMatch = true, res.Len() > 0, opt.NoMatchExitCode
	return nil
}

// dbName names a database after its first input file.
func dbName(paths []string) string {
	if len(paths) == 0 || paths[0] == "-" {
		return "stdin"
	}
	return filepath.Base(paths[0])
}
