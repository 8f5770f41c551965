// internal/app/progress.go
package app

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress shows one bar per strand pass over the hit partitions. The
// engine reports partitions from any worker, so every call is locked.
type progress struct {
	mu        sync.Mutex
	p         *mpb.Progress
	bar       *mpb.Bar
	pass      int
	remaining int
	last      time.Time
}

func newProgress(w io.Writer) *progress {
	return &progress{p: mpb.New(mpb.WithWidth(40), mpb.WithOutput(w))}
}

func (pr *progress) partDone(_, total int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.remaining == 0 {
		pr.pass++
		name := fmt.Sprintf("pass %d, partitions: ", pr.pass)
		pr.bar = pr.p.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len(name), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
		pr.remaining = total
		pr.last = time.Now()
	}
	now := time.Now()
	pr.bar.EwmaIncrBy(1, now.Sub(pr.last))
	pr.last = now
	pr.remaining--
}

// finish waits for the bars to render; an unfinished bar is aborted so
// Wait cannot block after a failed search.
func (pr *progress) finish() {
	pr.mu.Lock()
	if pr.bar != nil && pr.remaining > 0 {
		pr.bar.Abort(false)
	}
	pr.mu.Unlock()
	pr.p.Wait()
}
