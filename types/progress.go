package types

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

type experimentProgress struct {
	total  int
	done   int
	failed int
}

// ProgressPrinter keeps one live terminal line per experiment
type ProgressPrinter struct {
	mu       sync.Mutex
	writer   *uilive.Writer
	progress map[string]*experimentProgress
	order    []string
	padding  int

	frequency time.Duration
	cancel    context.CancelFunc
	stopped   chan struct{}
	stopOnce  sync.Once
}

func NewProgressPrinter(out io.Writer, frequency time.Duration) *ProgressPrinter {
	writer := uilive.New()
	writer.Out = out
	return &ProgressPrinter{
		writer:    writer,
		progress:  make(map[string]*experimentProgress),
		order:     make([]string, 0),
		frequency: frequency,
	}
}

// Track starts reporting the progress of an experiment
func (p *ProgressPrinter) Track(name string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.progress[name]; !ok {
		p.order = append(p.order, name)
	}
	p.progress[name] = &experimentProgress{total: total}
	if len(name) > p.padding {
		p.padding = len(name)
	}
}

// Done records a finished repetition of the experiment
func (p *ProgressPrinter) Done(name string, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prog, ok := p.progress[name]
	if !ok {
		return
	}
	prog.done++
	if failed {
		prog.failed++
	}
}

func (p *ProgressPrinter) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := make([]string, len(p.order))
	for i, name := range p.order {
		prog := p.progress[name]
		pct := 0.0
		if prog.total > 0 {
			pct = float64(prog.done) / float64(prog.total) * 100
		}
		lines[i] = fmt.Sprintf("Exp:%*s, Reps:%*d/%d [%5.1f%%], Failed:%d",
			p.padding, name, len(fmt.Sprint(prog.total)), prog.done, prog.total, pct, prog.failed)
	}
	return strings.Join(lines, "\n")
}

func (p *ProgressPrinter) print() {
	s := p.String()
	if s == "" {
		return
	}
	fmt.Fprintln(p.writer, s)
	p.writer.Flush()
}

// Start refreshing the terminal every frequency until Stop or ctx is done
func (p *ProgressPrinter) Start(ctx context.Context) {
	printerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = make(chan struct{})
	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-printerCtx.Done():
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

// Stop refreshing and print the final state once
func (p *ProgressPrinter) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.stopped
		}
		p.print()
	})
}
