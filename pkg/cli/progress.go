package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultProgressInterval is the redraw interval of a Progress.
const DefaultProgressInterval = time.Second

// Progress reports elapsed time of a blocking operation against a limit,
// redrawing one line until Stop.
type Progress struct {
	w        io.Writer
	label    string
	limit    time.Duration
	interval time.Duration
	now      func() time.Time

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewProgress creates an idle progress line. A zero limit omits the limit
// from the output.
func NewProgress(w io.Writer, label string, limit time.Duration) *Progress {
	return &Progress{
		w:        w,
		label:    label,
		limit:    limit,
		interval: DefaultProgressInterval,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start draws the line and keeps it current in the background.
func (p *Progress) Start() {
	start := p.now()
	p.render(0)

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				p.render(p.now().Sub(start))
				fmt.Fprintln(p.w)
				return
			case <-ticker.C:
				p.render(p.now().Sub(start))
			}
		}
	}()
}

// Stop ends the line. It is safe to call more than once, and must follow
// Start.
func (p *Progress) Stop() {
	p.once.Do(func() {
		close(p.stop)
		<-p.done
	})
}

func (p *Progress) render(elapsed time.Duration) {
	elapsed = elapsed.Truncate(time.Second)
	if p.limit > 0 {
		fmt.Fprintf(p.w, "\r%s %s / %s", p.label, elapsed, p.limit)
		return
	}
	fmt.Fprintf(p.w, "\r%s %s", p.label, elapsed)
}
