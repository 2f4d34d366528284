// Package spinner draws a one-line activity indicator while a blocking step
// runs.
package spinner

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the time between two frames.
const DefaultInterval = 100 * time.Millisecond

var frames = []rune{'|', '/', '-', '\\'}

// Spinner renders "<title><frame>" on a single line until stopped.
type Spinner struct {
	writer   io.Writer
	title    string
	interval time.Duration

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once

	frameIdx int
}

// New creates a spinner writing to w. A nil writer discards output.
func New(w io.Writer, title string) *Spinner {
	return NewWithInterval(w, title, DefaultInterval)
}

// NewWithInterval is New with a custom frame interval.
func NewWithInterval(w io.Writer, title string, interval time.Duration) *Spinner {
	if w == nil {
		w = io.Discard
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Spinner{
		writer:   w,
		title:    title,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the render goroutine. Calling Start twice, or after Stop,
// has no effect.
func (s *Spinner) Start() {
	if s == nil {
		return
	}
	select {
	case <-s.stopCh:
		return
	default:
	}
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.loop()
}

// Running reports whether the render goroutine is active.
func (s *Spinner) Running() bool {
	return s != nil && s.running.Load()
}

// Stop signals the goroutine and waits for it to erase its line and exit.
// It is safe to call more than once and on a spinner that never started.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		wasRunning := s.running.Swap(false)
		close(s.stopCh)
		if wasRunning {
			<-s.doneCh
		}
	})
}

func (s *Spinner) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.render()
	for {
		select {
		case <-s.stopCh:
			s.clearLine()
			return
		case <-ticker.C:
			s.render()
		}
	}
}

func (s *Spinner) render() {
	frame := frames[s.frameIdx%len(frames)]
	s.frameIdx++
	_, _ = fmt.Fprintf(s.writer, "\r%s%c", s.title, frame)
}

func (s *Spinner) clearLine() {
	_, _ = fmt.Fprint(s.writer, "\r\033[2K")
}

// Wrap runs fn with a spinner titled title on w and stops it before returning.
func Wrap(w io.Writer, title string, fn func() error) error {
	sp := New(w, title)
	sp.Start()
	defer sp.Stop()
	return fn()
}
