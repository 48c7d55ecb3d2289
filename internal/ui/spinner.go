package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Spinner animates a loading indicator in the terminal. It writes to stderr
// so command output stays pipeable.
type Spinner struct {
	frames []string
	out    io.Writer

	mu  sync.Mutex
	msg string

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(msg string) *Spinner {
	return newSpinner(os.Stderr, msg)
}

func newSpinner(out io.Writer, msg string) *Spinner {
	return &Spinner{
		frames: spinnerFrames,
		out:    out,
		msg:    msg,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the spinner animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			frame := StyleChain.Render(s.frames[i%len(s.frames)])
			fmt.Fprintf(s.out, "\r%s  %-60s", frame, msg)

			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-66s\r", "") // clear line
				return
			case <-ticker.C:
			}
		}
	}()
}

// Update replaces the message shown next to the spinner.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the spinner and waits for it to finish. It is safe to call
// more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}
