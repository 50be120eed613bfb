package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Spinner animates while a brew operation runs. On a non-TTY writer it
// prints the message once instead.
type Spinner struct {
	mu       sync.Mutex
	writer   io.Writer
	message  string
	deadline time.Duration
	started  time.Time
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewSpinner creates a stopped spinner writing to stdout.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		writer:  os.Stdout,
		message: message,
	}
}

// WithTimeout shows the time left before the operation's deadline.
// Call before Start.
func (s *Spinner) WithTimeout(d time.Duration) *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline = d
	return s
}

// SetWriter redirects output.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. Starting twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate(s.done)
}

func (s *Spinner) animate(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s", spinnerFrames[frame], s.label())
			s.mu.Unlock()
		}
	}
}

// label must be called with the lock held.
func (s *Spinner) label() string {
	if s.deadline <= 0 {
		return s.message
	}
	left := s.deadline - time.Since(s.started)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%s (%ds left)", s.message, int(left.Seconds()))
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.label())+4))
}

// UpdateMessage changes the text while running. On a non-TTY writer a
// changed message is printed once.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == s.message {
		return
	}
	s.message = message
	if s.running && s.done == nil {
		fmt.Fprintf(s.writer, "%s...\n", message)
	}
}

// StopWithMessage stops the spinner and prints message on its own line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
