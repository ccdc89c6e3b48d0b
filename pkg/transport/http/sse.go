package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/rinnsal/pkg/api"
)

// writerState tracks the state of an SSE writer.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // Headers sent, chunks may follow
	writerCompleted                    // [DONE] sent
)

// errWriterCompleted is returned for writes after the stream has ended.
var errWriterCompleted = errors.New("sse writer is completed")

// sseWriter writes a one-shot chunk stream as server-sent events:
//
//	data: {"text":"H"}\n
//	\n
//	...
//	data: [DONE]\n
//	\n
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu     sync.Mutex
	state  writerState
	chunks int
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// Open sends the SSE headers so the client sees the stream start before
// the first paced chunk. It is a no-op once streaming has begun.
func (s *sseWriter) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *sseWriter) openLocked() error {
	switch s.state {
	case writerCompleted:
		return errWriterCompleted
	case writerStreaming:
		return nil
	}

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.state = writerStreaming

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush headers: %w", err)
	}
	return nil
}

// WriteChunk sends one chunk frame and flushes it.
func (s *sseWriter) WriteChunk(c api.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	s.chunks++
	return nil
}

// Done sends the [DONE] sentinel and completes the writer.
func (s *sseWriter) Done() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", api.DoneSentinel); err != nil {
		return fmt.Errorf("failed to write [DONE]: %w", err)
	}
	s.state = writerCompleted
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush [DONE]: %w", err)
	}
	return nil
}

// Chunks returns the number of chunk frames written.
func (s *sseWriter) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}
