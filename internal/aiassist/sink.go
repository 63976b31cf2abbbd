package aiassist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"buildwise/api/internal/metrics"
	"buildwise/api/internal/store"
)

type LogWriter interface {
	InsertAILog(ctx context.Context, entry store.AILog) error
}

// LogSink persists AI request logs off the request path. Enqueue never
// blocks; entries are dropped when the queue is full.
type LogSink struct {
	writer LogWriter
	queue  chan store.AILog
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewLogSink(writer LogWriter, size int) *LogSink {
	if size <= 0 {
		size = 256
	}
	s := &LogSink{writer: writer, queue: make(chan store.AILog, size)}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *LogSink) Enqueue(entry store.AILog) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- entry:
		return true
	default:
		metrics.RecordAILogDrop()
		log.Warn().Str("mode", entry.Mode).Msg("ai log queue full, dropping entry")
		return false
	}
}

func (s *LogSink) run() {
	defer s.wg.Done()
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.writer.InsertAILog(ctx, entry); err != nil {
			metrics.RecordAILogDrop()
			log.Warn().Err(err).Str("mode", entry.Mode).Msg("ai log write failed")
		}
		cancel()
	}
}

// Close stops accepting entries and waits for queued ones to be written,
// or for ctx to expire.
func (s *LogSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
