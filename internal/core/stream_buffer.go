// ABOUTME: StreamBuffer coalesces model chunks into bounded-rate state updates
// ABOUTME: Flushes every interval or once pending text reaches a byte threshold
package core

import (
	"strings"
	"sync"
	"time"

	"github.com/harper/querychat/internal/models"
)

const (
	// DefaultFlushInterval is roughly one display frame
	DefaultFlushInterval = 16 * time.Millisecond
	// DefaultFlushBytes forces a flush for very fast streams
	DefaultFlushBytes = 4096
)

// Timer is a scheduled flush that can be stopped
type Timer interface {
	Stop() bool
}

// Scheduler schedules deferred flushes
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler uses time.AfterFunc
var RealScheduler Scheduler = realScheduler{}

// StreamObserver receives coalesced streaming state
type StreamObserver func(models.StreamingState)

// StreamBuffer accumulates chunks and publishes at most one update per flush.
// A buffer serves a single turn.
type StreamBuffer struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	interval  time.Duration
	maxBytes  int
	scheduler Scheduler
	observer  StreamObserver

	streaming  bool
	generation uint64
	content    strings.Builder
	pending    strings.Builder
	timer      Timer
}

// NewStreamBuffer creates a buffer. Zero interval or maxBytes select the defaults.
func NewStreamBuffer(interval time.Duration, maxBytes int, scheduler Scheduler, observer StreamObserver) *StreamBuffer {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if maxBytes <= 0 {
		maxBytes = DefaultFlushBytes
	}
	if scheduler == nil {
		scheduler = RealScheduler
	}
	if observer == nil {
		observer = func(models.StreamingState) {}
	}
	return &StreamBuffer{
		interval:  interval,
		maxBytes:  maxBytes,
		scheduler: scheduler,
		observer:  observer,
	}
}

// StartStreaming resets the buffer and enters the streaming state
func (b *StreamBuffer) StartStreaming() {
	b.mu.Lock()
	b.resetLocked()
	b.streaming = true
	b.publish(models.StreamingState{IsStreaming: true})
}

// AppendChunk queues text. Observers see it on the next flush, never synchronously
// per chunk unless the byte threshold is crossed.
func (b *StreamBuffer) AppendChunk(text string) {
	b.mu.Lock()
	if !b.streaming || text == "" {
		b.mu.Unlock()
		return
	}

	b.pending.WriteString(text)
	if b.pending.Len() >= b.maxBytes {
		b.stopTimerLocked()
		b.flushLocked()
		return
	}

	if b.timer == nil {
		gen := b.generation
		b.timer = b.scheduler.AfterFunc(b.interval, func() { b.scheduledFlush(gen) })
	}
	b.mu.Unlock()
}

func (b *StreamBuffer) scheduledFlush(gen uint64) {
	b.mu.Lock()
	if gen != b.generation || !b.streaming {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.flushLocked()
}

// flushLocked moves pending text into content and publishes. It releases b.mu.
func (b *StreamBuffer) flushLocked() {
	if b.pending.Len() == 0 {
		b.mu.Unlock()
		return
	}
	b.content.WriteString(b.pending.String())
	b.pending.Reset()
	b.publish(models.StreamingState{IsStreaming: true, StreamingContent: b.content.String()})
}

// publish hands state to the observer in order. It releases b.mu.
func (b *StreamBuffer) publish(state models.StreamingState) {
	b.notifyMu.Lock()
	b.mu.Unlock()
	defer b.notifyMu.Unlock()
	b.observer(state)
}

// Finalize flushes pending text and returns the complete assistant message
func (b *StreamBuffer) Finalize(messageID string) (*models.Message, error) {
	b.mu.Lock()
	if !b.streaming {
		b.mu.Unlock()
		return nil, ErrNotStreaming
	}
	b.stopTimerLocked()
	if b.pending.Len() > 0 {
		b.flushLocked()
		b.mu.Lock()
	}

	msg := &models.Message{
		ID:        messageID,
		Role:      models.RoleAssistant,
		Content:   b.content.String(),
		CreatedAt: time.Now().UTC(),
	}
	b.resetLocked()
	b.publish(models.StreamingState{})
	return msg, nil
}

// Cancel discards everything buffered and returns to idle without a message
func (b *StreamBuffer) Cancel() {
	b.mu.Lock()
	if !b.streaming {
		b.mu.Unlock()
		return
	}
	b.resetLocked()
	b.publish(models.StreamingState{})
}

// IsStreaming reports whether a stream is active
func (b *StreamBuffer) IsStreaming() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaming
}

// Snapshot returns the flushed state without forcing a flush
func (b *StreamBuffer) Snapshot() models.StreamingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.StreamingState{IsStreaming: b.streaming, StreamingContent: b.content.String()}
}

func (b *StreamBuffer) resetLocked() {
	b.stopTimerLocked()
	b.generation++
	b.streaming = false
	b.content.Reset()
	b.pending.Reset()
}

func (b *StreamBuffer) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
