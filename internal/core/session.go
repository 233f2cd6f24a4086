// ABOUTME: Session is the explicit conversation store shared by the orchestrator and rehydrator
// ABOUTME: Every mutation from a turn is checked against the selection epoch
package core

import (
	"sync"

	"github.com/harper/querychat/internal/models"
)

// Selection identifies the active project and conversation. Epoch changes
// whenever either changes, so late events from an abandoned turn can be detected.
type Selection struct {
	ProjectID      string
	ConversationID string
	Epoch          uint64
}

// Session holds turn-local mutable state
type Session struct {
	mu        sync.RWMutex
	selection Selection
	messages  []models.Message
	streaming models.StreamingState
	results   map[string][]models.VisualizationResult

	// resultsWriter admits one of ExecutingCommands or rehydrate at a time.
	resultsWriter sync.Mutex
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{results: make(map[string][]models.VisualizationResult)}
}

// Selection returns the current selection
func (s *Session) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// IsCurrent reports whether epoch is still the active selection
func (s *Session) IsCurrent(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Epoch == epoch
}

// Select switches project and conversation, clearing all turn-local state.
// It returns the new epoch.
func (s *Session) Select(projectID, conversationID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = Selection{
		ProjectID:      projectID,
		ConversationID: conversationID,
		Epoch:          s.selection.Epoch + 1,
	}
	s.messages = nil
	s.streaming = models.StreamingState{}
	s.results = make(map[string][]models.VisualizationResult)
	return s.selection.Epoch
}

// AdoptConversation records a conversation created lazily by the current turn
func (s *Session) AdoptConversation(epoch uint64, conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Epoch != epoch {
		return false
	}
	s.selection.ConversationID = conversationID
	return true
}

// Messages returns a copy of the message list
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetMessages replaces the message list if epoch is current
func (s *Session) SetMessages(epoch uint64, msgs []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Epoch != epoch {
		return false
	}
	s.messages = append([]models.Message(nil), msgs...)
	return true
}

// AppendMessage adds a message if epoch is current
func (s *Session) AppendMessage(epoch uint64, msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Epoch != epoch {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

// Streaming returns the in-flight streaming state
func (s *Session) Streaming() models.StreamingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// SetStreaming updates the in-flight streaming state if epoch is current
func (s *Session) SetStreaming(epoch uint64, state models.StreamingState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Epoch != epoch {
		return false
	}
	s.streaming = state
	return true
}

// Results returns the visualization results of one message
func (s *Session) Results(messageID string) []models.VisualizationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.VisualizationResult(nil), s.results[messageID]...)
}

// AllResults returns a copy of the whole result cache
func (s *Session) AllResults() map[string][]models.VisualizationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]models.VisualizationResult, len(s.results))
	for id, r := range s.results {
		out[id] = append([]models.VisualizationResult(nil), r...)
	}
	return out
}

// SetResults stores results for a message if epoch is current. Callers must
// hold the results writer lock.
func (s *Session) SetResults(epoch uint64, messageID string, results []models.VisualizationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Epoch != epoch {
		return false
	}
	s.results[messageID] = append([]models.VisualizationResult(nil), results...)
	return true
}

// LockResults acquires the single-writer lock of the result cache
func (s *Session) LockResults() (unlock func()) {
	s.resultsWriter.Lock()
	return s.resultsWriter.Unlock
}
