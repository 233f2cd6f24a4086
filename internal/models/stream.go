// ABOUTME: Tagged stream events from the inference collaborator
// ABOUTME: Also defines the in-flight StreamingState observed during a turn
package models

// StreamEventKind tags a StreamEvent
type StreamEventKind string

const (
	EventChunk StreamEventKind = "chunk"
	EventDone  StreamEventKind = "done"
	EventError StreamEventKind = "error"
)

// StreamEvent is one event on a per-turn stream. Text is set for chunks,
// Err for errors; done carries no payload.
type StreamEvent struct {
	Kind StreamEventKind
	Text string
	Err  error
}

// ChunkEvent creates a chunk event
func ChunkEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventChunk, Text: text}
}

// DoneEvent creates the terminal success event
func DoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// ErrorEvent creates the terminal failure event
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}

// StreamingState exists only for the in-flight turn
type StreamingState struct {
	IsStreaming      bool   `json:"isStreaming"`
	StreamingContent string `json:"streamingContent"`
}
