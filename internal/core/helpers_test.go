// ABOUTME: Shared fakes for core tests
// ABOUTME: Scripted model streams, in-memory repositories and a manual scheduler

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harper/querychat/internal/models"
)

func jsonBody(sql string) (string, error) {
	data, err := json.Marshal(map[string]string{"sql": sql})
	return string(data), err
}

// manualScheduler fires timers only when Fire is called
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs every pending timer, including stopped ones, to mimic a timer
// that raced with Stop.
func (s *manualScheduler) Fire() {
	s.mu.Lock()
	pending := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range pending {
		if t.fired {
			continue
		}
		t.fired = true
		t.f()
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeRunner answers queries from a map of sql to result
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]*models.QueryResult
	errs    map[string]error
	block   map[string]bool
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]*models.QueryResult),
		errs:    make(map[string]error),
		block:   make(map[string]bool),
	}
}

func (r *fakeRunner) RunQuery(ctx context.Context, _ string, sql string) (*models.QueryResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, sql)
	res, err, block := r.results[sql], r.errs[sql], r.block[sql]
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &models.QueryResult{Columns: []string{}, Rows: []map[string]any{}}, nil
	}
	return res, nil
}

func (r *fakeRunner) setResult(sql string, res *models.QueryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[sql] = res
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// memoryRepo is an in-memory ConversationRepository
type memoryRepo struct {
	mu            sync.Mutex
	conversations map[string]*models.ConversationWithMessages
	appendErr     error
	nextID        int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{conversations: make(map[string]*models.ConversationWithMessages)}
}

func (r *memoryRepo) ListConversations(_ context.Context, projectID string) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.conversations {
		if c.ProjectID == projectID {
			out = append(out, c.Conversation)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateConversation(_ context.Context, projectID, title string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	conv := models.Conversation{
		ID:        fmt.Sprintf("conv-%d", r.nextID),
		ProjectID: projectID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.conversations[conv.ID] = &models.ConversationWithMessages{Conversation: conv}
	return &conv, nil
}

func (r *memoryRepo) GetConversation(_ context.Context, _ string, conversationID string) (*models.ConversationWithMessages, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	cp := *c
	cp.Messages = append([]models.Message(nil), c.Messages...)
	return &cp, nil
}

func (r *memoryRepo) DeleteConversation(_ context.Context, _ string, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return errors.New("conversation not found")
	}
	delete(r.conversations, conversationID)
	return nil
}

func (r *memoryRepo) AppendMessage(_ context.Context, _ string, conversationID string, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return errors.New("conversation not found")
	}
	c.Messages = append(c.Messages, *msg)
	return nil
}

func (r *memoryRepo) Stored(conversationID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return nil
	}
	return append([]models.Message(nil), c.Messages...)
}

// staticSchema returns a fixed project context
type staticSchema struct {
	ctx *models.ProjectContext
	err error
}

func (s staticSchema) ProjectContext(context.Context, string) (*models.ProjectContext, error) {
	return s.ctx, s.err
}

// scriptedStreamer replays events on a channel. When hold is set the stream
// stays open after the scripted events until ctx is cancelled.
type scriptedStreamer struct {
	mu       sync.Mutex
	events   []models.StreamEvent
	hold     bool
	startErr error
	requests []models.ChatRequest
	started  chan struct{}
}

func (s *scriptedStreamer) StreamChat(ctx context.Context, req models.ChatRequest) (<-chan models.StreamEvent, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	events := append([]models.StreamEvent(nil), s.events...)
	hold := s.hold
	started := s.started
	s.mu.Unlock()

	if s.startErr != nil {
		return nil, s.startErr
	}

	ch := make(chan models.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if started != nil {
			close(started)
		}
		if hold {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (s *scriptedStreamer) Requests() []models.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatRequest(nil), s.requests...)
}

func chunks(parts ...string) []models.StreamEvent {
	out := make([]models.StreamEvent, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, models.ChunkEvent(p))
	}
	return append(out, models.DoneEvent())
}

// recordingObserver keeps every orchestrator event
type recordingObserver struct {
	NopObserver
	mu      sync.Mutex
	states  []State
	streams []models.StreamingState
	results map[string][]models.VisualizationResult
	errs    []error
}

func (o *recordingObserver) OnStateChange(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) OnStreamUpdate(s models.StreamingState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streams = append(o.streams, s)
}

func (o *recordingObserver) OnResults(id string, r []models.VisualizationResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string][]models.VisualizationResult)
	}
	o.results[id] = r
}

func (o *recordingObserver) OnTurnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) States() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]State(nil), o.states...)
}

func joinStates(states []State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
