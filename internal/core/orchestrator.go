// ABOUTME: Orchestrator drives one chat turn from user text to executed command blocks
// ABOUTME: Also owns conversation loading with rehydration and selection changes
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harper/querychat/internal/models"
)

// State is a turn phase
type State string

const (
	StateIdle              State = "idle"
	StateClassifying       State = "classifying"
	StateSearching         State = "searching"
	StateAwaitingModel     State = "awaiting_model"
	StateStreaming         State = "streaming"
	StateFinalizing        State = "finalizing"
	StateExecutingCommands State = "executing_commands"
)

// DefaultStreamIdleTimeout bounds the wait for the next model event
const DefaultStreamIdleTimeout = 2 * time.Minute

// TurnObserver receives orchestrator events. Calls happen on the goroutine
// running the turn, except stream updates which may come from a flush timer.
type TurnObserver interface {
	OnStateChange(state State)
	OnStreamUpdate(state models.StreamingState)
	OnMessage(msg models.Message)
	OnResults(messageID string, results []models.VisualizationResult)
	OnInvalidate()
	OnTurnError(err error)
}

// NopObserver ignores every event. Embed it to implement only some hooks.
type NopObserver struct{}

func (NopObserver) OnStateChange(State)                            {}
func (NopObserver) OnStreamUpdate(models.StreamingState)           {}
func (NopObserver) OnMessage(models.Message)                       {}
func (NopObserver) OnResults(string, []models.VisualizationResult) {}
func (NopObserver) OnInvalidate()                                  {}
func (NopObserver) OnTurnError(error)                              {}

// Deps are the collaborators of the orchestrator. Rows and Documents are optional.
type Deps struct {
	Conversations ConversationRepository
	Queries       QueryRunner
	Schema        SchemaProvider
	Rows          RowSearcher
	Documents     DocumentSearcher
	Model         ChatStreamer
}

// Options tune the orchestrator. Zero values select defaults.
type Options struct {
	ChatModel         string
	FlushInterval     time.Duration
	FlushBytes        int
	StreamIdleTimeout time.Duration
	QueryTimeout      time.Duration
	RowSearchLimit    int
	DocSearchLimit    int
	Scheduler         Scheduler
	Observer          TurnObserver
	Logger            *slog.Logger
}

// TurnResult is the outcome of a completed turn
type TurnResult struct {
	ConversationID   string
	Intent           models.IntentResult
	UserMessage      models.Message
	AssistantMessage models.Message
	CleanText        string
	Results          []models.VisualizationResult
}

// Orchestrator coordinates classify, search, stream, finalize and execute
type Orchestrator struct {
	deps       Deps
	opts       Options
	session    *Session
	executor   *Executor
	rehydrator *Rehydrator
	retriever  *Retriever
	observer   TurnObserver
	logger     *slog.Logger

	mu         sync.Mutex
	state      State
	turnID     uint64
	cancelTurn context.CancelFunc
}

// NewOrchestrator wires an orchestrator with its own Session
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	if opts.StreamIdleTimeout == 0 {
		opts.StreamIdleTimeout = DefaultStreamIdleTimeout
	}

	executor := NewExecutor(deps.Queries, opts.QueryTimeout, logger)
	return &Orchestrator{
		deps:       deps,
		opts:       opts,
		session:    NewSession(),
		executor:   executor,
		rehydrator: NewRehydrator(executor),
		retriever:  NewRetriever(deps.Rows, deps.Documents, opts.RowSearchLimit, opts.DocSearchLimit, logger),
		observer:   observer,
		logger:     logger,
		state:      StateIdle,
	}
}

// Session returns the conversation store
func (o *Orchestrator) Session() *Session {
	return o.session
}

// State returns the current turn phase
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(turnID uint64, s State) {
	o.mu.Lock()
	if o.turnID != turnID {
		o.mu.Unlock()
		return
	}
	o.state = s
	o.mu.Unlock()
	o.observer.OnStateChange(s)
}

// beginTurn moves Idle to Classifying and returns the new turn id
func (o *Orchestrator) beginTurn(parent context.Context) (uint64, context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return 0, nil, ErrTurnInProgress
	}
	ctx, cancel := context.WithCancel(parent)
	o.turnID++
	o.cancelTurn = cancel
	o.state = StateClassifying
	return o.turnID, ctx, nil
}

func (o *Orchestrator) endTurn(turnID uint64) {
	o.mu.Lock()
	if o.turnID != turnID {
		o.mu.Unlock()
		return
	}
	if o.cancelTurn != nil {
		o.cancelTurn()
		o.cancelTurn = nil
	}
	o.state = StateIdle
	o.mu.Unlock()
	o.observer.OnStateChange(StateIdle)
}

// abandonTurn cancels any running turn and returns to Idle immediately.
// The abandoned turn notices via its context and the session epoch.
func (o *Orchestrator) abandonTurn() {
	o.mu.Lock()
	wasRunning := o.state != StateIdle
	if o.cancelTurn != nil {
		o.cancelTurn()
		o.cancelTurn = nil
	}
	o.turnID++
	o.state = StateIdle
	o.mu.Unlock()

	if wasRunning {
		o.logger.Info("turn abandoned after selection change")
		o.observer.OnStateChange(StateIdle)
	}
}

// Submit runs one turn. Stream-fatal failures return a *TurnError; search and
// query failures are absorbed into the result.
func (o *Orchestrator) Submit(ctx context.Context, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("message cannot be empty")
	}

	turnID, turnCtx, err := o.beginTurn(ctx)
	if err != nil {
		return nil, err
	}
	o.observer.OnStateChange(StateClassifying)
	defer o.endTurn(turnID)

	result, err := o.runTurn(turnCtx, turnID, text)
	if err != nil {
		o.observer.OnTurnError(err)
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, turnID uint64, text string) (*TurnResult, error) {
	sel := o.session.Selection()
	if sel.ProjectID == "" {
		return nil, ErrNoProject
	}
	epoch := sel.Epoch
	projectID := sel.ProjectID

	conversationID := sel.ConversationID
	if conversationID == "" {
		conv, err := o.deps.Conversations.CreateConversation(ctx, projectID, models.GenerateTitle(text))
		if err != nil {
			return nil, &TurnError{Phase: StateClassifying, Err: fmt.Errorf("create conversation: %w", err)}
		}
		if !o.session.AdoptConversation(epoch, conv.ID) {
			return nil, ErrTurnAbandoned
		}
		conversationID = conv.ID
	}

	userMsg, err := models.NewMessage(models.RoleUser, text)
	if err != nil {
		return nil, err
	}
	if !o.session.AppendMessage(epoch, *userMsg) {
		return nil, ErrTurnAbandoned
	}
	o.observer.OnMessage(*userMsg)
	if err := o.deps.Conversations.AppendMessage(ctx, projectID, conversationID, userMsg); err != nil {
		o.logger.Warn("failed to persist user message", "project", projectID, "conversation", conversationID, "error", err)
	}

	intent := ClassifyIntent(text)
	o.logger.Debug("intent classified", "intent", intent.Intent, "confidence", intent.Confidence)

	o.setState(turnID, StateSearching)
	schema, err := o.deps.Schema.ProjectContext(ctx, projectID)
	if err != nil {
		o.logger.Warn("failed to load schema", "project", projectID, "error", err)
		schema = nil
	}
	dataHits, docHits := o.retriever.Retrieve(ctx, projectID, text, intent, schema)
	if !o.session.IsCurrent(epoch) {
		return nil, ErrTurnAbandoned
	}

	req := models.ChatRequest{
		Model:    o.opts.ChatModel,
		Context:  BuildContext(schema, dataHits, docHits),
		Messages: models.History(o.session.Messages()),
	}

	o.setState(turnID, StateAwaitingModel)
	content, err := o.stream(ctx, turnID, epoch, req)
	if err != nil {
		return nil, err
	}

	o.setState(turnID, StateFinalizing)
	assistant := *content
	assistant.ContextTables = ContextTableNames(schema)
	if !o.session.AppendMessage(epoch, assistant) {
		return nil, ErrTurnAbandoned
	}
	o.observer.OnMessage(assistant)
	if err := o.deps.Conversations.AppendMessage(ctx, projectID, conversationID, &assistant); err != nil {
		o.logger.Warn("failed to persist assistant message", "project", projectID, "conversation", conversationID, "error", err)
	}

	o.setState(turnID, StateExecutingCommands)
	parsed := ExtractCommands(assistant.Content)
	results := o.executeLive(ctx, epoch, projectID, assistant.ID, parsed.Blocks)

	o.observer.OnInvalidate()

	return &TurnResult{
		ConversationID:   conversationID,
		Intent:           intent,
		UserMessage:      *userMsg,
		AssistantMessage: assistant,
		CleanText:        parsed.CleanText,
		Results:          results,
	}, nil
}

// stream consumes model events into a fresh buffer and returns the finalized message
func (o *Orchestrator) stream(ctx context.Context, turnID, epoch uint64, req models.ChatRequest) (*models.Message, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := o.deps.Model.StreamChat(streamCtx, req)
	if err != nil {
		return nil, &TurnError{Phase: StateAwaitingModel, Err: err}
	}

	buffer := NewStreamBuffer(o.opts.FlushInterval, o.opts.FlushBytes, o.opts.Scheduler, func(state models.StreamingState) {
		if o.session.SetStreaming(epoch, state) {
			o.observer.OnStreamUpdate(state)
		}
	})
	buffer.StartStreaming()

	idle := time.NewTimer(o.opts.StreamIdleTimeout)
	defer idle.Stop()

	phase := StateAwaitingModel
	for {
		select {
		case <-ctx.Done():
			buffer.Cancel()
			if !o.session.IsCurrent(epoch) || errors.Is(ctx.Err(), context.Canceled) {
				return nil, ErrTurnAbandoned
			}
			return nil, &TurnError{Phase: phase, Err: ctx.Err()}

		case <-idle.C:
			buffer.Cancel()
			return nil, &TurnError{Phase: phase, Err: ErrStreamIdle}

		case ev, ok := <-events:
			if !ok {
				buffer.Cancel()
				return nil, &TurnError{Phase: phase, Err: ErrStreamClosed}
			}
			if !o.session.IsCurrent(epoch) {
				buffer.Cancel()
				return nil, ErrTurnAbandoned
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(o.opts.StreamIdleTimeout)

			switch ev.Kind {
			case models.EventChunk:
				if phase == StateAwaitingModel {
					phase = StateStreaming
					o.setState(turnID, StateStreaming)
				}
				buffer.AppendChunk(ev.Text)
			case models.EventDone:
				return buffer.Finalize(models.NewID())
			case models.EventError:
				buffer.Cancel()
				err := ev.Err
				if err == nil {
					err = errors.New("model stream failed")
				}
				return nil, &TurnError{Phase: phase, Err: err}
			}
		}
	}
}

// executeLive runs command blocks under the result cache writer lock
func (o *Orchestrator) executeLive(ctx context.Context, epoch uint64, projectID, messageID string, blocks []models.CommandBlock) []models.VisualizationResult {
	if len(blocks) == 0 {
		return nil
	}

	unlock := o.session.LockResults()
	defer unlock()

	results := o.executor.Execute(ctx, projectID, blocks)
	if o.session.SetResults(epoch, messageID, results) {
		o.observer.OnResults(messageID, results)
	}
	return results
}

// SelectProject switches project, abandoning any running turn
func (o *Orchestrator) SelectProject(ctx context.Context, projectID string) {
	o.abandonTurn()
	o.session.Select(projectID, "")
	o.observer.OnInvalidate()
}

// NewConversation clears the conversation selection; the next turn creates one
func (o *Orchestrator) NewConversation() {
	o.abandonTurn()
	sel := o.session.Selection()
	o.session.Select(sel.ProjectID, "")
}

// LoadConversation selects a stored conversation and rehydrates its results
func (o *Orchestrator) LoadConversation(ctx context.Context, conversationID string) (*models.ConversationWithMessages, error) {
	o.abandonTurn()

	projectID := o.session.Selection().ProjectID
	if projectID == "" {
		return nil, ErrNoProject
	}
	epoch := o.session.Select(projectID, conversationID)

	conv, err := o.deps.Conversations.GetConversation(ctx, projectID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !o.session.SetMessages(epoch, conv.Messages) {
		return nil, ErrTurnAbandoned
	}

	if err := o.rehydrate(ctx, epoch, projectID, conv.Messages); err != nil {
		return nil, err
	}
	return conv, nil
}

// Rehydrate re-executes command blocks of the loaded messages
func (o *Orchestrator) Rehydrate(ctx context.Context) error {
	sel := o.session.Selection()
	if sel.ProjectID == "" {
		return ErrNoProject
	}
	if o.State() != StateIdle {
		return ErrTurnInProgress
	}
	return o.rehydrate(ctx, sel.Epoch, sel.ProjectID, o.session.Messages())
}

func (o *Orchestrator) rehydrate(ctx context.Context, epoch uint64, projectID string, messages []models.Message) error {
	unlock := o.session.LockResults()
	defer unlock()

	for id, results := range o.rehydrator.Rehydrate(ctx, projectID, messages) {
		if !o.session.SetResults(epoch, id, results) {
			return ErrTurnAbandoned
		}
		o.observer.OnResults(id, results)
	}
	return ctx.Err()
}

// DeleteConversation removes a conversation and clears it if it was selected
func (o *Orchestrator) DeleteConversation(ctx context.Context, conversationID string) error {
	sel := o.session.Selection()
	if sel.ProjectID == "" {
		return ErrNoProject
	}
	if sel.ConversationID == conversationID {
		o.abandonTurn()
		o.session.Select(sel.ProjectID, "")
	}
	return o.deps.Conversations.DeleteConversation(ctx, sel.ProjectID, conversationID)
}
