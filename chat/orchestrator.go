// Package chat ties the pieces together: given a user message and a
// session key it runs one conversational turn against the configured LLM,
// letting the session's history policy decide what context is sent.
//
// The orchestrator owns two boundaries:
//   - per-session serialization: at most one in-flight turn per session
//     key, while distinct sessions proceed concurrently;
//   - error absorption: LLM failures never propagate to the caller as
//     errors. They become conversational content ("Error: ...") because
//     the consuming surface is a transcript with no structured error
//     channel. Only caller misuse (an unknown policy kind) fails hard.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scttfrdmn/chatmem/budget"
	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/history"
	"github.com/scttfrdmn/chatmem/llm"
	"github.com/scttfrdmn/chatmem/observability"
	"github.com/scttfrdmn/chatmem/session"
	"github.com/scttfrdmn/chatmem/usage"
)

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	// Reply is the assistant's response, or "Error: ..." when the LLM
	// failed. Empty when Empty is set.
	Reply string `json:"reply"`
	// Usage covers every LLM call this turn made, compaction included.
	Usage usage.Snapshot `json:"usage"`
	// History is a read-only copy of the session's current context.
	History []*chatmem.Message `json:"history"`
	// Empty is set when the input was blank and nothing was done. Not an
	// error: the history is returned unchanged.
	Empty bool `json:"empty,omitempty"`
}

// Orchestrator runs chat turns.
type Orchestrator struct {
	client       llm.Client
	store        *session.Store
	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      *observability.TurnMetrics
	costs        *budget.Tracker
	systemPrompt string

	mu    sync.Mutex
	locks map[session.Key]*sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer enables a span per turn.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithMetrics enables per-turn metric reporting.
func WithMetrics(m *observability.TurnMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCostTracker records every turn's usage into a cost ledger.
func WithCostTracker(t *budget.Tracker) Option {
	return func(o *Orchestrator) { o.costs = t }
}

// WithSystemPrompt prepends a fixed system message to the outbound context
// of every main generation call. It is never stored in any history.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

// NewOrchestrator creates an orchestrator using client for generation and
// store for session state. A nil store gets a fresh private one.
func NewOrchestrator(client llm.Client, store *session.Store, opts ...Option) *Orchestrator {
	if store == nil {
		store = session.NewStore()
	}
	o := &Orchestrator{
		client: client,
		store:  store,
		logger: slog.Default(),
		locks:  make(map[session.Key]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewSessionID generates an opaque short session identifier. No uniqueness
// guarantee beyond being practically collision-free for interactive use.
func NewSessionID() string {
	return uuid.NewString()[:8]
}

// Turn runs one conversational turn.
//
// Blank input short-circuits with Empty set and the history untouched.
// The only error Turn returns is history.ErrUnknownKind (caller misuse)
// or the caller's own context error before any state was touched; every
// runtime LLM failure is absorbed into the reply text.
func (o *Orchestrator) Turn(ctx context.Context, message string, key session.Key, temperature float64) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return &TurnResult{Empty: true, History: o.History(key)}, nil
	}

	hist, err := o.store.GetOrCreate(key, func() (history.History, error) {
		return history.New(key.Kind, o.client, key.Window)
	})
	if err != nil {
		return nil, err
	}

	lock := o.sessionLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Nothing touched yet; honor cancellation before the user turn is
	// recorded.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "chat.turn",
			trace.WithAttributes(
				attribute.String("session.id", key.SessionID),
				attribute.String("policy.kind", string(key.Kind)),
				attribute.Int("policy.window", key.Window),
			))
		defer span.End()
	}

	start := time.Now()
	acc := usage.NewAccumulator()

	userMsg := chatmem.NewMessage(chatmem.RoleUser, message)
	if err := hist.Append(ctx, acc, userMsg); err != nil {
		return o.failTurn(ctx, hist, acc, key, start, err), nil
	}

	outbound := hist.Messages()
	if o.systemPrompt != "" {
		outbound = append([]*chatmem.Message{
			chatmem.NewMessage(chatmem.RoleSystem, o.systemPrompt),
		}, outbound...)
	}

	reply, err := o.client.Complete(ctx, outbound, llm.WithTemperature(temperature))
	if err != nil {
		return o.failTurn(ctx, hist, acc, key, start, err), nil
	}
	acc.RecordMessage(reply)

	assistant := chatmem.NewMessage(chatmem.RoleAssistant, reply.Content)
	failed := false
	if err := hist.Append(ctx, acc, assistant); err != nil {
		// The reply itself succeeded and the policies keep the verbatim
		// message on compaction failure, so the real reply is returned;
		// the next append gets another chance to compact.
		o.logger.WarnContext(ctx, "compaction failed after assistant append",
			slog.String("session_id", key.SessionID),
			slog.String("error", err.Error()))
		failed = true
	}

	result := &TurnResult{
		Reply:   reply.Content,
		Usage:   acc.Snapshot(),
		History: chatmem.CloneMessages(hist.Messages()),
	}
	o.finishTurn(ctx, key, result.Usage, time.Since(start), failed)
	return result, nil
}

// failTurn converts an LLM failure into conversational content: the error
// text becomes the assistant's reply and, when the context is still live,
// is appended to the history so the transcript reflects what happened.
func (o *Orchestrator) failTurn(ctx context.Context, hist history.History, acc *usage.Accumulator, key session.Key, start time.Time, cause error) *TurnResult {
	reply := "Error: " + cause.Error()

	// On cancellation the session is left with the user turn recorded and
	// no assistant reply; an accepted degraded state.
	if ctx.Err() == nil {
		assistant := chatmem.NewMessage(chatmem.RoleAssistant, reply)
		if err := hist.Append(ctx, acc, assistant); err != nil {
			o.logger.WarnContext(ctx, "failed to append error reply",
				slog.String("session_id", key.SessionID),
				slog.String("error", err.Error()))
		}
	}

	result := &TurnResult{
		Reply:   reply,
		Usage:   acc.Snapshot(),
		History: chatmem.CloneMessages(hist.Messages()),
	}
	o.finishTurn(ctx, key, result.Usage, time.Since(start), true)
	return result
}

func (o *Orchestrator) finishTurn(ctx context.Context, key session.Key, snapshot usage.Snapshot, elapsed time.Duration, failed bool) {
	if o.costs != nil {
		if _, err := o.costs.RecordTurn(key.SessionID, o.client.Model(), snapshot); err != nil {
			o.logger.WarnContext(ctx, "cost tracking failed", slog.String("error", err.Error()))
		}
	}
	if o.metrics != nil {
		o.metrics.RecordTurn(ctx, string(key.Kind), snapshot, float64(elapsed.Milliseconds()), failed)
	}
	o.logger.InfoContext(ctx, "turn complete",
		slog.String("session_id", key.SessionID),
		slog.String("kind", string(key.Kind)),
		slog.Int("total_tokens", snapshot.TotalTokens),
		slog.Int("llm_calls", snapshot.Calls),
		slog.Duration("elapsed", elapsed),
		slog.Bool("failed", failed))
}

// Clear empties the session's history in place. The session entry stays
// registered; an unknown key is a no-op.
func (o *Orchestrator) Clear(key session.Key) {
	lock := o.sessionLock(key)
	lock.Lock()
	defer lock.Unlock()
	o.store.Clear(key)
}

// History returns a read-only copy of the session's current context, or
// nil when the session does not exist yet.
func (o *Orchestrator) History(key session.Key) []*chatmem.Message {
	hist, ok := o.store.Get(key)
	if !ok {
		return nil
	}
	lock := o.sessionLock(key)
	lock.Lock()
	defer lock.Unlock()
	return chatmem.CloneMessages(hist.Messages())
}

// sessionLock returns the mutex serializing turns for one session key,
// creating it on first use. Lock entries live as long as the store's
// session entries do.
func (o *Orchestrator) sessionLock(key session.Key) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[key]
	if !ok {
		l = &sync.Mutex{}
		o.locks[key] = l
	}
	return l
}
