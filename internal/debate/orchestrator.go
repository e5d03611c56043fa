package debate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/domain"
)

// Result is the final state of a session.
type Result struct {
	Status       domain.SessionStatus
	CurrentRound int
	Messages     []domain.Message
	EndedAt      time.Time
}

// Orchestrator owns one session while it is active: it sequences rounds,
// runs the summarizer and handles stop and intervention requests.
type Orchestrator struct {
	cfg       Config
	providers ProviderSource
	creds     CredentialSource
	emitter   Emitter
	executor  *RoundExecutor

	// mu guards the fields below it.
	mu       sync.Mutex
	session  domain.Session
	messages []domain.Message
	status   domain.SessionStatus
	round    int
	started  bool
	endedAt  time.Time
	cancel   context.CancelCauseFunc

	// emitMu serializes emission and guards ended.
	emitMu sync.Mutex
	ended  bool

	stopOnce sync.Once
	done     chan struct{}
}

// New creates an orchestrator for a pending session. Participants and topic
// are copied; later changes to session have no effect.
func New(session *domain.Session, providers ProviderSource, creds CredentialSource, emitter Emitter, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	s := *session
	s.Participants = append([]domain.Participant(nil), session.Participants...)
	s.Images = append([]domain.Image(nil), session.Images...)

	o := &Orchestrator{
		cfg:       cfg,
		providers: providers,
		creds:     creds,
		emitter:   emitter,
		session:   s,
		status:    domain.SessionStatusPending,
		done:      make(chan struct{}),
	}
	o.executor = NewRoundExecutor(providers, creds, o.emit, cfg)
	return o
}

// SessionID returns the id of the orchestrated session.
func (o *Orchestrator) SessionID() string { return o.session.SessionID }

// Start validates the session and runs it in the background. The session
// outlives ctx; only Stop or the session time limit end it early.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := Validate(&o.session, o.cfg); err != nil {
		return err
	}

	o.mu.Lock()
	if o.started || o.status != domain.SessionStatusPending {
		status := o.status
		o.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrInvalidSession, status)
	}
	runCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	o.started = true
	o.status = domain.SessionStatusRunning
	o.cancel = cancel
	o.mu.Unlock()

	go o.run(runCtx, cancel)
	return nil
}

// Stop ends the session. It is idempotent and does not wait; use Done.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		if !o.started {
			// Never started: end right here.
			o.started = true
			o.mu.Unlock()
			o.finish(domain.SessionStatusStopped)
			return
		}
		cancel := o.cancel
		o.mu.Unlock()
		cancel(errStopped)
	})
}

// Intervene appends a user message to the transcript. It is visible to every
// participant from the next round on.
func (o *Orchestrator) Intervene(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: content is empty", ErrInterventionRejected)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != domain.SessionStatusRunning {
		return fmt.Errorf("%w: session is %s", ErrInterventionRejected, o.status)
	}
	// Before round 1 is dispatched the message belongs to round 1.
	round := max(o.round, 1)
	msg := o.newMessage(round, domain.UserParticipantID, "", "", text)
	o.messages = append(o.messages, msg)
	o.emit(domain.Event{
		Type:    domain.EventTypeInterventionReceived,
		Round:   round,
		Content: text,
	})
	return nil
}

// Status returns the current status and round.
func (o *Orchestrator) Status() (domain.SessionStatus, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.round
}

// Messages returns a copy of the transcript in append order.
func (o *Orchestrator) Messages() []domain.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Message(nil), o.messages...)
}

// Done is closed after session_end has been emitted.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Result returns the final state. It is only complete once Done is closed.
func (o *Orchestrator) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Result{
		Status:       o.status,
		CurrentRound: o.round,
		Messages:     append([]domain.Message(nil), o.messages...),
		EndedAt:      o.endedAt,
	}
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelCauseFunc) {
	defer cancel(nil)
	if o.cfg.SessionTimeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(ctx, o.cfg.SessionTimeout, errSessionExpired)
		defer stop()
	}

	status := o.runRounds(ctx)
	if status == domain.SessionStatusRunning {
		status = o.summarize(ctx)
	}
	if status != domain.SessionStatusCompleted && status != domain.SessionStatusFailed {
		status = domain.SessionStatusStopped
		if errors.Is(context.Cause(ctx), errSessionExpired) {
			o.emit(domain.Event{
				Type:    domain.EventTypeError,
				Message: fmt.Sprintf("session exceeded its time limit of %s", o.cfg.SessionTimeout),
			})
		}
	}
	o.finish(status)
}

// runRounds returns SessionStatusRunning when every round ran.
func (o *Orchestrator) runRounds(ctx context.Context) domain.SessionStatus {
	total := o.session.Rounds
	for round := 1; round <= total; round++ {
		if ctx.Err() != nil {
			return domain.SessionStatusStopped
		}

		o.mu.Lock()
		o.round = round
		history := append([]domain.Message(nil), o.messages...)
		o.mu.Unlock()

		o.emit(domain.Event{Type: domain.EventTypeRoundStart, Round: round, TotalRounds: total})

		results := o.executor.Run(ctx, RoundInput{
			SessionID:    o.session.SessionID,
			UserID:       o.session.UserID,
			Topic:        o.session.Topic,
			Images:       o.session.Images,
			Participants: o.session.Participants,
			History:      history,
			Round:        round,
			TotalRounds:  total,
		})

		succeeded := 0
		o.mu.Lock()
		for _, r := range results {
			if !r.OK() {
				continue
			}
			succeeded++
			o.messages = append(o.messages, o.newMessage(round, r.Participant.ID, r.Participant.ModelName, r.Participant.Provider, r.Content))
		}
		o.mu.Unlock()

		o.emit(domain.Event{Type: domain.EventTypeRoundEnd, Round: round})

		if succeeded == 0 && ctx.Err() == nil {
			log.Printf("WARN: session %s round %d: every participant failed", o.session.SessionID, round)
			if o.cfg.FailOnSilentRound {
				o.emit(domain.Event{
					Type:    domain.EventTypeError,
					Message: fmt.Sprintf("every participant failed in round %d", round),
				})
				return domain.SessionStatusFailed
			}
		}
	}
	if ctx.Err() != nil {
		return domain.SessionStatusStopped
	}
	return domain.SessionStatusRunning
}

// summarize runs the summarizer over the full transcript.
func (o *Orchestrator) summarize(ctx context.Context) domain.SessionStatus {
	p, ok := o.session.Summarizer()
	if !ok {
		return domain.SessionStatusCompleted
	}

	o.mu.Lock()
	o.status = domain.SessionStatusSummarizing
	history := append([]domain.Message(nil), o.messages...)
	o.mu.Unlock()

	o.emit(domain.Event{Type: domain.EventTypeSummaryStart, ModelName: p.ModelName, Provider: p.Provider})

	content, err := o.callSummarizer(ctx, p, history)
	if err != nil {
		kind, hint := failure(ctx, err)
		o.emit(domain.Event{
			Type:      domain.EventTypeSummaryError,
			ModelName: p.ModelName,
			Provider:  p.Provider,
			Error:     kind,
			Hint:      hint,
		})
		if ctx.Err() != nil {
			return domain.SessionStatusStopped
		}
		log.Printf("WARN: session %s summary by %s failed: %v", o.session.SessionID, p.ModelName, err)
		return domain.SessionStatusCompleted
	}

	o.mu.Lock()
	o.messages = append(o.messages, o.newMessage(domain.SummaryRound, p.ID, p.ModelName, p.Provider, content))
	o.mu.Unlock()

	o.emit(domain.Event{Type: domain.EventTypeSummaryEnd, ModelName: p.ModelName, Provider: p.Provider})
	return domain.SessionStatusCompleted
}

func (o *Orchestrator) callSummarizer(ctx context.Context, p domain.Participant, history []domain.Message) (string, error) {
	provider, ok := o.providers.Get(p.Provider)
	if !ok {
		return "", &llm.ProviderError{Provider: p.Provider, Kind: domain.FailureModelUnavailable, Message: "unsupported provider " + p.Provider}
	}
	apiKey, err := o.creds.APIKey(ctx, o.session.UserID, p.Provider)
	if err != nil || apiKey == "" {
		return "", &llm.ProviderError{Provider: p.Provider, Kind: domain.FailureAuthInvalid, Message: "no API key configured for " + p.Provider, Cause: err}
	}

	return o.executor.call(ctx, provider, &llm.Request{
		Model:        p.ModelID,
		APIKey:       apiKey,
		SystemPrompt: summarySystemPrompt(p),
		Messages:     userTurn(summaryContext(o.session.Topic, history), nil),
		MaxTokens:    o.cfg.MaxTokens,
	}, func(frag string) {
		o.emit(domain.Event{
			Type:      domain.EventTypeSummaryChunk,
			ModelName: p.ModelName,
			Provider:  p.Provider,
			Content:   frag,
		})
	})
}

// finish records the terminal status and emits session_end exactly once.
func (o *Orchestrator) finish(status domain.SessionStatus) {
	o.mu.Lock()
	o.status = status
	o.endedAt = time.Now()
	o.mu.Unlock()

	o.emitMu.Lock()
	if o.ended {
		o.emitMu.Unlock()
		return
	}
	o.emitLocked(domain.Event{Type: domain.EventTypeSessionEnd, Status: status})
	o.ended = true
	o.emitMu.Unlock()

	close(o.done)
}

// emit stamps and forwards an event. Nothing is emitted after session_end.
func (o *Orchestrator) emit(ev domain.Event) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	if o.ended {
		return
	}
	o.emitLocked(ev)
}

func (o *Orchestrator) emitLocked(ev domain.Event) {
	ev.SessionID = o.session.SessionID
	ev.Ts = time.Now().UnixMilli()
	if o.emitter != nil {
		o.emitter.Emit(ev)
	}
}

func (o *Orchestrator) newMessage(round int, participantID, modelName, provider, content string) domain.Message {
	return domain.Message{
		MessageID:     "msg_" + uuid.New().String()[:8],
		SessionID:     o.session.SessionID,
		Round:         round,
		ParticipantID: participantID,
		ModelName:     modelName,
		Provider:      provider,
		Content:       content,
		CreatedAt:     time.Now(),
	}
}
