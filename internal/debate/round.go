package debate

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/domain"
)

// RoundInput is a read-only snapshot of the session for one round.
type RoundInput struct {
	SessionID    string
	UserID       string
	Topic        string
	Images       []domain.Image
	Participants []domain.Participant
	History      []domain.Message
	Round        int
	TotalRounds  int
}

// ParticipantResult is the outcome of one participant's call.
type ParticipantResult struct {
	Participant domain.Participant
	// Content is the complete response. Empty when Err is set.
	Content string
	Err     error
	Kind    domain.FailureKind
}

// OK reports whether the participant produced a message.
func (r ParticipantResult) OK() bool { return r.Err == nil }

// RoundExecutor drives one round across all participants concurrently.
type RoundExecutor struct {
	providers ProviderSource
	creds     CredentialSource
	emit      func(domain.Event)
	timeout   time.Duration
	maxTokens int
}

// NewRoundExecutor creates an executor. emit must be safe for concurrent use
// and preserve call order.
func NewRoundExecutor(providers ProviderSource, creds CredentialSource, emit func(domain.Event), cfg Config) *RoundExecutor {
	return &RoundExecutor{
		providers: providers,
		creds:     creds,
		emit:      emit,
		timeout:   cfg.ModelTimeout,
		maxTokens: cfg.MaxTokens,
	}
}

// Run calls every participant and returns once all of them are terminal.
// Results are in participant order.
func (x *RoundExecutor) Run(ctx context.Context, in RoundInput) []ParticipantResult {
	results := make([]ParticipantResult, len(in.Participants))
	system := make([]string, len(in.Participants))
	for i, p := range in.Participants {
		system[i] = systemPrompt(p, in.Round, in.TotalRounds)
	}
	messages := userTurn(roundContext(in.Topic, in.History, in.Round), in.Images)

	// Failures are results, not errors: the group is only a join.
	var g errgroup.Group
	for i, p := range in.Participants {
		g.Go(func() error {
			results[i] = x.runParticipant(ctx, in, p, system[i], messages)
			return nil
		})
	}
	g.Wait()
	return results
}

func (x *RoundExecutor) runParticipant(ctx context.Context, in RoundInput, p domain.Participant, system string, messages []llm.ChatMessage) ParticipantResult {
	base := domain.Event{
		ParticipantID: p.ID,
		ModelName:     p.ModelName,
		Provider:      p.Provider,
		Round:         in.Round,
	}
	fail := func(err error) ParticipantResult {
		kind, hint := failure(ctx, err)
		ev := base
		ev.Type = domain.EventTypeModelError
		ev.Error = kind
		ev.Hint = hint
		x.emit(ev)
		return ParticipantResult{Participant: p, Err: err, Kind: kind}
	}

	provider, ok := x.providers.Get(p.Provider)
	if !ok {
		return fail(&llm.ProviderError{
			Provider: p.Provider,
			Kind:     domain.FailureModelUnavailable,
			Message:  "unsupported provider " + p.Provider,
		})
	}
	apiKey, err := x.creds.APIKey(ctx, in.UserID, p.Provider)
	if err != nil || apiKey == "" {
		return fail(&llm.ProviderError{
			Provider: p.Provider,
			Kind:     domain.FailureAuthInvalid,
			Message:  "no API key configured for " + p.Provider,
			Cause:    err,
		})
	}

	start := base
	start.Type = domain.EventTypeModelStart
	x.emit(start)

	content, err := x.call(ctx, provider, &llm.Request{
		Model:        p.ModelID,
		APIKey:       apiKey,
		SystemPrompt: system,
		Messages:     messages,
		MaxTokens:    x.maxTokens,
	}, func(frag string) {
		ev := base
		ev.Type = domain.EventTypeChunk
		ev.Content = frag
		x.emit(ev)
	})
	if err != nil {
		return fail(err)
	}

	end := base
	end.Type = domain.EventTypeModelEnd
	x.emit(end)
	return ParticipantResult{Participant: p, Content: content}
}

// call streams one completion under the per-call timeout, handing every
// fragment to onFragment as it arrives.
func (x *RoundExecutor) call(ctx context.Context, provider llm.Provider, req *llm.Request, onFragment func(string)) (string, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	stream, err := provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		b.WriteString(frag)
		onFragment(frag)
	}
	// A provider that ends cleanly after cancellation has not finished.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// failure classifies err. A call cut short by the session context is
// cancelled, whatever error the provider surfaced.
func failure(ctx context.Context, err error) (domain.FailureKind, string) {
	if ctx.Err() != nil {
		return domain.FailureCancelled, context.Cause(ctx).Error()
	}
	return llm.Classify(err), llm.Hint(err)
}
