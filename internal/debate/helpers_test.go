package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/domain"
)

// fakeProvider streams scripted fragments and records every request.
type fakeProvider struct {
	name string
	// gate, when set, holds every call open after its fragments until closed.
	gate <-chan struct{}
	// reply overrides the default fragments. call counts from zero.
	reply func(call int, req *llm.Request) ([]string, error)

	mu    sync.Mutex
	calls []*llm.Request
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Stream(ctx context.Context, req *llm.Request) (*llm.Stream, error) {
	p.mu.Lock()
	call := len(p.calls)
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	frags := []string{p.name, " says", fmt.Sprintf(" #%d", call+1)}
	var replyErr error
	if p.reply != nil {
		frags, replyErr = p.reply(call, req)
	}
	gate := p.gate

	return llm.NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		for _, f := range frags {
			if err := emit(f); err != nil {
				return err
			}
		}
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return replyErr
	}), nil
}

func (p *fakeProvider) requests() []*llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*llm.Request(nil), p.calls...)
}

var errNoKey = errors.New("no key")

// staticKeys maps provider to API key for every user.
type staticKeys map[string]string

func (k staticKeys) APIKey(_ context.Context, _ string, provider string) (string, error) {
	key, ok := k[provider]
	if !ok {
		return "", errNoKey
	}
	return key, nil
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) ofType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, ev := range r.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) count(t domain.EventType) int {
	return len(r.ofType(t))
}

func testConfig() Config {
	return Config{
		ModelTimeout:    2 * time.Second,
		MaxParticipants: 6,
		MaxRounds:       10,
	}
}

func testSession(rounds int, vendors ...string) *domain.Session {
	s := &domain.Session{
		SessionID: "ses_test",
		UserID:    "u1",
		Topic:     "Cats or dogs?",
		Rounds:    rounds,
		Status:    domain.SessionStatusPending,
		CreatedAt: time.Now(),
	}
	for i, v := range vendors {
		s.Participants = append(s.Participants, domain.Participant{
			ID:        fmt.Sprintf("p%d", i+1),
			Provider:  v,
			ModelID:   v + "-model",
			ModelName: strings.ToUpper(v),
		})
	}
	return s
}

type harness struct {
	rec  *recorder
	orch *Orchestrator
}

// newHarness wires an orchestrator over fake providers. With nil keys every
// provider has a credential.
func newHarness(session *domain.Session, cfg Config, keys staticKeys, providers ...*fakeProvider) *harness {
	reg := llm.NewRegistry()
	if keys == nil {
		keys = staticKeys{}
		for _, p := range providers {
			keys[p.name] = "key-" + p.name
		}
	}
	for _, p := range providers {
		reg.Register(p)
	}
	rec := &recorder{}
	return &harness{rec: rec, orch: New(session, reg, keys, rec, cfg)}
}

func waitDone(t *testing.T, o *Orchestrator) {
	t.Helper()
	select {
	case <-o.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}

// assertRoundGrammar checks that each participant in each round produced
// model_start chunk* (model_end|model_error), or a lone model_error, inside
// its round_start/round_end bracket.
func assertRoundGrammar(t *testing.T, events []domain.Event) {
	t.Helper()
	type key struct {
		participant string
		round       int
	}
	seq := map[key][]domain.EventType{}
	openRound := 0
	for _, ev := range events {
		switch ev.Type {
		case domain.EventTypeRoundStart:
			require.Zero(t, openRound, "round %d started inside round %d", ev.Round, openRound)
			openRound = ev.Round
		case domain.EventTypeRoundEnd:
			require.Equal(t, openRound, ev.Round)
			openRound = 0
		case domain.EventTypeModelStart, domain.EventTypeChunk, domain.EventTypeModelEnd, domain.EventTypeModelError:
			require.Equal(t, openRound, ev.Round, "%s outside its round", ev.Type)
			k := key{ev.ParticipantID, ev.Round}
			seq[k] = append(seq[k], ev.Type)
		}
	}
	for k, types := range seq {
		last := types[len(types)-1]
		require.True(t, last == domain.EventTypeModelEnd || last == domain.EventTypeModelError, "%v ends with %s", k, last)
		if len(types) == 1 {
			require.Equal(t, domain.EventTypeModelError, last, "%v", k)
			continue
		}
		require.Equal(t, domain.EventTypeModelStart, types[0], "%v", k)
		for _, mid := range types[1 : len(types)-1] {
			require.Equal(t, domain.EventTypeChunk, mid, "%v", k)
		}
	}
}
