// Package service wires discussion sessions to storage, credentials,
// admission policy and live delivery.
package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/michael213532/ai-debate/internal/config"
	"github.com/michael213532/ai-debate/internal/credential"
	"github.com/michael213532/ai-debate/internal/debate"
	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/metrics"
	"github.com/michael213532/ai-debate/internal/policy"
	"github.com/michael213532/ai-debate/internal/repository"
)

// DefaultUserID is the caller identity used when a request carries none.
const DefaultUserID = "default_user"

var (
	// ErrSessionNotFound is returned for unknown sessions and sessions of
	// another user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPolicyDenied is returned when the admission policy rejects a session.
	ErrPolicyDenied = errors.New("session denied by policy")
	// ErrUnknownProvider is returned for provider ids the service cannot reach.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Publisher delivers live events to attached clients. Publish must not block.
type Publisher interface {
	Publish(sessionID string, event domain.Event)
}

// Service implements session management on top of the debate orchestrator.
type Service struct {
	store     repository.Store
	providers debate.ProviderSource
	vault     *credential.Vault
	catalog   *config.Catalog
	policy    *policy.Engine
	publisher Publisher
	metrics   *metrics.Metrics
	debateCfg debate.Config

	mu     sync.Mutex
	active map[string]*debate.Orchestrator
	wg     sync.WaitGroup
}

// New creates a Service. policyEngine, publisher and m may be nil.
func New(store repository.Store, providers debate.ProviderSource, vault *credential.Vault, catalog *config.Catalog,
	policyEngine *policy.Engine, publisher Publisher, m *metrics.Metrics, debateCfg debate.Config) *Service {
	return &Service{
		store:     store,
		providers: providers,
		vault:     vault,
		catalog:   catalog,
		policy:    policyEngine,
		publisher: publisher,
		metrics:   m,
		debateCfg: debateCfg,
		active:    make(map[string]*debate.Orchestrator),
	}
}

// Shutdown stops every active session and waits until their transcripts are
// persisted or ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, o := range s.active {
		o.Stop()
	}
	n := len(s.active)
	s.mu.Unlock()

	if n > 0 {
		log.Printf("Stopping %d active sessions", n)
	}

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

// ActiveCount returns the number of sessions owned by an orchestrator.
func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Service) lookupActive(sessionID string) (*debate.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.active[sessionID]
	return o, ok
}
