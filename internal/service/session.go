package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/michael213532/ai-debate/internal/debate"
	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/policy"
)

// persistTimeout bounds store writes made outside a request.
const persistTimeout = 10 * time.Second

// CreateSession validates, admits and stores a pending session.
func (s *Service) CreateSession(ctx context.Context, userID string, req domain.CreateSessionRequest) (*domain.Session, error) {
	session := &domain.Session{
		SessionID:       "sess_" + uuid.New().String()[:8],
		UserID:          userID,
		Topic:           strings.TrimSpace(req.Topic),
		Images:          req.Images,
		Rounds:          req.Rounds,
		SummarizerIndex: req.SummarizerIndex,
		Status:          domain.SessionStatusPending,
		CreatedAt:       time.Now(),
	}
	for i, pc := range req.Participants {
		p := domain.Participant{
			ID:        fmt.Sprintf("p%d", i+1),
			Provider:  strings.TrimSpace(pc.Provider),
			ModelID:   strings.TrimSpace(pc.ModelID),
			ModelName: strings.TrimSpace(pc.ModelName),
			Role:      strings.TrimSpace(pc.Role),
		}
		if p.ModelName == "" {
			if info, ok := s.catalog.Lookup(p.Provider, p.ModelID); ok {
				p.ModelName = info.Name
			} else {
				p.ModelName = p.ModelID
			}
		}
		session.Participants = append(session.Participants, p)
	}

	if err := debate.Validate(session, s.debateCfg); err != nil {
		return nil, err
	}
	for _, p := range session.Participants {
		if _, ok := s.providers.Get(p.Provider); !ok {
			return nil, fmt.Errorf("%w: %w %q", debate.ErrInvalidSession, ErrUnknownProvider, p.Provider)
		}
	}
	if err := s.admit(ctx, session); err != nil {
		return nil, err
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Printf("Session created: %s (user: %s, participants: %d, rounds: %d)",
		session.SessionID, userID, len(session.Participants), session.Rounds)
	return session, nil
}

// admit runs the admission policy, if one is configured.
func (s *Service) admit(ctx context.Context, session *domain.Session) error {
	if s.policy == nil {
		return nil
	}
	input := policy.Input{
		UserID:     session.UserID,
		Topic:      session.Topic,
		Rounds:     session.Rounds,
		ImageCount: len(session.Images),
	}
	for _, p := range session.Participants {
		input.Participants = append(input.Participants, policy.ParticipantInput{
			Provider: p.Provider,
			ModelID:  p.ModelID,
			Role:     p.Role,
		})
	}
	reasons, err := s.policy.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to evaluate admission policy: %w", err)
	}
	if len(reasons) > 0 {
		return fmt.Errorf("%w: %s", ErrPolicyDenied, strings.Join(reasons, "; "))
	}
	return nil
}

// StartSession starts a pending session.
func (s *Service) StartSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	return s.start(ctx, userID, sessionID)
}

// SessionStatus returns the live or stored status of a session.
func (s *Service) SessionStatus(ctx context.Context, sessionID string) (domain.SessionStatus, error) {
	if o, ok := s.lookupActive(sessionID); ok {
		status, _ := o.Status()
		return status, nil
	}
	session, err := s.getOwned(ctx, "", sessionID)
	if err != nil {
		return "", err
	}
	return session.Status, nil
}

// AttachSession is called when a live client attaches. A pending session is
// started; otherwise the current status is returned.
func (s *Service) AttachSession(ctx context.Context, sessionID string) (domain.SessionStatus, error) {
	if o, ok := s.lookupActive(sessionID); ok {
		status, _ := o.Status()
		return status, nil
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return "", ErrSessionNotFound
	}
	if session.Status != domain.SessionStatusPending {
		return session.Status, nil
	}

	started, err := s.start(ctx, "", sessionID)
	if err != nil {
		// Lost a race with another start.
		if o, ok := s.lookupActive(sessionID); ok {
			status, _ := o.Status()
			return status, nil
		}
		return session.Status, err
	}
	return started.Status, nil
}

// start hands a pending session to a new orchestrator. An empty userID skips
// the ownership check.
func (s *Service) start(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[sessionID]; ok {
		return nil, fmt.Errorf("%w: session is already running", debate.ErrInvalidSession)
	}
	session, err := s.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusPending {
		return nil, fmt.Errorf("%w: session is %s", debate.ErrInvalidSession, session.Status)
	}

	// Persist running first; round updates from the orchestrator follow.
	if err := s.store.UpdateSessionStatus(ctx, sessionID, domain.SessionStatusRunning, 0); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	rec := s.newRecorder(session)
	o := debate.New(session, s.providers, s.vault, s.emitterFor(rec), s.debateCfg)
	if err := o.Start(ctx); err != nil {
		rec.close()
		if rerr := s.store.UpdateSessionStatus(ctx, sessionID, domain.SessionStatusPending, 0); rerr != nil {
			log.Printf("ERROR: failed to reset session %s: %v", sessionID, rerr)
		}
		return nil, err
	}

	s.active[sessionID] = o
	s.wg.Add(1)
	go s.watch(o, rec)
	s.metrics.SessionStarted()

	session.Status = domain.SessionStatusRunning
	log.Printf("Session started: %s", sessionID)
	return session, nil
}

// watch persists the outcome of a session once it has ended.
func (s *Service) watch(o *debate.Orchestrator, rec *recorder) {
	defer s.wg.Done()
	<-o.Done()
	// Nothing is emitted after Done. Pending status updates must land before
	// the terminal one.
	rec.close()

	sessionID := o.SessionID()
	res := o.Result()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.store.SaveTranscript(ctx, sessionID, res.Messages); err != nil {
		log.Printf("ERROR: failed to save transcript of session %s: %v", sessionID, err)
	}
	if err := s.store.UpdateSessionEnded(ctx, sessionID, res.Status, res.CurrentRound, res.EndedAt); err != nil {
		log.Printf("ERROR: failed to update session %s: %v", sessionID, err)
	}

	s.mu.Lock()
	delete(s.active, sessionID)
	s.mu.Unlock()

	s.metrics.SessionEnded(string(res.Status))
	log.Printf("Session ended: %s (status: %s, messages: %d)", sessionID, res.Status, len(res.Messages))
}

// StopSession stops an active session or marks a pending one stopped.
// Stopping a finished session is a no-op.
func (s *Service) StopSession(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if o, ok := s.active[sessionID]; ok {
		o.Stop()
		log.Printf("Session stop requested: %s", sessionID)
		return nil
	}
	if session.Status != domain.SessionStatusPending {
		return nil
	}

	now := time.Now()
	if err := s.store.UpdateSessionEnded(ctx, sessionID, domain.SessionStatusStopped, 0, now); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	ev := domain.Event{
		Type:      domain.EventTypeSessionEnd,
		SessionID: sessionID,
		Ts:        now.UnixMilli(),
		Status:    domain.SessionStatusStopped,
	}
	if s.publisher != nil {
		s.publisher.Publish(sessionID, ev)
	}
	s.recordEvent(ctx, ev)
	log.Printf("Pending session stopped: %s", sessionID)
	return nil
}

// Intervene injects a user message into a running session.
func (s *Service) Intervene(ctx context.Context, userID, sessionID, content string) error {
	session, err := s.getOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	o, ok := s.lookupActive(sessionID)
	if !ok {
		return fmt.Errorf("%w: session is %s", debate.ErrInterventionRejected, session.Status)
	}
	return o.Intervene(content)
}

// InterveneLive injects a user message on behalf of an attached client.
func (s *Service) InterveneLive(sessionID, content string) error {
	o, ok := s.lookupActive(sessionID)
	if !ok {
		return fmt.Errorf("%w: session is not running", debate.ErrInterventionRejected)
	}
	return o.Intervene(content)
}

// StopLive stops a session on behalf of an attached client.
func (s *Service) StopLive(sessionID string) {
	if o, ok := s.lookupActive(sessionID); ok {
		o.Stop()
	}
}

// GetSession returns a session and its transcript. Active sessions report
// their in-memory state.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*domain.SessionDetail, error) {
	session, err := s.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if o, ok := s.lookupActive(sessionID); ok {
		session.Status, session.CurrentRound = o.Status()
		messages := o.Messages()
		sortTranscript(messages)
		return &domain.SessionDetail{Session: session, Messages: messages}, nil
	}

	messages, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &domain.SessionDetail{Session: session, Messages: messages}, nil
}

// ListSessions returns the user's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sessions, err := s.store.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for i := range sessions {
		if o, ok := s.lookupActive(sessions[i].SessionID); ok {
			sessions[i].Status, sessions[i].CurrentRound = o.Status()
		}
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return sessions, nil
}

func (s *Service) getOwned(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || (userID != "" && session.UserID != userID) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// sortTranscript orders messages by round with the summary last. Messages of
// one round keep their append order.
func sortTranscript(messages []domain.Message) {
	rank := func(m domain.Message) int {
		if m.Round == domain.SummaryRound {
			return math.MaxInt
		}
		return m.Round
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return rank(messages[i]) < rank(messages[j])
	})
}
