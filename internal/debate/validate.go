package debate

import (
	"fmt"
	"strings"

	"github.com/michael213532/ai-debate/internal/domain"
)

// MinParticipants is the smallest discussion that makes sense.
const MinParticipants = 2

// Validate checks a session against the limits in cfg. Returned errors wrap
// ErrInvalidSession.
func Validate(session *domain.Session, cfg Config) error {
	cfg = cfg.withDefaults()
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if strings.TrimSpace(session.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidSession)
	}
	n := len(session.Participants)
	if n < MinParticipants || n > cfg.MaxParticipants {
		return fmt.Errorf("%w: need %d to %d participants, got %d", ErrInvalidSession, MinParticipants, cfg.MaxParticipants, n)
	}
	if session.Rounds < 1 || session.Rounds > cfg.MaxRounds {
		return fmt.Errorf("%w: rounds must be between 1 and %d, got %d", ErrInvalidSession, cfg.MaxRounds, session.Rounds)
	}
	if session.SummarizerIndex < 0 || session.SummarizerIndex >= n {
		return fmt.Errorf("%w: summarizer_index %d out of range", ErrInvalidSession, session.SummarizerIndex)
	}
	seen := make(map[string]bool, n)
	for i, p := range session.Participants {
		if p.ID == "" || p.Provider == "" || p.ModelID == "" {
			return fmt.Errorf("%w: participant %d needs id, provider and model_id", ErrInvalidSession, i)
		}
		if p.ID == domain.UserParticipantID || seen[p.ID] {
			return fmt.Errorf("%w: duplicate or reserved participant id %q", ErrInvalidSession, p.ID)
		}
		seen[p.ID] = true
	}
	for i, img := range session.Images {
		if img.Data == "" || !strings.HasPrefix(img.MediaType, "image/") {
			return fmt.Errorf("%w: image %d needs base64 data and an image media type", ErrInvalidSession, i)
		}
	}
	return nil
}
