package debate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/domain"
)

// systemPrompt gives a participant its persona and round guidance.
func systemPrompt(p domain.Participant, round, totalRounds int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s participating in a structured debate.", displayName(p))
	if p.Role != "" {
		fmt.Fprintf(&b, " Your assigned perspective/role is: %s.", p.Role)
	}
	switch {
	case round == 1:
		b.WriteString(" This is Round 1. Provide your initial thoughts on the topic.")
	case round == totalRounds:
		fmt.Fprintf(&b, " This is the final round (Round %d). Work toward a synthesis or conclusion, acknowledging points of agreement and remaining disagreements.", round)
	default:
		fmt.Fprintf(&b, " This is Round %d. Respond to the other participants' arguments, refine your position, and engage constructively with different viewpoints.", round)
	}
	b.WriteString(" Be concise but thorough. Focus on substance over rhetoric.")
	return b.String()
}

// roundContext renders the topic and every earlier contribution.
func roundContext(topic string, history []domain.Message, round int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DEBATE TOPIC: %s\n\n", topic)
	if len(history) == 0 {
		b.WriteString("Please provide your initial response to this topic.")
		return b.String()
	}
	b.WriteString("PREVIOUS DISCUSSION:\n\n")
	writeTranscript(&b, history)
	fmt.Fprintf(&b, "---\nPlease provide your Round %d response, engaging with the above discussion.", round)
	return b.String()
}

func summarySystemPrompt(p domain.Participant) string {
	return fmt.Sprintf("You are %s. Your task is to provide a balanced summary of the debate that just concluded. "+
		"Highlight key arguments, points of agreement, remaining disagreements, and any conclusions reached.", displayName(p))
}

func summaryContext(topic string, history []domain.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DEBATE TOPIC: %s\n\nFULL DEBATE TRANSCRIPT:\n\n", topic)
	writeTranscript(&b, history)
	b.WriteString("---\nPlease provide a concise summary of this debate. State each participant's final position, then give a one-line verdict.")
	return b.String()
}

// writeTranscript renders messages by round. Within a round, interventions
// follow the participant messages.
func writeTranscript(b *strings.Builder, history []domain.Message) {
	ordered := make([]domain.Message, 0, len(history))
	for _, m := range history {
		if m.Round != domain.SummaryRound {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Round != ordered[j].Round {
			return ordered[i].Round < ordered[j].Round
		}
		return !ordered[i].IsIntervention() && ordered[j].IsIntervention()
	})
	for _, m := range ordered {
		if m.IsIntervention() {
			fmt.Fprintf(b, "[Round %d] USER INTERVENTION:\n%s\n\n", m.Round, m.Content)
			continue
		}
		fmt.Fprintf(b, "[Round %d] %s:\n%s\n\n", m.Round, m.ModelName, m.Content)
	}
}

// userTurn wraps the rendered context as the single user message of a call.
func userTurn(content string, images []domain.Image) []llm.ChatMessage {
	return []llm.ChatMessage{{Role: llm.RoleUser, Content: content, Images: images}}
}

func displayName(p domain.Participant) string {
	if p.ModelName != "" {
		return p.ModelName
	}
	return p.ModelID
}
