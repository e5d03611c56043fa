package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/michael213532/ai-debate/internal/domain"
)

var (
	// Styles
	roundStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	modelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135")).
			Padding(0, 1)
)

// renderer prints session events. Fragments are buffered and each response
// is printed whole, since participants stream concurrently.
type renderer struct {
	out     io.Writer
	buffers map[string]*strings.Builder
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, buffers: make(map[string]*strings.Builder)}
}

// Handle prints ev and reports whether the session has ended.
func (r *renderer) Handle(ev domain.Event) bool {
	switch ev.Type {
	case domain.EventTypeRoundStart:
		fmt.Fprintf(r.out, "\n%s\n", roundStyle.Render(fmt.Sprintf("Round %d of %d", ev.Round, ev.TotalRounds)))
	case domain.EventTypeModelStart:
		fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("  %s is thinking...", ev.ModelName)))
	case domain.EventTypeChunk, domain.EventTypeSummaryChunk:
		r.buffer(ev).WriteString(ev.Content)
	case domain.EventTypeModelEnd:
		fmt.Fprintf(r.out, "\n%s\n%s\n", modelStyle.Render(ev.ModelName), strings.TrimSpace(r.take(ev)))
	case domain.EventTypeModelError:
		r.take(ev)
		fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("  %s failed: %s", ev.ModelName, describe(ev))))
	case domain.EventTypeSummaryStart:
		fmt.Fprintf(r.out, "\n%s\n", summaryStyle.Render("Summary by "+ev.ModelName))
	case domain.EventTypeSummaryEnd:
		fmt.Fprintln(r.out, strings.TrimSpace(r.take(ev)))
	case domain.EventTypeSummaryError:
		r.take(ev)
		fmt.Fprintln(r.out, errorStyle.Render("  summary failed: "+describe(ev)))
	case domain.EventTypeInterventionReceived:
		fmt.Fprintf(r.out, "\n%s %s\n", userStyle.Render(fmt.Sprintf("You (round %d):", ev.Round)), ev.Content)
	case domain.EventTypeError:
		fmt.Fprintln(r.out, errorStyle.Render("error: "+ev.Message))
	case domain.EventTypeSessionEnd:
		fmt.Fprintf(r.out, "\n%s\n", dimStyle.Render("Session "+string(ev.Status)))
		return true
	}
	return false
}

func (r *renderer) buffer(ev domain.Event) *strings.Builder {
	key := streamKey(ev)
	b, ok := r.buffers[key]
	if !ok {
		b = &strings.Builder{}
		r.buffers[key] = b
	}
	return b
}

func (r *renderer) take(ev domain.Event) string {
	key := streamKey(ev)
	b, ok := r.buffers[key]
	if !ok {
		return ""
	}
	delete(r.buffers, key)
	return b.String()
}

func streamKey(ev domain.Event) string {
	switch ev.Type {
	case domain.EventTypeSummaryChunk, domain.EventTypeSummaryEnd, domain.EventTypeSummaryError:
		return "summary"
	}
	return fmt.Sprintf("%s/%d", ev.ParticipantID, ev.Round)
}

func describe(ev domain.Event) string {
	if ev.Hint != "" {
		return fmt.Sprintf("%s (%s)", ev.Error, ev.Hint)
	}
	return string(ev.Error)
}
