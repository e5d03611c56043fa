package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/transport/ws"
)

var (
	runModels     []string
	runRounds     int
	runSummarizer int
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Start a discussion and follow it",
	Long: `Create a discussion between two or more models and stream it.

Each --model is provider:model_id, optionally followed by :role.
Type a line to intervene, /stop to end the discussion, /quit to detach.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		participants, err := parseParticipants(runModels)
		if err != nil {
			return err
		}

		client := newAPIClient()
		session, err := client.CreateSession(cmd.Context(), domain.CreateSessionRequest{
			Topic:           args[0],
			Participants:    participants,
			Rounds:          runRounds,
			SummarizerIndex: runSummarizer,
		})
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		fmt.Println(dimStyle.Render("Session " + session.SessionID))
		return follow(cmd.Context(), client, session.SessionID)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a session, starting it if pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return follow(cmd.Context(), newAPIClient(), args[0])
	},
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := newAPIClient().GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n", modelStyle.Render(detail.Session.Topic), dimStyle.Render(string(detail.Session.Status)))
		for _, m := range detail.Messages {
			switch {
			case m.IsIntervention():
				fmt.Printf("\n%s %s\n", userStyle.Render(fmt.Sprintf("You (round %d):", m.Round)), m.Content)
			case m.Round == domain.SummaryRound:
				fmt.Printf("\n%s\n%s\n", summaryStyle.Render("Summary by "+m.ModelName), m.Content)
			default:
				fmt.Printf("\n%s\n%s\n", modelStyle.Render(fmt.Sprintf("%s (round %d)", m.ModelName, m.Round)), m.Content)
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runModels, "model", "m", nil, "Participant as provider:model_id[:role] (repeatable)")
	runCmd.Flags().IntVarP(&runRounds, "rounds", "r", 3, "Number of rounds")
	runCmd.Flags().IntVar(&runSummarizer, "summarizer", 0, "Index of the participant that writes the summary")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(showCmd)
}

// parseParticipants turns provider:model_id[:role] entries into participants.
func parseParticipants(entries []string) ([]domain.ParticipantConfig, error) {
	out := make([]domain.ParticipantConfig, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid --model %q, want provider:model_id[:role]", entry)
		}
		p := domain.ParticipantConfig{
			Provider: strings.TrimSpace(parts[0]),
			ModelID:  strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			p.Role = strings.TrimSpace(parts[2])
		}
		out = append(out, p)
	}
	if len(out) < 2 {
		return nil, errors.New("at least two --model flags are required")
	}
	return out, nil
}

// follow streams a session to stdout and forwards stdin as interventions.
func follow(ctx context.Context, client *apiClient, sessionID string) error {
	conn, err := client.Attach(ctx, sessionID)
	if err != nil {
		return err
	}
	defer conn.Close()

	r := newRenderer(os.Stdout)
	done := make(chan error, 1)
	go func() {
		for {
			var ev domain.Event
			if err := conn.ReadJSON(&ev); err != nil {
				done <- err
				return
			}
			if r.Handle(ev) {
				done <- nil
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	for {
		select {
		case err := <-done:
			if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return fmt.Errorf("connection lost: %w", err)
			}
			return nil

		case line := <-lines:
			frame, quit := commandFrame(line)
			if quit {
				fmt.Println(dimStyle.Render("Detached; the session keeps running."))
				return nil
			}
			if frame == nil {
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				return fmt.Errorf("send: %w", err)
			}

		case <-interrupt:
			fmt.Println(dimStyle.Render("\nStopping..."))
			if err := conn.WriteJSON(ws.InboundMessage{Type: ws.TypeStop}); err != nil {
				return fmt.Errorf("send: %w", err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// commandFrame maps an input line to the frame to send.
func commandFrame(line string) (frame *ws.InboundMessage, quit bool) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return nil, false
	case "/quit":
		return nil, true
	case "/stop":
		return &ws.InboundMessage{Type: ws.TypeStop}, false
	}
	return &ws.InboundMessage{Type: ws.TypeIntervention, Content: line}, false
}
