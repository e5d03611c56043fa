// Package policy evaluates session admission rules written in Rego.
package policy

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must define data.session_policy.deny as a set of messages.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.session_policy.deny"),
		rego.Module("session_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadEngine reads the policy at path, or uses DefaultPolicy when path is
// empty.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Input is the document a session is admitted against.
type Input struct {
	UserID       string             `json:"user_id"`
	Topic        string             `json:"topic"`
	Rounds       int                `json:"rounds"`
	ImageCount   int                `json:"image_count"`
	Participants []ParticipantInput `json:"participants"`
}

// ParticipantInput is one participant of Input.
type ParticipantInput struct {
	Provider string `json:"provider"`
	ModelID  string `json:"model_id"`
	Role     string `json:"role,omitempty"`
}

// Evaluate returns the reasons the input is denied, sorted. An empty result
// admits the session.
func (e *Engine) Evaluate(ctx context.Context, input Input) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// Undefined deny means nothing matched.
		return nil, nil
	}

	values, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("policy returned %T, want a set of strings", results[0].Expressions[0].Value)
	}
	reasons := make([]string, 0, len(values))
	for _, v := range values {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return reasons, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package session_policy

import rego.v1

max_topic_length := 20000

max_images := 4

deny contains msg if {
	count(input.topic) > max_topic_length
	msg := sprintf("topic is longer than %d characters", [max_topic_length])
}

deny contains msg if {
	input.image_count > max_images
	msg := sprintf("at most %d images may be attached", [max_images])
}

# Example: cap the total number of model calls per session
deny contains msg if {
	calls := count(input.participants) * input.rounds
	calls > 60
	msg := sprintf("session would make %d model calls, limit is 60", [calls])
}
`
