// Package llm normalizes vendor streaming chat APIs behind one interface.
package llm

import (
	"context"
	"sort"

	"github.com/michael213532/ai-debate/internal/domain"
)

// Vendor identifiers.
const (
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
	VendorGoogle    = "google"
	VendorDeepseek  = "deepseek"
	VendorXAI       = "xai"
)

// Vendors lists every vendor the service knows how to reach.
var Vendors = []string{VendorOpenAI, VendorAnthropic, VendorGoogle, VendorDeepseek, VendorXAI}

// Role is the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the conversation sent to a provider.
type ChatMessage struct {
	Role    Role
	Content string
	Images  []domain.Image
}

// Request is a vendor-neutral streaming chat request.
type Request struct {
	Model        string
	APIKey       string
	SystemPrompt string
	Messages     []ChatMessage
	MaxTokens    int
	Temperature  *float64
}

// Provider streams chat completions from one vendor.
//
// Implementations are stateless and safe for concurrent use across sessions.
type Provider interface {
	// Name returns the vendor identifier.
	Name() string

	// Stream starts a streaming completion. Failures that happen after the
	// request is dispatched surface through Stream.Recv.
	Stream(ctx context.Context, req *Request) (*Stream, error)
}

// Registry maps vendor identifiers to providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider for a vendor.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered vendor identifiers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
