package llm

import (
	"log"
	"net/http"
	"time"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Options configures NewProviderRegistry.
type Options struct {
	// BaseURLs overrides the default endpoint per vendor.
	BaseURLs    map[string]string
	IdleTimeout time.Duration
	HTTPClient  *http.Client
	// Mode is the GOGO_MODE value. ModeMock registers a MockClient for
	// every vendor.
	Mode string
	// MockDelay is the pause between mock fragments.
	MockDelay time.Duration
}

// NewProviderRegistry creates a registry with one provider per vendor.
func NewProviderRegistry(opts Options) *Registry {
	if opts.Mode == ModeMock {
		log.Println("GOGO_MODE=MOCK detected, using mock LLM providers")
		reg := NewRegistry()
		for _, vendor := range Vendors {
			reg.Register(NewMockClient(vendor, opts.MockDelay))
		}
		return reg
	}

	cfg := func(vendor string) ClientConfig {
		return ClientConfig{
			BaseURL:     opts.BaseURLs[vendor],
			HTTPClient:  opts.HTTPClient,
			IdleTimeout: opts.IdleTimeout,
		}
	}
	return NewRegistry(
		NewOpenAI(cfg(VendorOpenAI)),
		NewAnthropic(cfg(VendorAnthropic)),
		NewGoogle(cfg(VendorGoogle)),
		NewDeepseek(cfg(VendorDeepseek)),
		NewXAI(cfg(VendorXAI)),
	)
}
