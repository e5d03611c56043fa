package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/michael213532/ai-debate/internal/domain"
)

// errStreamDone stops SSE consumption without an error.
var errStreamDone = errors.New("llm: stream done")

// ClientConfig configures a vendor client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	// IdleTimeout bounds the wait for the next stream line. Zero disables it.
	IdleTimeout time.Duration
}

type transport struct {
	provider    string
	baseURL     string
	httpClient  *http.Client
	idleTimeout time.Duration
}

func newTransport(provider, defaultBaseURL string, cfg ClientConfig) *transport {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client-wide timeout: streams are bounded by context and idle timer.
		httpClient = &http.Client{}
	}
	return &transport{
		provider:    provider,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  httpClient,
		idleTimeout: cfg.IdleTimeout,
	}
}

// streamSSE posts body as JSON and hands each SSE data payload to handle.
// handle may return errStreamDone to finish successfully.
func (t *transport) streamSSE(ctx context.Context, url string, header http.Header, body any, handle func(data []byte) error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var idle atomic.Bool
	var watchdog *time.Timer
	if t.idleTimeout > 0 {
		watchdog = time.AfterFunc(t.idleTimeout, func() {
			idle.Store(true)
			cancel()
		})
		defer watchdog.Stop()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return t.readError(ctx, &idle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return classifyHTTP(t.provider, resp.StatusCode, raw)
	}

	dec := newSSEDecoder(resp.Body)
	for {
		data, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return t.readError(ctx, &idle, err)
		}
		if watchdog != nil {
			watchdog.Reset(t.idleTimeout)
		}
		if err := handle(data); err != nil {
			if errors.Is(err, errStreamDone) {
				return nil
			}
			return err
		}
	}
}

// readError attributes a transport failure to the caller, the idle timer or
// the network.
func (t *transport) readError(ctx context.Context, idle *atomic.Bool, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if idle.Load() {
		return &ProviderError{
			Provider: t.provider,
			Kind:     domain.FailureNetwork,
			Message:  fmt.Sprintf("no data received for %s", t.idleTimeout),
			Cause:    err,
		}
	}
	return &ProviderError{
		Provider: t.provider,
		Kind:     domain.FailureNetwork,
		Message:  err.Error(),
		Cause:    err,
	}
}
