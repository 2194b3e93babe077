package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
)

// maxResponseBody is the maximum response body size we read from LLM APIs.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Default provider timeouts.
const (
	defaultConnTimeout = 30 * time.Second
	defaultRespTimeout = 120 * time.Second
)

// NewHTTPClient creates an *http.Client with pooled transport and timeout
// defaults suitable for LLM providers. Shared by the Anthropic and OpenAI
// adapters to avoid duplicating client setup.
func NewHTTPClient(cfg config.ProviderConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   connTimeout,
			ResponseHeaderTimeout: respTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: connTimeout + respTimeout,
	}
}

// postJSON performs a JSON POST request and returns the response body. It
// handles request creation, headers, execution, bounded body read, and HTTP
// status checking. Non-200 responses map to a domain.HTTPError carrying the
// status code and raw error payload.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, domain.NewHTTPError(httpResp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// getJSON performs a GET request with the same body handling as postJSON.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, domain.NewHTTPError(httpResp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// windowTokens sums per-message token counts using cached values where
// present and the counter otherwise. perMessageOverhead reflects structural
// tokens some chat formats charge per turn.
func windowTokens(window []domain.Message, counter domain.TokenCounter, perMessageOverhead int) int {
	total := 0
	for _, m := range window {
		if m.TokenCount > 0 {
			total += m.TokenCount
		} else {
			total += counter.CountText(m.Content)
		}
		total += perMessageOverhead
	}
	return total
}

// contextStats computes usage against an adapter-reported limit, clamping
// remaining capacity at zero.
func contextStats(total, limit, reserved int) domain.ContextStats {
	remaining := limit - reserved - total
	if remaining < 0 {
		remaining = 0
	}
	return domain.ContextStats{
		TotalTokens:       total,
		RemainingCapacity: remaining,
	}
}
