package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/tourassist/internal/domain"
)

// parseAPIError converts a go-openai error into *domain.ProviderError.
// 408, 429 and 5xx are transient, other 4xx are permanent, transport errors are transient
// unless the caller cancelled.
func parseAPIError(provider, op string, err error) error {
	pe := &domain.ProviderError{Provider: provider, Op: op}

	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.Err = fmt.Errorf("api error: %s", apiErr.Message)
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		pe.Err = fmt.Errorf("request error: %s", detail)
	default:
		pe.Err = err
	}

	pe.Transient = isTransient(pe.StatusCode, err)
	return pe
}

func isTransient(status int, err error) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	case status >= 400:
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// errorType is the metrics label for a provider error.
func errorType(err error) string {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		return "unknown"
	}
	switch {
	case pe.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case pe.StatusCode >= 500:
		return "server_error"
	case pe.StatusCode >= 400:
		return "client_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "transport"
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius-style providers).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// newClient builds a go-openai client for an OpenAI-compatible endpoint.
func newClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
