package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/hilite/wingman/server/internal/errors"
)

const defaultHTTPTimeout = 60 * time.Second

// HTTPConfig configures the hosted replies API client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type httpFetcher struct {
	config *HTTPConfig
	client *http.Client
}

// NewHTTPFetcher creates a client for the hosted replies endpoint.
func NewHTTPFetcher(config *HTTPConfig) Fetcher {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &httpFetcher{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchReplies POSTs the JSON contract to the endpoint. Any non-2xx status or
// malformed body surfaces as a network error; no retries.
func (f *httpFetcher) FetchReplies(ctx context.Context, token string, req *ReplyRequest) (*ReplyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Network("failed to encode reply request", err)
	}

	url := strings.TrimSuffix(f.config.BaseURL, "/") + "/v1/replies"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Network("failed to build reply request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	} else if f.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+f.config.APIKey)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network("reply request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log line, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.Network(
			"reply endpoint returned "+resp.Status+": "+strings.TrimSpace(string(snippet)), nil)
	}

	var reply ReplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, apperrors.Network("failed to decode reply response", err)
	}
	if len(reply.Content) == 0 {
		return nil, apperrors.Network("reply response contained no content", nil)
	}

	return &reply, nil
}
