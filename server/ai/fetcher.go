// Package ai provides the reply fetcher boundary: given a screenshot and
// context, it asks a remote model for reply suggestions. Two backends are
// supported, the hosted replies API and any OpenAI-compatible vision model.
package ai

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hilite/wingman/internal/profile"
	apperrors "github.com/hilite/wingman/server/internal/errors"
)

// ReplyRequest is the payload sent to the reply provider.
type ReplyRequest struct {
	ScreenshotBase64 string `json:"screenshotBase64"`
	Tone             string `json:"tone"`
	Context          string `json:"context,omitempty"`
	Language         string `json:"language,omitempty"`
	UseEmojis        bool   `json:"useEmojis,omitempty"`
}

// ReplyResponse is the structured reply content returned by a provider.
type ReplyResponse struct {
	Tone        string   `json:"tone"`
	Content     []string `json:"content"`
	Nickname    string   `json:"nickname"`
	DialogTitle string   `json:"dialogTitle"`
}

// Fetcher fetches reply suggestions from a remote provider. Implementations
// do not retry; retry policy belongs to the caller.
type Fetcher interface {
	FetchReplies(ctx context.Context, token string, req *ReplyRequest) (*ReplyResponse, error)
}

// NewFetcherFromProfile selects a provider: the hosted replies API when its
// base URL is configured, otherwise the OpenAI-compatible vision fallback.
func NewFetcherFromProfile(p *profile.Profile) (Fetcher, error) {
	if p.ReplyAPIBaseURL != "" {
		return NewHTTPFetcher(&HTTPConfig{
			BaseURL: p.ReplyAPIBaseURL,
			APIKey:  p.ReplyAPIKey,
		}), nil
	}
	if p.OpenAIAPIKey != "" {
		return NewOpenAIFetcher(&OpenAIConfig{
			BaseURL: p.OpenAIBaseURL,
			APIKey:  p.OpenAIAPIKey,
			Model:   p.OpenAIModel,
		}), nil
	}
	return nil, errors.New("no reply provider configured")
}

// Disabled returns a Fetcher that fails every call. It stands in when no
// provider is configured so the rest of the app keeps working.
func Disabled() Fetcher {
	return disabledFetcher{}
}

type disabledFetcher struct{}

func (disabledFetcher) FetchReplies(context.Context, string, *ReplyRequest) (*ReplyResponse, error) {
	return nil, apperrors.Network("no reply provider configured", nil)
}
