package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/hilite/wingman/server/internal/errors"
)

// OpenAIConfig configures the OpenAI-compatible vision fallback.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type openaiFetcher struct {
	client *openai.Client
	model  string
}

// NewOpenAIFetcher creates a fetcher backed by an OpenAI-compatible chat
// completions endpoint with vision support.
func NewOpenAIFetcher(config *OpenAIConfig) Fetcher {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openaiFetcher{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

const replySystemPrompt = `You are a dating conversation assistant. The user sends a screenshot of a chat with their match. Produce reply suggestions the user could send next.

Respond with a single JSON object:
{"tone": "<requested tone>", "content": ["<suggestion 1>", "<suggestion 2>", "<suggestion 3>"], "nickname": "<the match's display name, or empty>", "dialogTitle": "<a short title for this conversation, usually the match's name>"}`

func (f *openaiFetcher) FetchReplies(ctx context.Context, _ string, req *ReplyRequest) (*ReplyResponse, error) {
	userPrompt := fmt.Sprintf("Tone: %s.", req.Tone)
	if req.Language != "" {
		userPrompt += fmt.Sprintf(" Reply in %s.", req.Language)
	}
	if req.UseEmojis {
		userPrompt += " Use fitting emojis."
	} else {
		userPrompt += " Do not use emojis."
	}
	if req.Context != "" {
		userPrompt += " Extra context from the user: " + req.Context
	}

	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: replySystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: userPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + req.ScreenshotBase64,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, apperrors.Network("vision completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.Network("vision completion returned no choices", nil)
	}

	reply, err := parseReplyJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, apperrors.Network("failed to parse vision completion", err)
	}
	if reply.Tone == "" {
		reply.Tone = req.Tone
	}
	return reply, nil
}

// parseReplyJSON extracts the JSON object from the completion text, tolerating
// models that wrap it in a code fence.
func parseReplyJSON(content string) (*ReplyResponse, error) {
	content = strings.TrimSpace(content)
	if start := strings.IndexByte(content, '{'); start >= 0 {
		if end := strings.LastIndexByte(content, '}'); end > start {
			content = content[start : end+1]
		}
	}

	var reply ReplyResponse
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, err
	}
	if len(reply.Content) == 0 {
		return nil, fmt.Errorf("no content in completion")
	}
	return &reply, nil
}
