package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"learncards/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIProvider struct {
	profile models.ApiProfile
	client  *openai.Client
}

func NewOpenAIProvider(profile models.ApiProfile, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := openai.DefaultConfig(profile.Key)
	if profile.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(profile.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIProvider{profile: profile, client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAIProvider) info() ProviderInfo {
	return ProviderInfo{Name: "openai", Model: o.profile.Model, Profile: o.profile.Name}
}

func (o *OpenAIProvider) Complete(ctx context.Context, req ChatRequest) (string, ProviderInfo, error) {
	info := o.info()
	if !o.profile.HasKey() {
		return "", info, &ConfigurationError{Profile: o.profile.Name, Reason: "apikey is empty"}
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, userMessage(req.User))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.profile.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", info, upstreamError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", info, &UpstreamError{Body: "provider response missing content"}
	}
	return resp.Choices[0].Message.Content, info, nil
}

// userMessage sends a lone text part as plain content; anything else goes out
// as a multi-part message.
func userMessage(parts []ContentPart) openai.ChatCompletionMessage {
	if len(parts) == 1 && parts[0].ImageURL == "" {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: parts[0].Text}
	}
	multi := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if p.ImageURL != "" {
			multi = append(multi, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL, Detail: openai.ImageURLDetailAuto},
			})
			continue
		}
		multi = append(multi, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: multi}
}

func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &UpstreamError{Status: reqErr.HTTPStatusCode, Body: body, Err: err}
	}
	return &UpstreamError{Err: err}
}
