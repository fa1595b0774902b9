package providers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"learncards/internal/models"
	"learncards/internal/util"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, req ChatRequest) (string, ProviderInfo, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Get(1).(ProviderInfo), args.Error(2)
}

func writeFrames(t *testing.T, seconds ...int) []models.Frame {
	t.Helper()
	dir := t.TempDir()
	frames := make([]models.Frame, 0, len(seconds))
	for i, s := range seconds {
		p := filepath.Join(dir, "f"+string(rune('a'+i))+".jpg")
		require.NoError(t, os.WriteFile(p, []byte{0xff, 0xd8, 0xff}, 0o644))
		frames = append(frames, models.Frame{Path: p, TimestampSeconds: s})
	}
	return frames
}

func TestGatewayGenerateFromTextUsesTextProvider(t *testing.T) {
	text, vision := &mockLLM{}, &mockLLM{}
	info := ProviderInfo{Name: "openai", Model: "gpt-test", Profile: "base"}
	text.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return req.Count == 5 && len(req.User) == 1 && req.User[0].Text == "cells divide" &&
			strings.Contains(req.System, "exactly 5 cards") && req.Temperature == defaultTemperature
	})).Return("```json\n"+sampleCards+"\n```", info, nil).Once()

	var audited []models.LLMCall
	g := NewGateway(text, vision, GatewayOptions{Audit: func(_ context.Context, c models.LLMCall) { audited = append(audited, c) }})

	cards, err := g.GenerateFromText(WithTaskID(context.Background(), "t-1"), "  cells divide ", 0)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	text.AssertExpectations(t)
	vision.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	require.Len(t, audited, 1)
	require.Equal(t, "generate_text", audited[0].Operation)
	require.Equal(t, "t-1", audited[0].TaskID)
	require.Equal(t, "ok", audited[0].Status)
	require.NotEmpty(t, audited[0].CallID)
}

func TestGatewayParseFailureKeepsRaw(t *testing.T) {
	text := &mockLLM{}
	text.On("Complete", mock.Anything, mock.Anything).Return("no cards here", ProviderInfo{Name: "openai"}, nil)
	g := NewGateway(text, text, GatewayOptions{})

	_, err := g.GenerateFromText(context.Background(), "x", 3)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "no cards here", pe.Raw)
}

func TestGatewayFramesBuildInterleavedParts(t *testing.T) {
	text, vision := &mockLLM{}, &mockLLM{}
	frames := writeFrames(t, 8, 16)
	vision.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		if len(req.User) != 5 {
			return false
		}
		return req.User[1].Text == "This image appears at second 8 of the video." &&
			strings.HasPrefix(req.User[2].ImageURL, "data:image/jpeg;base64,") &&
			req.User[3].Text == "This image appears at second 16 of the video." &&
			req.Count == 4
	})).Return(sampleCards, ProviderInfo{Name: "openai", Profile: "video"}, nil).Once()

	g := NewGateway(text, vision, GatewayOptions{})
	cards, err := g.GenerateFromFrames(context.Background(), frames, 4)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	vision.AssertExpectations(t)
}

func TestGatewayUpstreamErrorIsAudited(t *testing.T) {
	vision := &mockLLM{}
	vision.On("Complete", mock.Anything, mock.Anything).
		Return("", ProviderInfo{Name: "openai"}, &UpstreamError{Status: 429, Body: "rate limit reached"})

	var audited []models.LLMCall
	g := NewGateway(vision, vision, GatewayOptions{Audit: func(_ context.Context, c models.LLMCall) { audited = append(audited, c) }})
	_, err := g.CompleteFrames(context.Background(), writeFrames(t, 3), 2)
	require.ErrorIs(t, err, util.ErrUpstream)
	require.Len(t, audited, 1)
	require.Equal(t, "error", audited[0].Status)
	require.Equal(t, string(ErrorRate), audited[0].ErrorType)
}

func TestGatewayMissingFrameFileFailsBeforeCall(t *testing.T) {
	vision := &mockLLM{}
	g := NewGateway(vision, vision, GatewayOptions{})
	_, err := g.CompleteFrames(context.Background(), []models.Frame{{Path: "/nonexistent/frame.jpg"}}, 2)
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
	vision.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestMockProviderEchoesFrameSeconds(t *testing.T) {
	g := NewGateway(NewMockProvider(), NewMockProvider(), GatewayOptions{})
	cards, err := g.GenerateFromFrames(context.Background(), writeFrames(t, 8, 16, 24, 32), 4)
	require.NoError(t, err)
	require.Len(t, cards, 4)
	require.Len(t, models.SupportedCards(cards), 4)
	for i, c := range cards {
		require.NotNil(t, c.Timestamp)
		require.Equal(t, []int{8, 16, 24, 32}[i], *c.Timestamp)
	}
}

func TestNewManager(t *testing.T) {
	m, err := NewManager("MOCK", models.ApiProfile{}, models.ApiProfile{}, 0)
	require.NoError(t, err)
	require.IsType(t, &MockProvider{}, m.Text())
	require.Equal(t, "mock", m.Kind())

	m, err = NewManager("", models.ApiProfile{Name: "base"}, models.ApiProfile{Name: "video"}, 0)
	require.NoError(t, err)
	require.IsType(t, &OpenAIProvider{}, m.Vision())

	_, err = NewManager("ollama", models.ApiProfile{}, models.ApiProfile{}, 0)
	require.Error(t, err)
}
