package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"learncards/internal/models"
)

var secondPattern = regexp.MustCompile(`at second (\d+)`)

// MockProvider returns a deterministic card array without any network call.
// It cycles through the supported card types and echoes frame timestamps
// found in the request captions.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Complete(ctx context.Context, req ChatRequest) (string, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: "mock-cards-v1", Profile: "mock"}
	if err := ctx.Err(); err != nil {
		return "", info, &UpstreamError{Err: err}
	}
	count := req.Count
	if count <= 0 {
		count = 3
	}

	var seconds []int
	for _, p := range req.User {
		if match := secondPattern.FindStringSubmatch(p.Text); match != nil {
			n, _ := strconv.Atoi(match[1])
			seconds = append(seconds, n)
		}
	}

	cards := make([]models.Card, 0, count)
	for i := 0; i < count; i++ {
		var c models.Card
		switch i % 3 {
		case 0:
			c = models.Card{
				Type:         models.CardChoice,
				Question:     fmt.Sprintf("Mock question %d: which option is correct?", i+1),
				Options:      []string{"Option A", "Option B", "Option C", "Option D"},
				CorrectIndex: models.IntPtr(i % 4),
				Explanation:  "Deterministic mock output.",
			}
		case 1:
			c = models.Card{
				Type:         models.CardBoolean,
				Question:     fmt.Sprintf("Mock statement %d is true.", i+1),
				CorrectIndex: models.IntPtr(0),
				Explanation:  "Deterministic mock output.",
			}
		default:
			c = models.Card{
				Type:          models.CardFill,
				Question:      fmt.Sprintf("Mock blank %d: the answer is ____.", i+1),
				CorrectAnswer: "mock",
				Explanation:   "Deterministic mock output.",
			}
		}
		if len(seconds) > 0 {
			c.Timestamp = models.IntPtr(seconds[i%len(seconds)])
		}
		cards = append(cards, c)
	}

	out, err := json.Marshal(cards)
	if err != nil {
		return "", info, err
	}
	return string(out), info, nil
}
