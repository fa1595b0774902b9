package providers

import (
	"fmt"
	"strings"
	"time"

	"learncards/internal/models"
)

// Manager holds the provider pair used for text and video requests.
type Manager struct {
	text   LLMProvider
	vision LLMProvider
	kind   string
}

// NewManager builds providers for the base and video profiles. kind selects
// the implementation: "openai" (default) or "mock".
func NewManager(kind string, base, video models.ApiProfile, timeout time.Duration) (*Manager, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = "openai"
	}
	m := &Manager{kind: kind}
	switch kind {
	case "mock":
		m.text = NewMockProvider()
		m.vision = m.text
	case "openai":
		m.text = NewOpenAIProvider(base, timeout)
		m.vision = NewOpenAIProvider(video, timeout)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", kind)
	}
	return m, nil
}

func (m *Manager) Text() LLMProvider   { return m.text }
func (m *Manager) Vision() LLMProvider { return m.vision }
func (m *Manager) Kind() string        { return m.kind }
