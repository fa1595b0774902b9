package models

import (
	"fmt"
	"strings"
)

type CardType string

const (
	CardChoice  CardType = "choice"
	CardBoolean CardType = "boolean"
	CardFill    CardType = "fill"
)

var supportedCardTypes = map[CardType]struct{}{
	CardChoice:  {},
	CardBoolean: {},
	CardFill:    {},
}

// DefaultBooleanOptions are shown for boolean cards that arrive without options.
var DefaultBooleanOptions = []string{"True", "False"}

type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Card is one quiz item as produced by the model. Only Type and Question are
// common to every variant; the remaining fields depend on Type.
type Card struct {
	Type          CardType `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectIndex  *int     `json:"correctIndex,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Pairs         []Pair   `json:"pairs,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Timestamp     *int     `json:"timestamp,omitempty"`
	Size          string   `json:"size,omitempty"`
}

func IsSupportedType(t CardType) bool {
	_, ok := supportedCardTypes[t]
	return ok
}

// Supported reports whether the card's type can be rendered.
func (c Card) Supported() bool {
	return IsSupportedType(c.Type)
}

// DisplayOptions returns the options a user picks from. Boolean cards fall
// back to DefaultBooleanOptions.
func (c Card) DisplayOptions() []string {
	if len(c.Options) > 0 {
		return c.Options
	}
	if c.Type == CardBoolean {
		return DefaultBooleanOptions
	}
	return nil
}

// Validate checks the per-variant required fields.
func (c Card) Validate() error {
	if !c.Supported() {
		return fmt.Errorf("unsupported card type %q", c.Type)
	}
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("%s card has empty question", c.Type)
	}
	switch c.Type {
	case CardChoice, CardBoolean:
		opts := c.DisplayOptions()
		if len(opts) < 2 {
			return fmt.Errorf("%s card needs at least two options", c.Type)
		}
		if c.CorrectIndex == nil {
			return fmt.Errorf("%s card missing correctIndex", c.Type)
		}
		if *c.CorrectIndex < 0 || *c.CorrectIndex >= len(opts) {
			return fmt.Errorf("%s card correctIndex %d out of range", c.Type, *c.CorrectIndex)
		}
	case CardFill:
		if strings.TrimSpace(c.CorrectAnswer) == "" {
			return fmt.Errorf("fill card missing correctAnswer")
		}
	}
	return nil
}

// ExpectedAnswer renders the correct answer as display text.
func (c Card) ExpectedAnswer() string {
	switch c.Type {
	case CardFill:
		return c.CorrectAnswer
	case CardChoice, CardBoolean:
		opts := c.DisplayOptions()
		if c.CorrectIndex != nil && *c.CorrectIndex >= 0 && *c.CorrectIndex < len(opts) {
			return opts[*c.CorrectIndex]
		}
	}
	return ""
}

// TypeLabel is the human-readable card kind.
func (c Card) TypeLabel() string {
	switch c.Type {
	case CardChoice:
		return "Multiple choice"
	case CardBoolean:
		return "True / false"
	case CardFill:
		return "Fill in the blank"
	default:
		return "Practice"
	}
}

// SupportedCards keeps the renderable, shape-valid cards in order.
func SupportedCards(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.Validate() != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

func IntPtr(v int) *int {
	return &v
}
