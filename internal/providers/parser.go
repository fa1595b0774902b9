package providers

import (
	"encoding/json"
	"regexp"
	"strings"

	"learncards/internal/models"
)

var (
	fenceJSON    = regexp.MustCompile("(?i)```json")
	arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// StripCodeFences removes ```json and ``` markers wherever they appear.
func StripCodeFences(s string) string {
	s = fenceJSON.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseCards recovers a card array from a model reply. It tries the
// fence-stripped text as a JSON array first, then the widest [...] span of
// the raw reply. Array elements that do not decode as a card object are
// dropped; card contents are otherwise not checked.
func ParseCards(raw string) ([]models.Card, error) {
	items, err := decodeArray(StripCodeFences(raw))
	if err != nil {
		span := arrayPattern.FindString(raw)
		if span == "" {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		items, err = decodeArray(span)
		if err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
	}

	cards := make([]models.Card, 0, len(items))
	for _, item := range items {
		var c models.Card
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func decodeArray(s string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}
