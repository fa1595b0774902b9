package quiz

import (
	"fmt"
	"io"
	"strings"

	"learncards/internal/models"
)

type TypeBreakdown struct {
	Type  models.CardType `json:"type"`
	Label string          `json:"label"`
	Stats Stats           `json:"stats"`
}

type ReviewItem struct {
	Index       int    `json:"index"`
	Question    string `json:"question"`
	UserAnswer  string `json:"userAnswer"`
	Expected    string `json:"expected"`
	Explanation string `json:"explanation,omitempty"`
	Timestamp   *int   `json:"timestamp,omitempty"`
}

// Report summarises a session once the user is done.
type Report struct {
	Stats  Stats           `json:"stats"`
	ByType []TypeBreakdown `json:"byType"`
	Review []ReviewItem    `json:"review"`
}

func (s *Session) Report() Report {
	cards := s.Cards()
	r := Report{Stats: statsOf(cards), Review: []ReviewItem{}}
	for _, t := range []models.CardType{models.CardChoice, models.CardBoolean, models.CardFill} {
		var subset []CardState
		for _, c := range cards {
			if c.Card.Type == t {
				subset = append(subset, c)
			}
		}
		if len(subset) == 0 {
			continue
		}
		r.ByType = append(r.ByType, TypeBreakdown{Type: t, Label: subset[0].Card.TypeLabel(), Stats: statsOf(subset)})
	}
	for _, c := range cards {
		if c.Status != StatusWrong {
			continue
		}
		r.Review = append(r.Review, ReviewItem{
			Index:       c.Index,
			Question:    c.Card.Question,
			UserAnswer:  c.UserAnswer,
			Expected:    c.Card.ExpectedAnswer(),
			Explanation: c.Card.Explanation,
			Timestamp:   c.Card.Timestamp,
		})
	}
	return r
}

// WriteText prints the report for a terminal.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d/%d (%d%%), correct %d, wrong %d, accuracy %d%%\n",
		r.Stats.Completed, r.Stats.Total, r.Stats.Progress, r.Stats.Correct, r.Stats.Wrong, r.Stats.Accuracy)
	for _, t := range r.ByType {
		fmt.Fprintf(&b, "  %-18s %d/%d correct\n", t.Label, t.Stats.Correct, t.Stats.Total)
	}
	if len(r.Review) > 0 {
		b.WriteString("Review:\n")
	}
	for _, item := range r.Review {
		fmt.Fprintf(&b, "  #%d %s\n", item.Index+1, item.Question)
		if item.Timestamp != nil {
			fmt.Fprintf(&b, "     at %s\n", FormatTimestamp(*item.Timestamp))
		}
		fmt.Fprintf(&b, "     your answer: %s\n     expected:    %s\n", item.UserAnswer, item.Expected)
		if item.Explanation != "" {
			fmt.Fprintf(&b, "     %s\n", item.Explanation)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatTimestamp renders seconds as m:ss.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
