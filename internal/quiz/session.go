package quiz

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"learncards/internal/models"
)

var (
	ErrNoAnswer        = errors.New("no answer given")
	ErrAlreadyAnswered = errors.New("card already answered")
	ErrWrongCardType   = errors.New("answer does not match card type")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusCorrect Status = "correct"
	StatusWrong   Status = "wrong"
)

// CardState is one displayed card plus what the user did with it.
type CardState struct {
	Index      int         `json:"index"`
	Card       models.Card `json:"card"`
	Status     Status      `json:"status"`
	UserAnswer string      `json:"userAnswer,omitempty"`
}

// Filter selects cards for display. An empty Type or "all" keeps every card;
// "wrong" keeps wrongly answered cards; anything else is an exact card type.
type Filter struct {
	Query string
	Type  string
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Correct   int `json:"correct"`
	Wrong     int `json:"wrong"`
	Accuracy  int `json:"accuracy"`
	Progress  int `json:"progress"`
}

// Session tracks answers for one generated card set. Only supported,
// well-formed cards are kept; each one is answered at most once.
type Session struct {
	mu    sync.RWMutex
	cards []CardState
}

func NewSession(cards []models.Card) *Session {
	supported := models.SupportedCards(cards)
	states := make([]CardState, len(supported))
	for i, c := range supported {
		states[i] = CardState{Index: i, Card: c, Status: StatusPending}
	}
	return &Session{cards: states}
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// Cards returns a snapshot of every card state.
func (s *Session) Cards() []CardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CardState(nil), s.cards...)
}

func (s *Session) Card(i int) (CardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.cards) {
		return CardState{}, fmt.Errorf("card %d out of range", i)
	}
	return s.cards[i], nil
}

// Filtered applies f without changing the session.
func (s *Session) Filtered(f Filter) []CardState {
	match := questionMatcher(f.Query)
	kind := strings.ToLower(strings.TrimSpace(f.Type))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CardState, 0, len(s.cards))
	for _, c := range s.cards {
		switch kind {
		case "", "all":
		case "wrong":
			if c.Status != StatusWrong {
				continue
			}
		default:
			if string(c.Card.Type) != kind {
				continue
			}
		}
		if !match(c.Card.Question) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// questionMatcher treats the query as a case-insensitive regular expression
// and falls back to a substring match when it does not compile.
func questionMatcher(query string) func(string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return func(string) bool { return true }
	}
	if re, err := regexp.Compile("(?i)" + query); err == nil {
		return re.MatchString
	}
	lower := strings.ToLower(query)
	return func(q string) bool { return strings.Contains(strings.ToLower(q), lower) }
}

// SubmitOption grades a choice or boolean card. option < 0 means nothing was
// selected.
func (s *Session) SubmitOption(i, option int) (CardState, error) {
	return s.submit(i, func(c models.Card) (bool, string, error) {
		if c.Type != models.CardChoice && c.Type != models.CardBoolean {
			return false, "", ErrWrongCardType
		}
		opts := c.DisplayOptions()
		if option < 0 || option >= len(opts) {
			return false, "", ErrNoAnswer
		}
		return option == *c.CorrectIndex, opts[option], nil
	})
}

// SubmitFill grades a fill-in card by trimmed, case-insensitive equality.
// Both sides are trimmed and compared with Unicode case folding, a slightly
// looser match than lowercasing the input alone.
func (s *Session) SubmitFill(i int, input string) (CardState, error) {
	return s.submit(i, func(c models.Card) (bool, string, error) {
		if c.Type != models.CardFill {
			return false, "", ErrWrongCardType
		}
		answer := strings.TrimSpace(input)
		if answer == "" {
			return false, "", ErrNoAnswer
		}
		return strings.EqualFold(answer, strings.TrimSpace(c.CorrectAnswer)), answer, nil
	})
}

func (s *Session) submit(i int, grade func(models.Card) (bool, string, error)) (CardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cards) {
		return CardState{}, fmt.Errorf("card %d out of range", i)
	}
	st := &s.cards[i]
	if st.Status != StatusPending {
		return *st, ErrAlreadyAnswered
	}
	ok, answer, err := grade(st.Card)
	if err != nil {
		return *st, err
	}
	st.UserAnswer = answer
	if ok {
		st.Status = StatusCorrect
	} else {
		st.Status = StatusWrong
	}
	return *st, nil
}

func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statsOf(s.cards)
}

func statsOf(cards []CardState) Stats {
	st := Stats{Total: len(cards)}
	for _, c := range cards {
		switch c.Status {
		case StatusCorrect:
			st.Correct++
		case StatusWrong:
			st.Wrong++
		}
	}
	st.Completed = st.Correct + st.Wrong
	st.Accuracy = percent(st.Correct, st.Completed)
	st.Progress = percent(st.Completed, st.Total)
	return st
}

func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(d) * 100))
}
