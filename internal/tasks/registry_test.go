package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"learncards/internal/models"
	"learncards/internal/util"

	"github.com/stretchr/testify/require"
)

type memArchive struct {
	mu    sync.Mutex
	saved map[string]models.Task
	err   error
}

func (a *memArchive) SaveTask(_ context.Context, t models.Task) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.saved == nil {
		a.saved = map[string]models.Task{}
	}
	a.saved[t.ID] = t
	return nil
}

func (a *memArchive) GetTask(_ context.Context, id string) (models.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.saved[id]
	if !ok {
		return models.Task{}, util.ErrNotFound
	}
	return t, nil
}

func TestTaskLifecycleCompleted(t *testing.T) {
	r := NewRegistry(nil, nil)
	task := r.Create()
	require.Equal(t, models.TaskProcessing, task.Status)
	require.Zero(t, task.Progress)
	require.Len(t, task.ID, 36)

	require.NoError(t, r.Advance(task.ID, 40, "AI is watching the video"))
	require.NoError(t, r.Advance(task.ID, 80, "generating cards"))
	got, ok := r.Get(task.ID)
	require.True(t, ok)
	require.Equal(t, 80, got.Progress)

	cards := []models.Card{{Type: models.CardFill, Question: "q", CorrectAnswer: "a"}}
	require.NoError(t, r.Complete(context.Background(), task.ID, cards))
	got, _ = r.Get(task.ID)
	require.Equal(t, models.TaskCompleted, got.Status)
	require.Equal(t, 100, got.Progress)
	require.Equal(t, cards, got.Result)
	require.Empty(t, got.Error)

	// terminal states are never revisited
	require.ErrorIs(t, r.Advance(task.ID, 90, "late"), ErrTerminal)
	require.ErrorIs(t, r.Fail(context.Background(), task.ID, errors.New("late")), ErrTerminal)
	got, _ = r.Get(task.ID)
	require.Equal(t, models.TaskCompleted, got.Status)
}

func TestTaskLifecycleFailed(t *testing.T) {
	r := NewRegistry(nil, nil)
	task := r.Create()
	require.NoError(t, r.Fail(context.Background(), task.ID, errors.New("Provider API Error: 500 boom")))

	got, _ := r.Get(task.ID)
	require.Equal(t, models.TaskFailed, got.Status)
	require.Equal(t, "Provider API Error: 500 boom", got.Error)
	require.Nil(t, got.Result)
	require.ErrorIs(t, r.Complete(context.Background(), task.ID, nil), ErrTerminal)
}

func TestProgressNeverDecreases(t *testing.T) {
	r := NewRegistry(nil, nil)
	task := r.Create()
	require.NoError(t, r.Advance(task.ID, 80, "generating cards"))
	require.NoError(t, r.Advance(task.ID, 40, "stale"))
	got, _ := r.Get(task.ID)
	require.Equal(t, 80, got.Progress)
}

func TestUnknownTask(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, ok := r.Get("missing")
	require.False(t, ok)
	require.ErrorIs(t, r.Advance("missing", 10, "x"), util.ErrNotFound)
	_, err := r.Lookup(context.Background(), "missing")
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry(nil, nil)
	task := r.Create()
	require.NoError(t, r.Complete(context.Background(), task.ID, []models.Card{{Type: models.CardFill, Question: "q"}}))

	got, _ := r.Get(task.ID)
	got.Result[0].Question = "mutated"
	got.Status = models.TaskFailed

	again, _ := r.Get(task.ID)
	require.Equal(t, "q", again.Result[0].Question)
	require.Equal(t, models.TaskCompleted, again.Status)
}

func TestArchiveFallback(t *testing.T) {
	archive := &memArchive{}
	r := NewRegistry(archive, nil)
	task := r.Create()
	require.NoError(t, r.Complete(context.Background(), task.ID, nil))
	require.Contains(t, archive.saved, task.ID)

	restarted := NewRegistry(archive, nil)
	got, err := restarted.Lookup(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskCompleted, got.Status)
}

func TestArchiveFailureDoesNotChangeTask(t *testing.T) {
	r := NewRegistry(&memArchive{err: errors.New("db down")}, nil)
	task := r.Create()
	require.NoError(t, r.Complete(context.Background(), task.ID, nil))
	got, _ := r.Get(task.ID)
	require.Equal(t, models.TaskCompleted, got.Status)
}

func TestConcurrentReadersSingleWriter(t *testing.T) {
	r := NewRegistry(nil, nil)
	task := r.Create()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.Get(task.ID)
				_ = r.List()
			}
		}()
	}
	for p := 1; p <= 99; p++ {
		require.NoError(t, r.Advance(task.ID, p, "working"))
	}
	wg.Wait()
	require.Len(t, r.List(), 1)
}
