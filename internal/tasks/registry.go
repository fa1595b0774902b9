package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"learncards/internal/logger"
	"learncards/internal/models"
	"learncards/internal/util"

	"github.com/google/uuid"
)

var ErrTerminal = errors.New("task already finished")

// Archive persists finished tasks so they outlive the process.
type Archive interface {
	SaveTask(ctx context.Context, task models.Task) error
	GetTask(ctx context.Context, id string) (models.Task, error)
}

// Registry is the in-memory task table. Each task has a single writer (its
// pipeline run) while handlers read concurrently. Tasks are never evicted.
type Registry struct {
	mu      sync.RWMutex
	tasks   map[string]*models.Task
	archive Archive
	log     *logger.Logger
	now     func() time.Time
}

func NewRegistry(archive Archive, log *logger.Logger) *Registry {
	return &Registry{
		tasks:   make(map[string]*models.Task),
		archive: archive,
		log:     logger.OrNop(log),
		now:     time.Now,
	}
}

func (r *Registry) Create() models.Task {
	now := r.now().UTC()
	t := &models.Task{
		ID:        uuid.NewString(),
		Status:    models.TaskProcessing,
		Progress:  0,
		Message:   "queued",
		StartTime: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()
	return clone(t)
}

// Get returns a copy of the in-memory task.
func (r *Registry) Get(id string) (models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return clone(t), true
}

// Lookup checks memory first, then the archive when one is configured.
func (r *Registry) Lookup(ctx context.Context, id string) (models.Task, error) {
	if t, ok := r.Get(id); ok {
		return t, nil
	}
	if r.archive != nil {
		t, err := r.archive.GetTask(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, util.ErrNotFound) {
			return models.Task{}, fmt.Errorf("lookup task %s: %w", id, err)
		}
	}
	return models.Task{}, fmt.Errorf("task %s: %w", id, util.ErrNotFound)
}

func (r *Registry) List() []models.Task {
	r.mu.RLock()
	out := make([]models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, clone(t))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Advance records a progress checkpoint on a processing task.
func (r *Registry) Advance(id string, progress int, message string) error {
	_, err := r.update(id, func(t *models.Task) {
		if progress > t.Progress {
			t.Progress = progress
		}
		t.Message = message
	})
	return err
}

func (r *Registry) Complete(ctx context.Context, id string, cards []models.Card) error {
	t, err := r.update(id, func(t *models.Task) {
		t.Status = models.TaskCompleted
		t.Progress = 100
		t.Message = "done"
		t.Result = append([]models.Card(nil), cards...)
	})
	if err != nil {
		return err
	}
	r.persist(ctx, t)
	return nil
}

func (r *Registry) Fail(ctx context.Context, id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	t, err := r.update(id, func(t *models.Task) {
		t.Status = models.TaskFailed
		t.Message = "failed"
		t.Error = msg
	})
	if err != nil {
		return err
	}
	r.persist(ctx, t)
	return nil
}

func (r *Registry) update(id string, fn func(t *models.Task)) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("task %s: %w", id, util.ErrNotFound)
	}
	if t.Status.Terminal() {
		return models.Task{}, fmt.Errorf("task %s is %s: %w", id, t.Status, ErrTerminal)
	}
	fn(t)
	t.UpdatedAt = r.now().UTC()
	return clone(t), nil
}

func (r *Registry) persist(ctx context.Context, t models.Task) {
	if r.archive == nil {
		return
	}
	if err := r.archive.SaveTask(ctx, t); err != nil {
		r.log.Warn("archive task failed", "task_id", t.ID, "status", t.Status, "error", err)
	}
}

func clone(t *models.Task) models.Task {
	out := *t
	if t.Result != nil {
		out.Result = append([]models.Card(nil), t.Result...)
	}
	return out
}
