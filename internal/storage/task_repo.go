package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learncards/internal/models"
	"learncards/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TaskRepo archives finished tasks.
type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) SaveTask(ctx context.Context, t models.Task) error {
	var result []byte
	if t.Result != nil {
		b, err := json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("encode task result: %w", err)
		}
		result = b
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO tasks (task_id, status, progress, message, result, error, start_time, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, NULLIF($6,''), $7, $8)
ON CONFLICT (task_id)
DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  message = EXCLUDED.message,
  result = EXCLUDED.result,
  error = EXCLUDED.error,
  updated_at = EXCLUDED.updated_at`,
		t.ID, string(t.Status), t.Progress, t.Message, result, t.Error, t.StartTime, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepo) GetTask(ctx context.Context, id string) (models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Task{}, util.ErrNotFound
	}
	var (
		t      models.Task
		status string
		result []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT task_id::text, status, progress, message, result, COALESCE(error,''), start_time, updated_at
FROM tasks
WHERE task_id=$1::uuid`, id).Scan(&t.ID, &status, &t.Progress, &t.Message, &result, &t.Error, &t.StartTime, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, util.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	t.Status = models.TaskStatus(status)
	if len(result) > 0 {
		if err := json.Unmarshal(result, &t.Result); err != nil {
			return models.Task{}, fmt.Errorf("decode task result: %w", err)
		}
	}
	return t, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
