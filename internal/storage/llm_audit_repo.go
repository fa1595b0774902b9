package storage

import (
	"context"
	"fmt"

	"learncards/internal/models"
)

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, call models.LLMCall) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, task_id, provider_name, model, profile, status, error_type, duration_ms, created_at)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,'')::uuid, $4, $5, $6, $7, NULLIF($8,''), $9, COALESCE($10, NOW()))
ON CONFLICT (call_id) DO NOTHING`,
		call.CallID, call.Operation, call.TaskID, call.Provider, call.Model, call.Profile, call.Status, call.ErrorType, call.DurationMS, nullTime(call.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// CountByTask returns how many calls were recorded for a task.
func (r *LLMAuditRepo) CountByTask(ctx context.Context, taskID string) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM llm_calls WHERE task_id=$1::uuid`, taskID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count llm calls: %w", err)
	}
	return n, nil
}
