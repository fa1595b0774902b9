package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learncards/internal/pipeline"
	"learncards/internal/util"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Runner submits video jobs to Temporal. Workflow ids are derived from the
// task id so a task can only ever have one run.
type Runner struct {
	client    client.Client
	taskQueue string
	timeout   time.Duration
}

var _ pipeline.Runner = (*Runner)(nil)

func NewRunner(c client.Client, taskQueue string, timeout time.Duration) *Runner {
	return &Runner{client: c, taskQueue: taskQueue, timeout: timeout}
}

func WorkflowID(taskID string) string {
	return "video-" + taskID
}

func (r *Runner) Submit(ctx context.Context, job pipeline.Job) error {
	opts := client.StartWorkflowOptions{
		ID:                                       WorkflowID(job.TaskID),
		TaskQueue:                                r.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	if r.timeout > 0 {
		// room for the disconnected cleanup step after a timed-out run
		opts.WorkflowExecutionTimeout = r.timeout + time.Minute
	}
	_, err := r.client.ExecuteWorkflow(ctx, opts, VideoCardsWorkflow, VideoCardsInput{
		Job:                job,
		StepTimeoutSeconds: int(r.timeout.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("start video workflow for task %s: %w", job.TaskID, err)
	}
	return nil
}

// Progress queries the workflow-side view of a run.
func (r *Runner) Progress(ctx context.Context, taskID string) (VideoProgress, error) {
	resp, err := r.client.QueryWorkflow(ctx, WorkflowID(taskID), "", QueryGetProgress)
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return VideoProgress{}, fmt.Errorf("workflow for task %s: %w", taskID, util.ErrNotFound)
	}
	if err != nil {
		return VideoProgress{}, err
	}
	var out VideoProgress
	if err := resp.Get(&out); err != nil {
		return VideoProgress{}, err
	}
	return out, nil
}
