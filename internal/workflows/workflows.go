package workflows

import (
	"context"
	"fmt"
	"time"

	"learncards/internal/activities"
	"learncards/internal/pipeline"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "GetProgress"

// bookkeepingTimeout bounds the fail, audit and cleanup activities, which run
// after the step budget. Runner leaves a minute of execution time for them.
const bookkeepingTimeout = 20 * time.Second

// VideoCardsWorkflow runs the video pipeline as one activity per step. No
// step is retried. The steps share one budget of StepTimeoutSeconds; when it
// runs out the running step is cancelled and the task fails. The upload and
// its frames are removed however the workflow ends.
func VideoCardsWorkflow(ctx workflow.Context, input VideoCardsInput) (string, error) {
	job := input.Job
	status := VideoProgress{
		TaskID:      job.TaskID,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (VideoProgress, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	budget := durationOrDefault(input.StepTimeoutSeconds, 600)
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: bookkeepingTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	stepCtx, cancelSteps := workflow.WithCancel(workflow.WithStartToCloseTimeout(ctx, budget))
	defer cancelSteps()

	timedOut := false
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()
	workflow.Go(timerCtx, func(gctx workflow.Context) {
		if err := workflow.NewTimer(gctx, budget).Get(gctx, nil); err != nil {
			return
		}
		timedOut = true
		cancelSteps()
	})

	defer func() {
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		if err := workflow.ExecuteActivity(cleanupCtx, "CleanupVideoActivity", activities.CleanupVideoInput{Job: job}).Get(cleanupCtx, nil); err != nil {
			workflow.GetLogger(ctx).Warn("cleanup failed", "task_id", job.TaskID, "error", err)
		}
	}()

	fail := func(reason string) (string, error) {
		if timedOut {
			reason = fmt.Errorf("pipeline timed out after %s: %w", budget, context.DeadlineExceeded).Error()
		}
		status.Status = "failed"
		status.FailReason = reason
		status.Steps[status.CurrentStep] = "failed"
		_ = workflow.ExecuteActivity(ctx, "FailTaskActivity", activities.FailTaskInput{Job: job, Reason: reason}).Get(ctx, nil)
		return status.Status, nil
	}

	status.CurrentStep = "extract_frames"
	status.Steps[status.CurrentStep] = "processing"
	var extractOut activities.ExtractFramesOutput
	if err := workflow.ExecuteActivity(stepCtx, "ExtractFramesActivity", activities.ExtractFramesInput{Job: job}).Get(stepCtx, &extractOut); err != nil {
		return fail(err.Error())
	}
	if extractOut.Error != "" {
		return fail(extractOut.Error)
	}
	status.Steps[status.CurrentStep] = "done"
	status.Progress = pipeline.ProgressWatching

	status.CurrentStep = "describe_frames"
	status.Steps[status.CurrentStep] = "processing"
	var describeOut activities.DescribeFramesOutput
	if err := workflow.ExecuteActivity(stepCtx, "DescribeFramesActivity", activities.DescribeFramesInput{Job: job, Frames: extractOut.Frames}).Get(stepCtx, &describeOut); err != nil {
		return fail(err.Error())
	}
	if describeOut.Call.CallID != "" {
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Call: describeOut.Call}).Get(ctx, nil)
	}
	if describeOut.Error != "" {
		return fail(describeOut.Error)
	}
	status.Steps[status.CurrentStep] = "done"
	status.Progress = pipeline.ProgressGenerating

	status.CurrentStep = "finish"
	status.Steps[status.CurrentStep] = "processing"
	var finishOut activities.FinishTaskOutput
	if err := workflow.ExecuteActivity(stepCtx, "FinishTaskActivity", activities.FinishTaskInput{Job: job, Raw: describeOut.Raw}).Get(stepCtx, &finishOut); err != nil {
		return fail(err.Error())
	}
	if finishOut.Error != "" {
		return fail(finishOut.Error)
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = "completed"
	status.Progress = 100
	status.Cards = finishOut.Cards
	return status.Status, nil
}

func durationOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
