package activities

import (
	"context"
	"errors"

	"learncards/internal/logger"
	"learncards/internal/pipeline"
	"learncards/internal/providers"
	"learncards/internal/tasks"
)

// Activities exposes the video pipeline steps to a Temporal worker running
// in the same process as the task registry.
type Activities struct {
	pipeline *pipeline.Pipeline
	registry *tasks.Registry
	gateway  *providers.Gateway
	audit    providers.AuditFunc
	log      *logger.Logger
}

// New wires the steps. gateway should not carry its own audit hook; calls
// are recorded through LogLLMCallActivity instead.
func New(p *pipeline.Pipeline, registry *tasks.Registry, gateway *providers.Gateway, audit providers.AuditFunc, log *logger.Logger) *Activities {
	return &Activities{
		pipeline: p,
		registry: registry,
		gateway:  gateway,
		audit:    audit,
		log:      logger.OrNop(log).With("service", "VideoActivities"),
	}
}

func (a *Activities) ExtractFramesActivity(ctx context.Context, in ExtractFramesInput) (ExtractFramesOutput, error) {
	frames, err := a.pipeline.Extract(ctx, in.Job)
	if errors.Is(err, tasks.ErrTerminal) {
		return ExtractFramesOutput{}, err
	}
	if err != nil {
		return ExtractFramesOutput{Error: err.Error()}, nil
	}
	return ExtractFramesOutput{Frames: frames}, nil
}

func (a *Activities) DescribeFramesActivity(ctx context.Context, in DescribeFramesInput) (DescribeFramesOutput, error) {
	ctx = providers.WithTaskID(ctx, in.Job.TaskID)
	raw, call, err := a.gateway.DescribeFrames(ctx, in.Frames, in.Job.Count)
	if err != nil {
		return DescribeFramesOutput{Call: call, Error: err.Error()}, nil
	}
	if err := a.registry.Advance(in.Job.TaskID, pipeline.ProgressGenerating, pipeline.MessageGenerating); err != nil {
		return DescribeFramesOutput{}, err
	}
	return DescribeFramesOutput{Raw: raw, Call: call}, nil
}

func (a *Activities) FinishTaskActivity(ctx context.Context, in FinishTaskInput) (FinishTaskOutput, error) {
	if err := a.pipeline.Finish(ctx, in.Job, in.Raw); err != nil {
		if errors.Is(err, tasks.ErrTerminal) {
			return FinishTaskOutput{}, err
		}
		return FinishTaskOutput{Error: err.Error()}, nil
	}
	task, _ := a.registry.Get(in.Job.TaskID)
	return FinishTaskOutput{Cards: len(task.Result)}, nil
}

func (a *Activities) FailTaskActivity(ctx context.Context, in FailTaskInput) error {
	a.pipeline.Fail(ctx, in.Job, errors.New(in.Reason))
	return nil
}

func (a *Activities) CleanupVideoActivity(ctx context.Context, in CleanupVideoInput) error {
	_ = ctx
	a.pipeline.Cleanup(in.Job)
	return nil
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	if in.Call.CallID == "" {
		return nil
	}
	if a.audit != nil {
		a.audit(ctx, in.Call)
		return nil
	}
	a.log.Info("llm call", "call_id", in.Call.CallID, "task_id", in.Call.TaskID, "status", in.Call.Status, "error_type", in.Call.ErrorType)
	return nil
}

