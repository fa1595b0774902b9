package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learncards/internal/logger"
	"learncards/internal/media"
	"learncards/internal/models"
	"learncards/internal/providers"
	"learncards/internal/tasks"
	"learncards/internal/util"
)

const (
	ProgressExtracting = 0
	ProgressWatching   = 40
	ProgressGenerating = 80

	MessageExtracting = "extracting key frames"
	MessageWatching   = "AI is watching the video"
	MessageGenerating = "generating cards"
)

// Job is one uploaded video waiting to become cards.
type Job struct {
	TaskID    string `json:"taskId"`
	VideoPath string `json:"videoPath"`
	Count     int    `json:"count"`
}

type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string, count int) ([]models.Frame, error)
}

type FrameDescriber interface {
	CompleteFrames(ctx context.Context, frames []models.Frame, count int) (string, error)
}

type Options struct {
	FrameDir   string
	FrameCount int
	Timeout    time.Duration
	Log        *logger.Logger
}

// Pipeline drives one task from upload to cards. The steps are exported so
// a durable runner can schedule them individually.
type Pipeline struct {
	registry  *tasks.Registry
	extractor FrameExtractor
	describer FrameDescriber
	opts      Options
	log       *logger.Logger
}

func New(registry *tasks.Registry, extractor FrameExtractor, describer FrameDescriber, opts Options) *Pipeline {
	if opts.FrameCount <= 0 {
		opts.FrameCount = 4
	}
	return &Pipeline{
		registry:  registry,
		extractor: extractor,
		describer: describer,
		opts:      opts,
		log:       logger.OrNop(opts.Log).With("service", "VideoPipeline"),
	}
}

// Run executes every step in order. The uploaded video and its frames are
// removed when Run returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, job Job) {
	defer p.Cleanup(job)

	ctx = providers.WithTaskID(ctx, job.TaskID)
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.run(ctx, job); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("pipeline timed out after %s: %w", p.opts.Timeout, err)
		}
		p.Fail(ctx, job, err)
		return
	}
	p.log.Info("video task completed", "task_id", job.TaskID, "elapsed", time.Since(start).String())
}

func (p *Pipeline) run(ctx context.Context, job Job) error {
	frames, err := p.Extract(ctx, job)
	if err != nil {
		return err
	}
	raw, err := p.Describe(ctx, job, frames)
	if err != nil {
		return err
	}
	return p.Finish(ctx, job, raw)
}

// Extract renders the key frames and moves the task to the watching stage.
func (p *Pipeline) Extract(ctx context.Context, job Job) ([]models.Frame, error) {
	if err := p.registry.Advance(job.TaskID, ProgressExtracting, MessageExtracting); err != nil {
		return nil, err
	}
	frames, err := p.extractor.ExtractFrames(ctx, job.VideoPath, p.opts.FrameDir, p.opts.FrameCount)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s: %w", job.VideoPath, util.ErrMedia)
	}
	if err := p.registry.Advance(job.TaskID, ProgressWatching, MessageWatching); err != nil {
		return nil, err
	}
	return frames, nil
}

// Describe sends the frames to the vision model and returns its raw reply.
func (p *Pipeline) Describe(ctx context.Context, job Job, frames []models.Frame) (string, error) {
	raw, err := p.describer.CompleteFrames(providers.WithTaskID(ctx, job.TaskID), frames, job.Count)
	if err != nil {
		return "", err
	}
	if err := p.registry.Advance(job.TaskID, ProgressGenerating, MessageGenerating); err != nil {
		return "", err
	}
	return raw, nil
}

// Finish parses the reply and completes the task.
func (p *Pipeline) Finish(ctx context.Context, job Job, raw string) error {
	cards, err := providers.ParseCards(raw)
	if err != nil {
		return err
	}
	return p.registry.Complete(context.WithoutCancel(ctx), job.TaskID, cards)
}

// Fail records err on the task. A task that already finished is left alone.
func (p *Pipeline) Fail(ctx context.Context, job Job, err error) {
	p.log.Error("video task failed", "task_id", job.TaskID, "error", err)
	if ferr := p.registry.Fail(context.WithoutCancel(ctx), job.TaskID, err); ferr != nil {
		p.log.Warn("record task failure", "task_id", job.TaskID, "error", ferr)
	}
}

// Cleanup removes the uploaded video and every frame rendered from it.
func (p *Pipeline) Cleanup(job Job) {
	paths := []string{job.VideoPath}
	if p.opts.FrameDir != "" {
		frames, err := media.FrameGlob(job.VideoPath, p.opts.FrameDir)
		if err != nil {
			p.log.Warn("list frames for cleanup", "task_id", job.TaskID, "error", err)
		}
		paths = append(paths, frames...)
	}
	if err := util.RemoveFiles(paths...); err != nil {
		p.log.Warn("cleanup failed", "task_id", job.TaskID, "error", err)
		return
	}
	p.log.Debug("cleanup done", "task_id", job.TaskID, "files", len(paths))
}
