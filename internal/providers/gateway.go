package providers

import (
	"context"
	"time"

	"learncards/internal/logger"
	"learncards/internal/models"

	"github.com/google/uuid"
)

const defaultTemperature float32 = 0.7

// AuditFunc receives one record per chat completion. Implementations must
// not block for long; failures are theirs to log.
type AuditFunc func(ctx context.Context, call models.LLMCall)

type taskIDKey struct{}

// WithTaskID tags ctx so that audit records can be joined to a task.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, taskID)
}

func taskIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey{}).(string)
	return id
}

type GatewayOptions struct {
	DefaultCount int
	Audit        AuditFunc
	Log          *logger.Logger
}

// Gateway turns source material into card arrays.
type Gateway struct {
	text   LLMProvider
	vision LLMProvider
	opts   GatewayOptions
	log    *logger.Logger
}

func NewGateway(text, vision LLMProvider, opts GatewayOptions) *Gateway {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 5
	}
	return &Gateway{text: text, vision: vision, opts: opts, log: logger.OrNop(opts.Log)}
}

func (g *Gateway) count(n int) int {
	if n <= 0 {
		return g.opts.DefaultCount
	}
	return n
}

// GenerateFromText sends text to the base profile and parses the reply.
// On a ParseError the raw reply is available on the error.
func (g *Gateway) GenerateFromText(ctx context.Context, text string, count int) ([]models.Card, error) {
	count = g.count(count)
	raw, call, err := g.complete(ctx, g.text, ChatRequest{
		Operation:   "generate_text",
		System:      textSystemPrompt(count),
		User:        textParts(text),
		Count:       count,
		Temperature: defaultTemperature,
	})
	g.audit(ctx, call)
	if err != nil {
		return nil, err
	}
	return ParseCards(raw)
}

// DescribeFrames sends frames to the video profile and returns the raw reply
// together with its audit record. Nothing is recorded.
func (g *Gateway) DescribeFrames(ctx context.Context, frames []models.Frame, count int) (string, models.LLMCall, error) {
	count = g.count(count)
	parts, err := frameParts(frames)
	if err != nil {
		return "", models.LLMCall{}, err
	}
	return g.complete(ctx, g.vision, ChatRequest{
		Operation:   "generate_video",
		System:      videoSystemPrompt(count),
		User:        parts,
		Count:       count,
		Temperature: defaultTemperature,
	})
}

// CompleteFrames is DescribeFrames followed by the audit hook.
func (g *Gateway) CompleteFrames(ctx context.Context, frames []models.Frame, count int) (string, error) {
	raw, call, err := g.DescribeFrames(ctx, frames, count)
	if call.CallID != "" {
		g.audit(ctx, call)
	}
	return raw, err
}

func (g *Gateway) GenerateFromFrames(ctx context.Context, frames []models.Frame, count int) ([]models.Card, error) {
	raw, err := g.CompleteFrames(ctx, frames, count)
	if err != nil {
		return nil, err
	}
	return ParseCards(raw)
}

func (g *Gateway) complete(ctx context.Context, p LLMProvider, req ChatRequest) (string, models.LLMCall, error) {
	start := time.Now()
	raw, info, err := p.Complete(ctx, req)
	call := models.LLMCall{
		CallID:     uuid.NewString(),
		Operation:  req.Operation,
		TaskID:     taskIDFrom(ctx),
		Provider:   info.Name,
		Model:      info.Model,
		Profile:    info.Profile,
		Status:     "ok",
		DurationMS: time.Since(start).Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	if err != nil {
		call.Status = "error"
		call.ErrorType = string(ClassifyError(err))
		g.log.Warn("llm call failed",
			"operation", req.Operation,
			"provider", info.Name,
			"model", info.Model,
			"error_type", call.ErrorType,
			"error", err,
		)
		return "", call, err
	}
	g.log.Debug("llm call completed",
		"operation", req.Operation,
		"provider", info.Name,
		"model", info.Model,
		"duration_ms", call.DurationMS,
	)
	return raw, call, nil
}

func (g *Gateway) audit(ctx context.Context, call models.LLMCall) {
	if g.opts.Audit == nil {
		return
	}
	g.opts.Audit(ctx, call)
}
