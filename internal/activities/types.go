package activities

import (
	"learncards/internal/models"
	"learncards/internal/pipeline"
)

// Domain failures travel in the Error fields instead of as activity errors so
// the workflow can record them on the task verbatim.

type ExtractFramesInput struct {
	Job pipeline.Job `json:"job"`
}

type ExtractFramesOutput struct {
	Frames []models.Frame `json:"frames"`
	Error  string         `json:"error,omitempty"`
}

type DescribeFramesInput struct {
	Job    pipeline.Job   `json:"job"`
	Frames []models.Frame `json:"frames"`
}

type DescribeFramesOutput struct {
	Raw   string         `json:"raw"`
	Call  models.LLMCall `json:"call"`
	Error string         `json:"error,omitempty"`
}

type FinishTaskInput struct {
	Job pipeline.Job `json:"job"`
	Raw string       `json:"raw"`
}

type FinishTaskOutput struct {
	Cards int    `json:"cards"`
	Error string `json:"error,omitempty"`
}

type FailTaskInput struct {
	Job    pipeline.Job `json:"job"`
	Reason string       `json:"reason"`
}

type CleanupVideoInput struct {
	Job pipeline.Job `json:"job"`
}

type LogLLMCallInput struct {
	Call models.LLMCall `json:"call"`
}
