package workflows

import "learncards/internal/pipeline"

type VideoCardsInput struct {
	Job                pipeline.Job `json:"job"`
	StepTimeoutSeconds int          `json:"step_timeout_seconds,omitempty"`
}

type VideoProgress struct {
	TaskID      string            `json:"task_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	Progress    int               `json:"progress"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Cards       int               `json:"cards"`
	Steps       map[string]string `json:"steps"`
}
