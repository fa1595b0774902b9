package models

import "time"

type TaskStatus string

const (
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is the polling record for one video upload.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message"`
	Result    []Card     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartTime time.Time  `json:"startTime"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Frame is a rendered still from a source video. The file is temporary.
type Frame struct {
	Path             string `json:"path"`
	TimestampSeconds int    `json:"timestampSeconds"`
}

// ApiProfile holds the credentials and endpoint for one LLM profile.
type ApiProfile struct {
	Name    string `json:"name"`
	Key     string `json:"-"`
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
}

func (p ApiProfile) HasKey() bool {
	return p.Key != ""
}

// LLMCall is one audited chat-completion request.
type LLMCall struct {
	CallID     string    `json:"callId"`
	Operation  string    `json:"operation"`
	TaskID     string    `json:"taskId,omitempty"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Profile    string    `json:"profile"`
	Status     string    `json:"status"`
	ErrorType  string    `json:"errorType,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
