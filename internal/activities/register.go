package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ExtractFramesActivity)
	w.RegisterActivity(a.DescribeFramesActivity)
	w.RegisterActivity(a.FinishTaskActivity)
	w.RegisterActivity(a.FailTaskActivity)
	w.RegisterActivity(a.CleanupVideoActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
}
