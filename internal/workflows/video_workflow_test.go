package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"learncards/internal/activities"
	"learncards/internal/models"
	"learncards/internal/pipeline"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerVideoActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ExtractFramesActivity", func(context.Context, activities.ExtractFramesInput) (activities.ExtractFramesOutput, error) {
		return activities.ExtractFramesOutput{}, nil
	})
	registerActivityName(env, "DescribeFramesActivity", func(context.Context, activities.DescribeFramesInput) (activities.DescribeFramesOutput, error) {
		return activities.DescribeFramesOutput{}, nil
	})
	registerActivityName(env, "FinishTaskActivity", func(context.Context, activities.FinishTaskInput) (activities.FinishTaskOutput, error) {
		return activities.FinishTaskOutput{}, nil
	})
	registerActivityName(env, "FailTaskActivity", func(context.Context, activities.FailTaskInput) error { return nil })
	registerActivityName(env, "CleanupVideoActivity", func(context.Context, activities.CleanupVideoInput) error { return nil })
	registerActivityName(env, "LogLLMCallActivity", func(context.Context, activities.LogLLMCallInput) error { return nil })
}

var testJob = pipeline.Job{TaskID: "task-1", VideoPath: "/tmp/uploads/task-1.mp4", Count: 4}

func TestVideoCardsWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VideoCardsWorkflow)
	registerVideoActivities(env)

	frames := []models.Frame{{Path: "/tmp/frames/task-1-frame-1.jpg", TimestampSeconds: 8}}
	env.OnActivity("ExtractFramesActivity", mock.Anything, activities.ExtractFramesInput{Job: testJob}).
		Return(activities.ExtractFramesOutput{Frames: frames}, nil).Once()
	env.OnActivity("DescribeFramesActivity", mock.Anything, activities.DescribeFramesInput{Job: testJob, Frames: frames}).
		Return(activities.DescribeFramesOutput{Raw: "[]", Call: models.LLMCall{CallID: "call-1", Status: "ok"}}, nil).Once()
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil).Once()
	env.OnActivity("FinishTaskActivity", mock.Anything, activities.FinishTaskInput{Job: testJob, Raw: "[]"}).
		Return(activities.FinishTaskOutput{Cards: 4}, nil).Once()
	env.OnActivity("CleanupVideoActivity", mock.Anything, activities.CleanupVideoInput{Job: testJob}).Return(nil).Once()

	env.ExecuteWorkflow(VideoCardsWorkflow, VideoCardsInput{Job: testJob})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
	env.AssertExpectations(t)
	env.AssertNotCalled(t, "FailTaskActivity", mock.Anything, mock.Anything)

	res, err := env.QueryWorkflow(QueryGetProgress)
	require.NoError(t, err)
	var progress VideoProgress
	require.NoError(t, res.Get(&progress))
	require.Equal(t, 100, progress.Progress)
	require.Equal(t, 4, progress.Cards)
}

func TestVideoCardsWorkflowUpstreamFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VideoCardsWorkflow)
	registerVideoActivities(env)

	env.OnActivity("ExtractFramesActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractFramesOutput{Frames: []models.Frame{{TimestampSeconds: 8}}}, nil)
	env.OnActivity("DescribeFramesActivity", mock.Anything, mock.Anything).
		Return(activities.DescribeFramesOutput{Call: models.LLMCall{CallID: "call-1", Status: "error"}, Error: "Provider API Error: 500 boom"}, nil)
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil).Once()
	env.OnActivity("FailTaskActivity", mock.Anything, activities.FailTaskInput{Job: testJob, Reason: "Provider API Error: 500 boom"}).Return(nil).Once()
	env.OnActivity("CleanupVideoActivity", mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(VideoCardsWorkflow, VideoCardsInput{Job: testJob})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
	env.AssertExpectations(t)
	env.AssertNotCalled(t, "FinishTaskActivity", mock.Anything, mock.Anything)
}

func TestVideoCardsWorkflowActivityErrorIsNotRetried(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VideoCardsWorkflow)
	registerVideoActivities(env)

	env.OnActivity("ExtractFramesActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractFramesOutput{}, errors.New("task task-1 is completed: task already finished")).Once()
	env.OnActivity("FailTaskActivity", mock.Anything, mock.Anything).Return(nil).Once()
	env.OnActivity("CleanupVideoActivity", mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(VideoCardsWorkflow, VideoCardsInput{Job: testJob})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
	env.AssertExpectations(t)
	env.AssertNotCalled(t, "DescribeFramesActivity", mock.Anything, mock.Anything)
}

func TestVideoCardsWorkflowSlowStepsShareOneBudget(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VideoCardsWorkflow)
	registerVideoActivities(env)
	// matches Runner.Submit: the step budget plus a minute for fail and cleanup
	env.SetWorkflowRunTimeout(11 * time.Minute)

	env.OnActivity("ExtractFramesActivity", mock.Anything, mock.Anything).
		After(400*time.Second).
		Return(activities.ExtractFramesOutput{Frames: []models.Frame{{TimestampSeconds: 8}}}, nil).Once()
	env.OnActivity("DescribeFramesActivity", mock.Anything, mock.Anything).
		After(400*time.Second).
		Return(activities.DescribeFramesOutput{Raw: "[]"}, nil).Maybe()
	env.OnActivity("FailTaskActivity", mock.Anything, mock.MatchedBy(func(in activities.FailTaskInput) bool {
		return in.Job == testJob && strings.HasPrefix(in.Reason, "pipeline timed out after 10m0s")
	})).Return(nil).Once()
	env.OnActivity("CleanupVideoActivity", mock.Anything, activities.CleanupVideoInput{Job: testJob}).Return(nil).Once()

	env.ExecuteWorkflow(VideoCardsWorkflow, VideoCardsInput{Job: testJob, StepTimeoutSeconds: 600})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
	env.AssertExpectations(t)
	env.AssertNotCalled(t, "FinishTaskActivity", mock.Anything, mock.Anything)
}

func TestWorkflowID(t *testing.T) {
	require.Equal(t, "video-abc", WorkflowID("abc"))
}
