package scheduler

import "github.com/hibiken/asynq"

// TaskCadenceRun triggers one complete outreach cadence batch.
const TaskCadenceRun = "cadence:run"

// TaskDigestDaily triggers daily top-5 report generation for all users.
const TaskDigestDaily = "digest:daily"

// Both tasks are zero-argument triggers: the handlers derive everything from
// the database at execution time.

func NewCadenceRunTask() *asynq.Task {
	return asynq.NewTask(TaskCadenceRun, nil)
}

func NewDigestDailyTask() *asynq.Task {
	return asynq.NewTask(TaskDigestDaily, nil)
}
