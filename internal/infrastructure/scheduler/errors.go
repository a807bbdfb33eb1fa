package scheduler

import "errors"

// Submission errors
var (
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	ErrJobQueueFull        = errors.New("scheduler: job queue full, sweep will retry next tick")
)

// Configuration errors, wrapped with the offending value
var (
	ErrInvalidSchedule = errors.New("scheduler: invalid cron expression")
	ErrInvalidConfig   = errors.New("scheduler: invalid configuration")
)
