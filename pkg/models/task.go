package models

import "time"

// TaskState represents the current state of a task within a run.
type TaskState string

const (
	// TaskPending indicates no worker has claimed the task yet.
	TaskPending TaskState = "pending"
	// TaskClaimed indicates a worker holds the task's lock and is processing it.
	TaskClaimed TaskState = "claimed"
	// TaskCompleted indicates the task was processed successfully.
	TaskCompleted TaskState = "completed"
	// TaskFailed indicates the task processor reported an error.
	TaskFailed TaskState = "failed"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskPending, TaskClaimed, TaskCompleted, TaskFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the state is a final outcome. A task in a
// terminal state is never processed again within a run.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task represents one unit of content work, processed at most once per run
// by exactly one worker.
type Task struct {
	// ID is the stable identifier: the slash-separated path of the content
	// file relative to the content root.
	ID string `json:"id"`
	// Path is the absolute path to the content file.
	Path string `json:"path"`
	// State is the last known state of the task.
	State TaskState `json:"state"`
	// Worker is the ID of the worker that claimed the task, if any.
	Worker string `json:"worker,omitempty"`
	// Error contains the processor error message if the task failed.
	Error string `json:"error,omitempty"`
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
