package models

import "testing"

func TestTaskStateValid(t *testing.T) {
	valid := []TaskState{TaskPending, TaskClaimed, TaskCompleted, TaskFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}

	invalid := []TaskState{"", "done", "in_progress", "PENDING"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestTaskStateTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
	}{
		{TaskPending, false},
		{TaskClaimed, false},
		{TaskCompleted, true},
		{TaskFailed, true},
	}

	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%q.Terminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}
