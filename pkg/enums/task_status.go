package enums

import "fmt"

// TaskStatus is the lifecycle of a deferred task row.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
	TaskStatusDropped TaskStatus = "dropped"
)

var validTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusRunning,
	TaskStatusDone,
	TaskStatusFailed,
	TaskStatusDropped,
}

// IsValid reports whether the value matches a known task status.
func (v TaskStatus) IsValid() bool {
	for _, candidate := range validTaskStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v TaskStatus) String() string {
	return string(v)
}

// ParseTaskStatus converts raw input into TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, error) {
	for _, candidate := range validTaskStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q", value)
}
