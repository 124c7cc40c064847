package model

import "fmt"

// InvalidTaskError reports rejected registration parameters. Registration
// is atomic: a task that fails validation is never partially added.
type InvalidTaskError struct {
	Task   string
	Field  string
	Reason string
}

func (e *InvalidTaskError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("invalid task: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid task %q: %s %s", e.Task, e.Field, e.Reason)
}

// NewInvalidTaskError creates an InvalidTaskError for a named task field.
func NewInvalidTaskError(task, field, reason string) *InvalidTaskError {
	return &InvalidTaskError{Task: task, Field: field, Reason: reason}
}

// UnknownTaskError reports an operation on a task id that is not registered.
type UnknownTaskError struct {
	ID TaskID
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %d", e.ID)
}

// InvalidTransitionError is returned when a task state transition is invalid.
type InvalidTransitionError struct {
	Task string
	From TaskState
	To   TaskState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition: %s → %s (task %s)", e.From, e.To, e.Task)
}
