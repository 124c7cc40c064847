package model

// TaskState represents the lifecycle state of a task's current release
// instance. COMPLETED and MISSED are terminal for the instance; the task
// returns to PENDING until its next periodic release.
type TaskState string

const (
	TaskStatePending   TaskState = "PENDING"
	TaskStateReady     TaskState = "READY"
	TaskStateRunning   TaskState = "RUNNING"
	TaskStateCompleted TaskState = "COMPLETED"
	TaskStateMissed    TaskState = "MISSED"
)

// String returns the string representation of the task state.
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal returns true if the state ends the current release instance.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateMissed:
		return true
	}
	return false
}

// ValidTaskTransitions defines the allowed state transitions. RUNNING may
// return to READY when a higher-ranked task preempts at a tick boundary;
// terminal states re-arm to PENDING at the next release.
var ValidTaskTransitions = map[TaskState][]TaskState{
	TaskStatePending:   {TaskStateReady},
	TaskStateReady:     {TaskStateRunning, TaskStateMissed},
	TaskStateRunning:   {TaskStateReady, TaskStateCompleted, TaskStateMissed},
	TaskStateCompleted: {TaskStatePending},
	TaskStateMissed:    {TaskStatePending},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	for _, allowed := range ValidTaskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
