package policy

import "github.com/me/mcsched/pkg/model"

// rms is rate-monotonic assignment: ascending period, ties broken by
// ascending relative deadline, then registration order. Every key field
// is fixed at registration, so the ordering never changes at runtime.
type rms struct{}

// RMS returns the rate-monotonic discipline.
func RMS() Policy {
	return rms{}
}

func (rms) Name() string {
	return "rms"
}

func (rms) KeyFor(task *model.Task) Key {
	return Key{
		Primary:   int64(task.Period),
		Secondary: int64(task.Deadline),
		Seq:       int64(task.ID),
	}
}
