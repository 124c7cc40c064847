package policy

import "github.com/me/mcsched/pkg/model"

// edf is earliest-deadline-first assignment: ascending absolute deadline
// of the current release, ties broken by ascending period, then
// registration order. The key is recomputed at every scheduling decision
// because the absolute deadline advances with each release.
type edf struct{}

// EDF returns the earliest-deadline-first discipline.
func EDF() Policy {
	return edf{}
}

func (edf) Name() string {
	return "edf"
}

func (edf) KeyFor(task *model.Task) Key {
	return Key{
		Primary:   int64(task.AbsoluteDeadline),
		Secondary: int64(task.Period),
		Seq:       int64(task.ID),
	}
}
