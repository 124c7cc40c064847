// Package policy implements the priority assignment disciplines. A
// discipline is an ordering key over release instances; the shared ready
// queue keeps instances sorted by that key and the engine always runs the
// queue minimum.
package policy

import (
	"github.com/me/mcsched/pkg/model"
)

// Key is the composite ordering key of one release instance. Keys compare
// lexicographically field by field; lower sorts first.
//
// Band is zero for the pure disciplines. The mixed-criticality discipline
// uses it to place HARD work ahead of everything else, so a READY HARD
// task starts within one tick regardless of load.
type Key struct {
	Band      int
	Primary   int64
	Secondary int64
	Seq       int64
}

// Compare is a gods comparator over Key values.
func Compare(a, b any) int {
	ka := a.(Key)
	kb := b.(Key)
	switch {
	case ka.Band != kb.Band:
		return cmpInt64(int64(ka.Band), int64(kb.Band))
	case ka.Primary != kb.Primary:
		return cmpInt64(ka.Primary, kb.Primary)
	case ka.Secondary != kb.Secondary:
		return cmpInt64(ka.Secondary, kb.Secondary)
	default:
		return cmpInt64(ka.Seq, kb.Seq)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Policy assigns ordering keys to tasks. Implementations are stateless.
type Policy interface {
	// Name identifies the discipline in logs and snapshots.
	Name() string
	// KeyFor returns the ordering key for the task's current release.
	KeyFor(task *model.Task) Key
}

// ForMode returns the discipline backing a scheduler mode.
func ForMode(mode model.SchedulerMode) Policy {
	switch mode {
	case model.ModeRMS:
		return RMS()
	case model.ModeEDF:
		return EDF()
	default:
		return Mixed()
	}
}

func band(task *model.Task) int {
	if task.Criticality == model.CriticalityHard {
		return 0
	}
	return 1
}
