package policy

import "github.com/me/mcsched/pkg/model"

// mixed is the mixed-criticality discipline: HARD tasks form a strict
// priority band above everything else, and rate-monotonic order applies
// within each band. The band is what makes the one-tick start guarantee
// for HARD work hold under any load; the admission controller cannot
// provide it alone because it only gates whether work runs, not when.
type mixed struct{}

// Mixed returns the mixed-criticality discipline.
func Mixed() Policy {
	return mixed{}
}

func (mixed) Name() string {
	return "mixed"
}

func (mixed) KeyFor(task *model.Task) Key {
	return Key{
		Band:      band(task),
		Primary:   int64(task.Period),
		Secondary: int64(task.Deadline),
		Seq:       int64(task.ID),
	}
}
