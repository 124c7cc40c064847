// Package registry owns the set of schedulable tasks and performs their
// periodic releases. All mutation happens on the engine goroutine between
// tick boundaries, so no mutex is needed.
package registry

import (
	"log/slog"
	"time"

	"github.com/me/mcsched/pkg/model"
)

// Registry is the exclusive owner of Task records. Tasks are handed out
// as working references; only the engine and monitor mutate them.
type Registry struct {
	granularity time.Duration
	tasks       map[model.TaskID]*model.Task
	order       []model.TaskID
	names       map[string]model.TaskID
	nextID      model.TaskID
	logger      *slog.Logger
}

// New creates an empty Registry. The tick granularity is used to validate
// that task timing lands exactly on tick boundaries.
func New(granularity time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		granularity: granularity,
		tasks:       make(map[model.TaskID]*model.Task),
		names:       make(map[string]model.TaskID),
		nextID:      1,
		logger:      logger.With("component", "registry"),
	}
}

// Register validates params and adds a task. Registration is atomic: on
// any validation failure the registry is unchanged and an
// *model.InvalidTaskError is returned.
func (r *Registry) Register(params model.TaskParams, work model.Runnable) (model.TaskID, error) {
	if err := params.Validate(r.granularity); err != nil {
		return 0, err
	}
	if work == nil {
		return 0, model.NewInvalidTaskError(params.Name, "work", "must not be nil")
	}
	if _, exists := r.names[params.Name]; exists {
		return 0, model.NewInvalidTaskError(params.Name, "name", "is already registered")
	}

	id := r.nextID
	r.nextID++
	task := &model.Task{
		ID:          id,
		Name:        params.Name,
		Period:      params.Period,
		Deadline:    params.Deadline,
		WCET:        params.WCET,
		Criticality: params.Criticality,
		Phase:       params.Phase,
		State:       model.TaskStatePending,
		Work:        work,
	}
	r.tasks[id] = task
	r.order = append(r.order, id)
	r.names[params.Name] = id

	r.logger.Info("task registered",
		"task", task.Name,
		"id", int64(id),
		"period", task.Period,
		"deadline", task.Deadline,
		"wcet", task.WCET,
		"criticality", task.Criticality,
	)
	return id, nil
}

// Unregister removes a task. Returns *model.UnknownTaskError if absent.
func (r *Registry) Unregister(id model.TaskID) error {
	task, ok := r.tasks[id]
	if !ok {
		return &model.UnknownTaskError{ID: id}
	}
	delete(r.tasks, id)
	delete(r.names, task.Name)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("task unregistered", "task", task.Name, "id", int64(id))
	return nil
}

// Get returns the task for id or an *model.UnknownTaskError.
func (r *Registry) Get(id model.TaskID) (*model.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, &model.UnknownTaskError{ID: id}
	}
	return task, nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	return len(r.tasks)
}

// List returns the tasks in registration order.
func (r *Registry) List() []*model.Task {
	out := make([]*model.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id])
	}
	return out
}

// Infos returns static parameter copies in registration order.
func (r *Registry) Infos() []model.TaskInfo {
	out := make([]model.TaskInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].Info())
	}
	return out
}

// Utilization returns the static utilization sum wcet/period over all
// registered tasks, accumulated in registration order so the result is
// bit-identical to a recomputation from task infos.
func (r *Registry) Utilization() float64 {
	var u float64
	for _, id := range r.order {
		u += r.tasks[id].Utilization()
	}
	return u
}

// ReleaseDue releases every task whose period lands on now, advancing its
// absolute deadline and marking it READY with a fresh WCET budget. A
// release that finds the previous instance still incomplete supersedes
// it; the superseded instance is returned as a classified miss skeleton
// for the monitor to record (its deadline can no longer be met).
func (r *Registry) ReleaseDue(now time.Duration) (released []model.Release, superseded []model.Miss) {
	for _, id := range r.order {
		task := r.tasks[id]
		if now < task.Phase {
			continue
		}
		if (now-task.Phase)%task.Period != 0 {
			continue
		}

		if task.State == model.TaskStateReady || task.State == model.TaskStateRunning {
			superseded = append(superseded, model.Miss{
				Task:        task.ID,
				Criticality: task.Criticality,
				Reason:      model.MissSuperseded,
				Release:     task.LastRelease,
				Deadline:    task.AbsoluteDeadline,
				Time:        now,
			})
			r.transition(task, model.TaskStateMissed)
		}
		if task.State.IsTerminal() {
			r.transition(task, model.TaskStatePending)
		}

		task.LastRelease = now
		task.AbsoluteDeadline = now + task.Deadline
		task.Remaining = task.WCET
		task.Shed = false
		task.Releases++
		if w, ok := task.Work.(model.Resettable); ok {
			w.Reset()
		}
		r.transition(task, model.TaskStateReady)

		released = append(released, model.Release{
			Task:             task.ID,
			Time:             now,
			AbsoluteDeadline: task.AbsoluteDeadline,
		})
		r.logger.Debug("task released",
			"task", task.Name,
			"release", now,
			"deadline", task.AbsoluteDeadline,
		)
	}
	return released, superseded
}

// transition applies a state change that is valid by construction in the
// release path. A failure indicates registry state corruption; it is
// logged and the run continues rather than halting the loop.
func (r *Registry) transition(task *model.Task, next model.TaskState) {
	if err := task.Transition(next); err != nil {
		r.logger.Error("illegal task transition", "task", task.Name, "error", err)
		task.State = next
	}
}
