package policy

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/me/mcsched/pkg/model"
)

// ReadyQueue holds release instances ordered by a discipline's key. The
// engine rebuilds it every tick: EDF keys move between ticks, and the
// ready set changes with releases and completions. Keys are unique
// because the registration sequence is the final tie-break.
type ReadyQueue struct {
	policy Policy
	tree   *redblacktree.Tree
}

// NewReadyQueue creates an empty queue ordered by the given discipline.
func NewReadyQueue(policy Policy) *ReadyQueue {
	return &ReadyQueue{
		policy: policy,
		tree:   redblacktree.NewWith(Compare),
	}
}

// Push inserts a task keyed by its current release.
func (q *ReadyQueue) Push(task *model.Task) {
	q.tree.Put(q.policy.KeyFor(task), task)
}

// Peek returns the highest-priority task without removing it.
func (q *ReadyQueue) Peek() (*model.Task, bool) {
	node := q.tree.Left()
	if node == nil {
		return nil, false
	}
	return node.Value.(*model.Task), true
}

// Pop removes and returns the highest-priority task.
func (q *ReadyQueue) Pop() (*model.Task, bool) {
	node := q.tree.Left()
	if node == nil {
		return nil, false
	}
	q.tree.Remove(node.Key)
	return node.Value.(*model.Task), true
}

// Len returns the number of queued tasks.
func (q *ReadyQueue) Len() int {
	return q.tree.Size()
}

// Clear empties the queue for reuse in the next tick.
func (q *ReadyQueue) Clear() {
	q.tree.Clear()
}

// Select returns the highest-priority READY task among tasks, or false
// if none are ready.
func Select(policy Policy, tasks []*model.Task) (*model.Task, bool) {
	q := NewReadyQueue(policy)
	for _, task := range tasks {
		if task.State == model.TaskStateReady {
			q.Push(task)
		}
	}
	return q.Peek()
}
