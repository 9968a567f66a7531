package research

import (
	"slices"
	"sync"
)

// Tracker keeps the latest task per key and the set of running tasks.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	latest map[string]Task
	active map[string]Task
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		latest: make(map[string]Task),
		active: make(map[string]Task),
	}
}

// Update records the current state of t. Terminal tasks leave the active
// set.
func (tr *Tracker) Update(t Task) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if prev, ok := tr.latest[t.Key]; !ok || prev.ID == t.ID || !t.StartedAt.Before(prev.StartedAt) {
		tr.latest[t.Key] = t
	}
	if t.Status.Terminal() {
		delete(tr.active, t.ID)
	} else {
		tr.active[t.ID] = t
	}
}

// Latest returns the most recently started task for key.
func (tr *Tracker) Latest(key string) (Task, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	t, ok := tr.latest[key]
	return t, ok
}

// Active returns the number of running tasks.
func (tr *Tracker) Active() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.active)
}

// ActiveFor returns the running tasks for key, oldest first.
func (tr *Tracker) ActiveFor(key string) []Task {
	tr.mu.RLock()
	var out []Task
	for _, t := range tr.active {
		if t.Key == key {
			out = append(out, t)
		}
	}
	tr.mu.RUnlock()

	slices.SortFunc(out, func(a, b Task) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}
