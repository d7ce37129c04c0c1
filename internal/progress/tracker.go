package progress

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Status of a tracked operation. Completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// State is the snapshot delivered to listeners on every change.
type State struct {
	Type                   string
	Current                int64
	Total                  int64
	Percentage             int
	Message                string
	Status                 Status
	EstimatedTimeRemaining time.Duration
}

// Listener receives state snapshots. Any number may be registered.
type Listener func(State)

type subscription struct {
	id int
	fn Listener
}

// Tracker is the observable state machine behind every long-running
// operation: article batches, vocabulary runs, model downloads. One Tracker
// tracks one operation.
type Tracker struct {
	mu        sync.Mutex
	state     State
	startedAt time.Time
	listeners []subscription
	nextID    int
	now       func() time.Time
}

// NewTracker creates a pending tracker for an operation of the given type
// and total unit count.
func NewTracker(operationType string, total int64) *Tracker {
	return &Tracker{
		state: State{
			Type:   operationType,
			Total:  total,
			Status: StatusPending,
		},
		now: time.Now,
	}
}

// SetClock overrides the time source for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// OnProgress registers a listener and returns a handle for OffProgress.
func (t *Tracker) OnProgress(fn Listener) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.listeners = append(t.listeners, subscription{id: t.nextID, fn: fn})
	return t.nextID
}

// OffProgress removes a listener by handle.
func (t *Tracker) OffProgress(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, sub := range t.listeners {
		if sub.id == id {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

// State returns the current snapshot.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start transitions pending → in_progress and notifies listeners.
func (t *Tracker) Start(message string) {
	t.mu.Lock()
	if t.state.Status != StatusPending {
		t.mu.Unlock()
		return
	}
	t.state.Status = StatusInProgress
	t.state.Message = message
	t.startedAt = t.now()
	t.notifyLocked()
}

// Update sets the absolute unit count. Reaching the total auto-transitions
// to completed, still notifying exactly once. Calls on a terminal tracker
// are no-ops.
func (t *Tracker) Update(current int64, message string) {
	t.mu.Lock()
	if t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	if t.state.Status == StatusPending {
		t.state.Status = StatusInProgress
		t.startedAt = t.now()
	}
	t.state.Current = current
	if message != "" {
		t.state.Message = message
	}
	t.recomputeLocked()
	t.notifyLocked()
}

// Increment advances the unit count by delta.
func (t *Tracker) Increment(delta int64) {
	t.mu.Lock()
	if t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	if t.state.Status == StatusPending {
		t.state.Status = StatusInProgress
		t.startedAt = t.now()
	}
	t.state.Current += delta
	t.recomputeLocked()
	t.notifyLocked()
}

// Complete forces the terminal completed state.
func (t *Tracker) Complete() {
	t.mu.Lock()
	if t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	t.state.Current = t.state.Total
	t.state.Status = StatusCompleted
	t.state.Percentage = 100
	t.state.EstimatedTimeRemaining = 0
	t.notifyLocked()
}

// Fail moves to the terminal failed state with an explanatory message.
func (t *Tracker) Fail(message string) {
	t.mu.Lock()
	if t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	t.state.Status = StatusFailed
	t.state.Message = message
	t.state.EstimatedTimeRemaining = 0
	t.notifyLocked()
}

func (t *Tracker) terminalLocked() bool {
	return t.state.Status == StatusCompleted || t.state.Status == StatusFailed
}

func (t *Tracker) recomputeLocked() {
	if t.state.Total > 0 {
		pct := int(math.Round(float64(t.state.Current) / float64(t.state.Total) * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		t.state.Percentage = pct
	}

	ratio := 0.0
	if t.state.Total > 0 {
		ratio = float64(t.state.Current) / float64(t.state.Total)
	}
	if ratio > 0 && ratio < 1 && !t.startedAt.IsZero() {
		elapsed := t.now().Sub(t.startedAt)
		t.state.EstimatedTimeRemaining = time.Duration(float64(elapsed) / ratio * (1 - ratio))
	} else {
		t.state.EstimatedTimeRemaining = 0
	}

	if t.state.Total > 0 && t.state.Current >= t.state.Total {
		t.state.Current = t.state.Total
		t.state.Status = StatusCompleted
	}
}

// notifyLocked snapshots listeners, releases the lock and delivers. The
// caller must hold the lock; it is released on return.
func (t *Tracker) notifyLocked() {
	state := t.state
	listeners := make([]subscription, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(state)
	}
}

// ByteMessage formats model-download style progress in byte units.
func ByteMessage(label string, current, total int64) string {
	return fmt.Sprintf("%s: %s / %s", label, formatBytes(current), formatBytes(total))
}

// PartMessage formats multi-part article progress.
func PartMessage(part, parts int) string {
	return fmt.Sprintf("Part %d of %d", part, parts)
}

// WordMessage formats word-streaming progress.
func WordMessage(current, total int64) string {
	return fmt.Sprintf("%d of %d words", current, total)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
