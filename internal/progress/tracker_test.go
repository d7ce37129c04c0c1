package progress

import (
	"testing"
	"time"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker("article", 4)

	if got := tr.State().Status; got != StatusPending {
		t.Fatalf("Initial status = %s, want %s", got, StatusPending)
	}

	tr.Start("processing")
	if got := tr.State().Status; got != StatusInProgress {
		t.Errorf("Status after Start = %s, want %s", got, StatusInProgress)
	}

	tr.Update(2, "halfway")
	state := tr.State()
	if state.Current != 2 {
		t.Errorf("Current = %d, want 2", state.Current)
	}
	if state.Percentage != 50 {
		t.Errorf("Percentage = %d, want 50", state.Percentage)
	}
	if state.Message != "halfway" {
		t.Errorf("Message = %s, want halfway", state.Message)
	}
}

func TestTracker_AutoCompleteOnTotal(t *testing.T) {
	tr := NewTracker("article", 3)
	tr.Start("")

	notifications := 0
	var last State
	tr.OnProgress(func(s State) {
		notifications++
		last = s
	})

	tr.Increment(1)
	tr.Increment(1)
	tr.Increment(1)

	if last.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", last.Status, StatusCompleted)
	}
	if last.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", last.Percentage)
	}
	if notifications != 3 {
		t.Errorf("Notified %d times, want 3", notifications)
	}
}

func TestTracker_TerminalStatesAreFinal(t *testing.T) {
	tr := NewTracker("vocab", 2)
	tr.Start("")
	tr.Update(2, "") // auto-completes

	notifications := 0
	tr.OnProgress(func(s State) { notifications++ })

	tr.Update(1, "late")
	tr.Increment(5)
	tr.Fail("too late")

	state := tr.State()
	if state.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", state.Status, StatusCompleted)
	}
	if state.Current != 2 {
		t.Errorf("Current = %d, want 2", state.Current)
	}
	if notifications != 0 {
		t.Errorf("Terminal tracker notified %d times", notifications)
	}
}

func TestTracker_Fail(t *testing.T) {
	tr := NewTracker("vocab", 10)
	tr.Start("")
	tr.Increment(3)
	tr.Fail("provider exhausted retries")

	state := tr.State()
	if state.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", state.Status, StatusFailed)
	}
	if state.Message != "provider exhausted retries" {
		t.Errorf("Message = %s", state.Message)
	}

	// failed is terminal too
	tr.Complete()
	if tr.State().Status != StatusFailed {
		t.Error("Complete overrode the failed state")
	}
}

func TestTracker_PercentageClamped(t *testing.T) {
	tr := NewTracker("article", 4)
	tr.Start("")
	tr.Update(9, "") // beyond total

	state := tr.State()
	if state.Percentage != 100 {
		t.Errorf("Percentage = %d, want clamped 100", state.Percentage)
	}
	if state.Current != 4 {
		t.Errorf("Current = %d, want clamped to total", state.Current)
	}
}

func TestTracker_ETA(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker("download", 100)
	tr.SetClock(func() time.Time { return clock })

	tr.Start("")
	if eta := tr.State().EstimatedTimeRemaining; eta != 0 {
		t.Errorf("ETA = %v at zero ratio, want 0", eta)
	}

	clock = clock.Add(10 * time.Second)
	tr.Update(25, "")

	// 10s elapsed for 25% leaves roughly 30s.
	eta := tr.State().EstimatedTimeRemaining
	if eta < 29*time.Second || eta > 31*time.Second {
		t.Errorf("ETA = %v, want about 30s", eta)
	}
}

func TestTracker_ListenerRemoval(t *testing.T) {
	tr := NewTracker("article", 5)

	calls := 0
	id := tr.OnProgress(func(s State) { calls++ })
	tr.OffProgress(id)

	tr.Start("")
	tr.Increment(1)
	if calls != 0 {
		t.Errorf("Removed listener called %d times", calls)
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{PartMessage(2, 7), "Part 2 of 7"},
		{WordMessage(12, 40), "12 of 40 words"},
		{ByteMessage("Downloading model", 512, 2048), "Downloading model: 512 B / 2.0 KB"},
		{ByteMessage("Downloading model", 5<<20, 1<<30), "Downloading model: 5.0 MB / 1.0 GB"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Got %q, want %q", tt.got, tt.want)
		}
	}
}
