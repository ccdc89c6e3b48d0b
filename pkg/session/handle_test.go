package session

import (
	"context"
	"testing"
)

func TestHandleCancel(t *testing.T) {
	h := NewHandle(context.Background())
	defer h.release()

	if h.State() != HandleActive {
		t.Fatalf("new handle state = %s, want active", h.State())
	}
	if !h.Cancel() {
		t.Fatal("first Cancel should succeed")
	}
	if h.Cancel() {
		t.Error("second Cancel should report false")
	}
	if !h.CancelRequested() {
		t.Error("CancelRequested should be true after Cancel")
	}
	if h.Context().Err() == nil {
		t.Error("handle context should be cancelled")
	}
	if h.finish() {
		t.Error("finish should lose against an earlier Cancel")
	}
}

func TestHandleFinishBeatsCancel(t *testing.T) {
	h := NewHandle(context.Background())
	defer h.release()

	if !h.finish() {
		t.Fatal("finish on an active handle should succeed")
	}
	if h.Cancel() {
		t.Error("Cancel after finish should report false")
	}
	if h.State() != HandleCompleted {
		t.Errorf("state = %s, want completed", h.State())
	}
}

func TestHandleParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandle(parent)
	defer h.release()

	cancel()

	if h.Context().Err() == nil {
		t.Error("handle context should follow its parent")
	}
	if h.CancelRequested() {
		t.Error("parent cancellation must not look like an explicit cancel")
	}
}

func TestHandleRelease(t *testing.T) {
	h := NewHandle(context.Background())
	h.Cancel()
	h.release()

	if h.State() != HandleCompleted {
		t.Errorf("state after release = %s, want completed", h.State())
	}
}

func TestHandleStateString(t *testing.T) {
	tests := []struct {
		state HandleState
		want  string
	}{
		{HandleActive, "active"},
		{HandleCancelRequested, "cancel_requested"},
		{HandleCompleted, "completed"},
		{HandleState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("HandleState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
