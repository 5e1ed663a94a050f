package progress

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTrackerSetGet(t *testing.T) {
	tracker := NewMemoryTracker(5 * time.Minute)
	ctx := context.Background()

	tracker.Set(ctx, "token-a", Progress{Total: 10, Processed: 3, Success: 2, Errors: 1, Status: StatusProcessing})

	got := tracker.Get(ctx, "token-a")
	if got.Status != StatusProcessing || got.Processed != 3 || got.Success != 2 || got.Errors != 1 {
		t.Fatalf("unexpected progress: %+v", got)
	}
}

func TestMemoryTrackerUnknownToken(t *testing.T) {
	tracker := NewMemoryTracker(5 * time.Minute)

	got := tracker.Get(context.Background(), "never-set")
	if got.Status != StatusNotFound {
		t.Fatalf("status = %q, want %q", got.Status, StatusNotFound)
	}
	if got.Total != 0 || got.Processed != 0 || got.Success != 0 || got.Errors != 0 {
		t.Fatalf("expected zero counts, got %+v", got)
	}
}

func TestMemoryTrackerExpiry(t *testing.T) {
	tracker := NewMemoryTracker(5 * time.Minute)
	ctx := context.Background()

	current := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.Set(ctx, "token-a", Progress{Total: 5, Status: StatusProcessing})

	current = current.Add(4 * time.Minute)
	if got := tracker.Get(ctx, "token-a"); got.Status != StatusProcessing {
		t.Fatalf("entry expired early: %+v", got)
	}

	// Writes refresh the window from the current moment.
	tracker.Set(ctx, "token-a", Progress{Total: 5, Processed: 5, Status: StatusDone})

	current = current.Add(4 * time.Minute)
	if got := tracker.Get(ctx, "token-a"); got.Status != StatusDone {
		t.Fatalf("refreshed entry expired early: %+v", got)
	}

	current = current.Add(2 * time.Minute)
	if got := tracker.Get(ctx, "token-a"); got.Status != StatusNotFound {
		t.Fatalf("expected expiry, got %+v", got)
	}
}

func TestMemoryTrackerSweepsExpiredOnSet(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	ctx := context.Background()

	current := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.Set(ctx, "stale", Progress{Status: StatusProcessing})
	current = current.Add(2 * time.Minute)
	tracker.Set(ctx, "fresh", Progress{Status: StatusProcessing})

	tracker.mu.Lock()
	_, staleHeld := tracker.entries["stale"]
	tracker.mu.Unlock()
	if staleHeld {
		t.Fatal("expired entry should have been swept")
	}
}
