package observability

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestRecordConcurrent tests concurrent Record calls for race conditions.
func TestRecordConcurrent(t *testing.T) {
	fs := NewFetchStats(time.Hour)
	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				fs.Record("user", 5, time.Millisecond, nil)
				fs.Record("subscription", 0, time.Millisecond, errors.New("boom"))
			}
		}()
	}
	wg.Wait()

	expected := int64(numGoroutines * recordsPerGoroutine)
	user, ok := fs.Get("user")
	if !ok || user.Fetches != expected || user.Failures != 0 {
		t.Errorf("unexpected user stats: %+v", user)
	}
	sub, ok := fs.Get("subscription")
	if !ok || sub.Failures != expected {
		t.Errorf("unexpected subscription stats: %+v", sub)
	}
}

func TestRecord_RecoveryClearsError(t *testing.T) {
	fs := NewFetchStats(time.Hour)
	fs.Record("workflow", 0, time.Second, errors.New("timeout"))
	fs.Record("workflow", 12, time.Second, nil)

	s, _ := fs.Get("workflow")
	if !s.Healthy() {
		t.Errorf("expected healthy after success, got error %q", s.LastError)
	}
	if s.Failures != 1 || s.Fetches != 2 || s.LastRows != 12 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestSnapshotAndFailing(t *testing.T) {
	fs := NewFetchStats(time.Hour)
	fs.Record("user", 1, 0, nil)
	fs.Record("account", 0, 0, errors.New("x"))
	fs.Record("templates", 0, 0, errors.New("x"))
	fs.Record("templates", 0, 0, errors.New("y"))

	snap := fs.Snapshot()
	if len(snap) != 3 || snap[0].Resource != "account" || snap[2].Resource != "user" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}

	failing := fs.Failing()
	if len(failing) != 2 || failing[0].Resource != "templates" {
		t.Fatalf("unexpected failing list: %+v", failing)
	}
}

func TestPrune(t *testing.T) {
	fs := NewFetchStats(time.Minute)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return base }
	fs.Record("old", 1, 0, nil)

	fs.now = func() time.Time { return base.Add(2 * time.Minute) }
	fs.Record("new", 1, 0, nil)
	fs.Prune()

	if _, ok := fs.Get("old"); ok {
		t.Error("expected old entry to be pruned")
	}
	if _, ok := fs.Get("new"); !ok {
		t.Error("expected new entry to survive")
	}
}
