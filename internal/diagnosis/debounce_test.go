package diagnosis

import (
	"sync"
	"testing"
	"time"

	"lechuga_bot_backend/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New("test")
}

type fireRecorder struct {
	mu    sync.Mutex
	fires []Upload
	users []int64
	ch    chan struct{}
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan struct{}, 16)}
}

func (r *fireRecorder) fire(userID int64, upload Upload) {
	r.mu.Lock()
	r.fires = append(r.fires, upload)
	r.users = append(r.users, userID)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *fireRecorder) wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debounce fire")
	}
}

func (r *fireRecorder) snapshot() []Upload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Upload, len(r.fires))
	copy(out, r.fires)
	return out
}

func TestSchedulerCoalescesBurstIntoSingleFire(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(40*time.Millisecond, rec.fire, testLogger())

	s.OnPhoto(7, 70, "Ana", "file-1")
	s.OnPhoto(7, 70, "Ana", "file-2")
	s.OnPhoto(7, 70, "Ana", "file-3")

	rec.wait(t, time.Second)
	time.Sleep(80 * time.Millisecond)

	fires := rec.snapshot()
	if len(fires) != 1 {
		t.Fatalf("expected exactly one fire, got %d", len(fires))
	}
	if fires[0].FileID != "file-3" {
		t.Fatalf("expected the last photo to win, got %q", fires[0].FileID)
	}
	if fires[0].Count != 3 {
		t.Fatalf("expected count 3, got %d", fires[0].Count)
	}
	if fires[0].ChatID != 70 || fires[0].DisplayName != "Ana" {
		t.Fatalf("unexpected upload metadata: %+v", fires[0])
	}
}

func TestSchedulerSinglePhotoFiresWithCountOne(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire, testLogger())

	s.OnPhoto(1, 10, "Luis", "only")
	rec.wait(t, time.Second)

	fires := rec.snapshot()
	if len(fires) != 1 || fires[0].Count != 1 {
		t.Fatalf("expected one fire with count 1, got %+v", fires)
	}
}

func TestSchedulerZeroWindowFiresImmediately(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(0, rec.fire, testLogger())

	s.OnPhoto(2, 20, "Eva", "f")
	rec.wait(t, time.Second)

	if fires := rec.snapshot(); len(fires) != 1 || fires[0].FileID != "f" {
		t.Fatalf("expected immediate single fire, got %+v", fires)
	}
}

func TestSchedulerCancelDropsPendingWindow(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(30*time.Millisecond, rec.fire, testLogger())

	s.OnPhoto(3, 30, "Max", "f1")
	s.Cancel(3)

	time.Sleep(100 * time.Millisecond)
	if fires := rec.snapshot(); len(fires) != 0 {
		t.Fatalf("expected no fire after cancel, got %+v", fires)
	}
}

func TestSchedulerCancelUnknownUserIsNoop(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(10*time.Millisecond, rec.fire, testLogger())
	s.Cancel(999)
}

func TestSchedulerIndependentUsersFireIndependently(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire, testLogger())

	s.OnPhoto(4, 40, "A", "a")
	s.OnPhoto(5, 50, "B", "b")

	rec.wait(t, time.Second)
	rec.wait(t, time.Second)

	fires := rec.snapshot()
	if len(fires) != 2 {
		t.Fatalf("expected two fires, got %d", len(fires))
	}
	seen := map[string]bool{}
	for _, f := range fires {
		seen[f.FileID] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both users to fire, got %+v", fires)
	}
}

func TestSchedulerPhotoDuringRunRearmsWindow(t *testing.T) {
	var rec *fireRecorder
	release := make(chan struct{})
	var s *Scheduler

	rec = newFireRecorder()
	slowFire := func(userID int64, upload Upload) {
		rec.fire(userID, upload)
		if upload.FileID == "first" {
			// Photo arrives while the first attempt is still running.
			s.OnPhoto(userID, upload.ChatID, upload.DisplayName, "second")
			<-release
		}
	}
	s = NewScheduler(20*time.Millisecond, slowFire, testLogger())

	s.OnPhoto(6, 60, "Rita", "first")
	rec.wait(t, time.Second)
	close(release)

	rec.wait(t, time.Second)
	fires := rec.snapshot()
	if len(fires) != 2 {
		t.Fatalf("expected a second fire for the mid-run photo, got %d", len(fires))
	}
	if fires[1].FileID != "second" || fires[1].Count != 1 {
		t.Fatalf("expected fresh count for the re-armed fire, got %+v", fires[1])
	}
}
