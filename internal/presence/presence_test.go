package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStoreWithClient(client)
}

func TestGreetingMarkerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	greeted, err := store.AlreadyGreetedToday(ctx, 1)
	if err != nil {
		t.Fatalf("AlreadyGreetedToday: %v", err)
	}
	if greeted {
		t.Fatal("fresh user must not be marked greeted")
	}

	if err := store.MarkGreeted(ctx, 1); err != nil {
		t.Fatalf("MarkGreeted: %v", err)
	}

	greeted, err = store.AlreadyGreetedToday(ctx, 1)
	if err != nil {
		t.Fatalf("AlreadyGreetedToday: %v", err)
	}
	if !greeted {
		t.Fatal("expected greeting marker for today")
	}
}

func TestGreetingMarkerFromYesterdayDoesNotCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	yesterday := time.Now().Add(-24 * time.Hour)
	store.now = func() time.Time { return yesterday }
	if err := store.MarkGreeted(ctx, 1); err != nil {
		t.Fatalf("MarkGreeted: %v", err)
	}

	store.now = time.Now
	greeted, err := store.AlreadyGreetedToday(ctx, 1)
	if err != nil {
		t.Fatalf("AlreadyGreetedToday: %v", err)
	}
	if greeted {
		t.Fatal("yesterday's marker must not suppress today's greeting")
	}
}

func TestLastAttemptRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	last, err := store.LastAttempt(ctx, 1)
	if err != nil {
		t.Fatalf("LastAttempt: %v", err)
	}
	if last != "" {
		t.Fatalf("expected empty attempt for fresh user, got %q", last)
	}

	if err := store.RecordAttempt(ctx, 1, "attempt-a"); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := store.RecordAttempt(ctx, 1, "attempt-b"); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	last, err = store.LastAttempt(ctx, 1)
	if err != nil {
		t.Fatalf("LastAttempt: %v", err)
	}
	if last != "attempt-b" {
		t.Fatalf("expected newest attempt to win, got %q", last)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.MarkGreeted(ctx, 1); err != nil {
		t.Fatalf("MarkGreeted: %v", err)
	}

	greeted, err := store.AlreadyGreetedToday(ctx, 2)
	if err != nil {
		t.Fatalf("AlreadyGreetedToday: %v", err)
	}
	if greeted {
		t.Fatal("greeting marker must be per user")
	}
}
