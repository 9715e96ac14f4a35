package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
)

func TestStatusCacheDefaults(t *testing.T) {
	cache := newTestCache(t)

	status, message := cache.Current()
	if status != core.StatusNormal {
		t.Errorf("initial status = %s, want NORMAL", status)
	}
	if message != core.DefaultStatusMessage {
		t.Errorf("initial message = %q, want %q", message, core.DefaultStatusMessage)
	}
}

func TestStatusCacheSetAndLoad(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, core.StatusCritical, "very bad"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	status, message := cache.Current()
	if status != core.StatusCritical || message != "very bad" {
		t.Errorf("Current() = %s %q", status, message)
	}

	// A fresh cache over the same store restores the persisted value
	fresh := NewStatusCache(cache.settings)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	status, message = fresh.Current()
	if status != core.StatusCritical || message != "very bad" {
		t.Errorf("restored = %s %q", status, message)
	}
}

func TestStatusCacheRejectsInvalidStatus(t *testing.T) {
	cache := newTestCache(t)

	err := cache.Set(context.Background(), core.HealthStatus("FINE"), "nope")
	if err == nil {
		t.Fatal("expected error for invalid status")
	}

	status, _ := cache.Current()
	if status != core.StatusNormal {
		t.Errorf("invalid set changed status to %s", status)
	}
}

func TestStatusCacheLastWriterWins(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			status := core.StatusNormal
			if n%2 == 0 {
				status = core.StatusWarning
			}
			cache.Set(ctx, status, "concurrent")
		}(i)
	}
	wg.Wait()

	// The winner is unspecified but must be a valid full pair
	status, message := cache.Current()
	if !status.Valid() {
		t.Errorf("status %q invalid after concurrent writes", status)
	}
	if message != "concurrent" {
		t.Errorf("message = %q", message)
	}
}

func TestStatusCacheSubscribers(t *testing.T) {
	cache := newTestCache(t)

	got := make(chan string, 1)
	cache.Subscribe("test", func(status core.HealthStatus, message string) {
		got <- string(status) + ":" + message
	})

	if err := cache.Set(context.Background(), core.StatusWarning, "heads up"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	select {
	case v := <-got:
		if v != "WARNING:heads up" {
			t.Errorf("subscriber got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}

	cache.Unsubscribe("test")
	if err := cache.Set(context.Background(), core.StatusNormal, "ok"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	select {
	case v := <-got:
		t.Errorf("unsubscribed subscriber still notified: %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}
