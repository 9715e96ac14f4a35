package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// stubChatter returns a canned response or error
type stubChatter struct {
	response   string
	err        error
	configured bool
	lastUser   string
}

func (s *stubChatter) Chat(ctx context.Context, system, userMessage string) (string, error) {
	s.lastUser = userMessage
	return s.response, s.err
}

func (s *stubChatter) IsConfigured() bool { return s.configured }

func newTestCache(t *testing.T) *StatusCache {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStatusCache(storage.NewSettingsStore(db))
}

func TestClassifySuccess(t *testing.T) {
	cache := newTestCache(t)
	chat := &stubChatter{
		configured: true,
		response:   `{"status": "WARNING", "message": "Heart rate elevated."}`,
	}

	c := NewClassifier(chat, cache, nil)
	status, message, err := c.Classify(context.Background(), []string{"Hypertension"}, []string{"Aspirin"}, "Heart Rate: 110 bpm")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if status != core.StatusWarning {
		t.Errorf("status = %s, want WARNING", status)
	}
	if message != "Heart rate elevated." {
		t.Errorf("message = %q", message)
	}

	cachedStatus, cachedMsg := cache.Current()
	if cachedStatus != core.StatusWarning || cachedMsg != "Heart rate elevated." {
		t.Errorf("cache not updated: %s %q", cachedStatus, cachedMsg)
	}
}

func TestClassifyStripsCodeFences(t *testing.T) {
	cache := newTestCache(t)
	chat := &stubChatter{
		configured: true,
		response:   "```json\n{\"status\": \"NORMAL\", \"message\": \"All good.\"}\n```",
	}

	c := NewClassifier(chat, cache, nil)
	status, _, err := c.Classify(context.Background(), nil, nil, "No recent data")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if status != core.StatusNormal {
		t.Errorf("status = %s, want NORMAL", status)
	}
}

func TestClassifyFailuresPreserveCache(t *testing.T) {
	tests := []struct {
		name string
		chat *stubChatter
	}{
		{
			name: "transport error",
			chat: &stubChatter{configured: true, err: errors.New("connection refused")},
		},
		{
			name: "malformed payload",
			chat: &stubChatter{configured: true, response: "I think you are fine!"},
		},
		{
			name: "status outside enumeration",
			chat: &stubChatter{configured: true, response: `{"status": "FINE", "message": "ok"}`},
		},
		{
			name: "not configured",
			chat: &stubChatter{configured: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newTestCache(t)
			if err := cache.Set(context.Background(), core.StatusWarning, "previous result"); err != nil {
				t.Fatalf("seeding cache: %v", err)
			}

			c := NewClassifier(tt.chat, cache, nil)
			_, _, err := c.Classify(context.Background(), nil, nil, "data")
			if err == nil {
				t.Fatal("expected error")
			}

			status, msg := cache.Current()
			if status != core.StatusWarning || msg != "previous result" {
				t.Errorf("cache changed on failure: %s %q", status, msg)
			}
		})
	}
}

func TestClassifyCriticalSignalsEscalation(t *testing.T) {
	cache := newTestCache(t)
	chat := &stubChatter{
		configured: true,
		response:   `{"status": "CRITICAL", "message": "Dangerously high blood pressure."}`,
	}

	var escalated string
	c := NewClassifier(chat, cache, func(message string) {
		escalated = message
	})

	if _, _, err := c.Classify(context.Background(), nil, nil, "BP: 210/130"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	// onCritical runs before Classify returns
	if escalated != "Dangerously high blood pressure." {
		t.Errorf("onCritical not invoked, got %q", escalated)
	}
}

func TestClassifyNonCriticalDoesNotEscalate(t *testing.T) {
	cache := newTestCache(t)
	chat := &stubChatter{
		configured: true,
		response:   `{"status": "WARNING", "message": "Slightly elevated."}`,
	}

	called := false
	c := NewClassifier(chat, cache, func(string) { called = true })

	if _, _, err := c.Classify(context.Background(), nil, nil, "data"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if called {
		t.Error("onCritical fired for non-critical status")
	}
}

func TestClassifyPromptIncludesContext(t *testing.T) {
	cache := newTestCache(t)
	chat := &stubChatter{
		configured: true,
		response:   `{"status": "NORMAL", "message": "ok"}`,
	}

	c := NewClassifier(chat, cache, nil)
	if _, _, err := c.Classify(context.Background(),
		[]string{"Diabetes"}, []string{"Metformin"}, "Glucose: 6.2 mmol/L"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	for _, want := range []string{"Diabetes", "Metformin", "Glucose: 6.2 mmol/L"} {
		if !strings.Contains(chat.lastUser, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
