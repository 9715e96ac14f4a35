package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pharmapet/pharmapet/internal/storage"
)

// mockSubscriber records notifications it receives
type mockSubscriber struct {
	id       string
	mu       sync.Mutex
	received []Notification
}

func (m *mockSubscriber) Send(n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, n)
	return nil
}

func (m *mockSubscriber) ID() string { return m.id }

func (m *mockSubscriber) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func createTestService(t *testing.T) *Service {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewService(db)
}

func TestRaiseAndList(t *testing.T) {
	svc := createTestService(t)
	ctx := context.Background()

	if _, err := svc.Raise(ctx, ChannelMedication, "Medication Reminder", "Time to take: Aspirin", ""); err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	if _, err := svc.Raise(ctx, ChannelPetStatus, "PharmaPet is Sad", "missed dose", ""); err != nil {
		t.Fatalf("Raise() error = %v", err)
	}

	list, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d notifications, want 2", len(list))
	}
}

func TestChannelPriorities(t *testing.T) {
	svc := createTestService(t)
	ctx := context.Background()

	med, err := svc.Raise(ctx, ChannelMedication, "reminder", "", "")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	if med.Priority != PriorityHigh {
		t.Errorf("medication priority = %d, want %d", med.Priority, PriorityHigh)
	}

	pet, err := svc.Raise(ctx, ChannelPetStatus, "mood", "", "")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	if pet.Priority != PriorityDefault {
		t.Errorf("pet status priority = %d, want %d", pet.Priority, PriorityDefault)
	}
}

func TestRaiseDeduplicates(t *testing.T) {
	svc := createTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Raise(ctx, ChannelMedication, "Medication Reminder", "Time to take: Aspirin", "due:Aspirin"); err != nil {
			t.Fatalf("Raise() %d error = %v", i, err)
		}
	}

	list, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1 (deduped)", len(list))
	}
}

// A deduped raise must keep the original row's identity and update its
// content in place; the returned notification reflects what is stored.
func TestRaiseDedupeReturnsStoredRow(t *testing.T) {
	svc := createTestService(t)
	ctx := context.Background()

	first, err := svc.Raise(ctx, ChannelMedication, "Medication Reminder", "Time to take: Aspirin", "due:Aspirin")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}

	second, err := svc.Raise(ctx, ChannelMedication, "Medication Reminder", "Time to take: Aspirin, Insulin", "due:Aspirin")
	if err != nil {
		t.Fatalf("deduped Raise() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("deduped raise returned ID %q, want original %q", second.ID, first.ID)
	}
	if second.Body != "Time to take: Aspirin, Insulin" {
		t.Errorf("deduped raise body = %q, want updated body", second.Body)
	}

	list, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	if list[0].ID != first.ID || list[0].Body != "Time to take: Aspirin, Insulin" {
		t.Errorf("stored row = %+v, want original ID with updated body", list[0])
	}
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	svc := createTestService(t)
	ctx := context.Background()

	n, err := svc.Raise(ctx, ChannelPetStatus, "title", "body", "")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}

	count, err := svc.UnreadCount(ctx)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}

	if err := svc.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	count, err = svc.UnreadCount(ctx)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("unread after MarkRead = %d, want 0", count)
	}

	list, _ := svc.List(ctx, 10)
	if len(list) != 1 || !list[0].Read || list[0].ReadAt == nil {
		t.Error("notification not marked read with timestamp")
	}
}

func TestSubscriberDelivery(t *testing.T) {
	svc := createTestService(t)
	sub := &mockSubscriber{id: "test-sub"}
	svc.Subscribe(sub)

	if _, err := svc.Raise(context.Background(), ChannelPetStatus, "title", "body", ""); err != nil {
		t.Fatalf("Raise() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for sub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sub.count() != 1 {
		t.Fatalf("subscriber received %d notifications, want 1", sub.count())
	}

	svc.Unsubscribe("test-sub")
	if _, err := svc.Raise(context.Background(), ChannelPetStatus, "again", "", ""); err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if sub.count() != 1 {
		t.Errorf("unsubscribed subscriber received %d, want 1", sub.count())
	}
}
