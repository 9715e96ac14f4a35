package reminder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/health"
	"github.com/pharmapet/pharmapet/internal/notifications"
	"github.com/pharmapet/pharmapet/internal/storage"
)

type fixture struct {
	meds     *storage.MedicationStore
	settings *storage.SettingsStore
	notify   *notifications.Service
	trigger  *Trigger
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	meds := storage.NewMedicationStore(db)
	metrics := storage.NewMetricStore(db)
	settings := storage.NewSettingsStore(db)
	cache := health.NewStatusCache(settings)
	resolver := health.NewResolver(meds, metrics, cache, 48*time.Hour)
	notify := notifications.NewService(db)

	return fixture{
		meds:     meds,
		settings: settings,
		notify:   notify,
		trigger:  NewTrigger(meds, settings, resolver, notify),
	}
}

func createMedTakenHoursAgo(t *testing.T, f fixture, name string, hoursAgo int) {
	t.Helper()
	ctx := context.Background()

	med := &core.Medication{Name: name, IntervalHours: 24}
	if err := f.meds.Create(ctx, med); err != nil {
		t.Fatalf("creating medication: %v", err)
	}
	if err := f.meds.MarkTaken(ctx, med.ID, time.Now().Add(-time.Duration(hoursAgo)*time.Hour)); err != nil {
		t.Fatalf("marking taken: %v", err)
	}
}

func TestRunRaisesDueReminder(t *testing.T) {
	f := newFixture(t)
	createMedTakenHoursAgo(t, f, "Aspirin", 25)

	if err := f.trigger.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	list, err := f.notify.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var reminder *notifications.Notification
	for i := range list {
		if list[i].Channel == notifications.ChannelMedication {
			reminder = &list[i]
		}
	}
	if reminder == nil {
		t.Fatal("no medication reminder raised")
	}
	if reminder.Priority != notifications.PriorityHigh {
		t.Errorf("reminder priority = %d, want high", reminder.Priority)
	}
	if !strings.Contains(reminder.Body, "Aspirin") {
		t.Errorf("reminder body %q missing medication name", reminder.Body)
	}
}

func TestRunIsIdempotentWhileDue(t *testing.T) {
	f := newFixture(t)
	createMedTakenHoursAgo(t, f, "Aspirin", 25)

	for i := 0; i < 3; i++ {
		if err := f.trigger.Run(context.Background()); err != nil {
			t.Fatalf("Run() %d error = %v", i, err)
		}
	}

	list, _ := f.notify.List(context.Background(), 10)
	medCount := 0
	for _, n := range list {
		if n.Channel == notifications.ChannelMedication {
			medCount++
		}
	}
	if medCount != 1 {
		t.Errorf("repeated runs raised %d reminders, want 1", medCount)
	}
}

func TestRunNothingDueNoReminder(t *testing.T) {
	f := newFixture(t)
	createMedTakenHoursAgo(t, f, "Aspirin", 2)

	if err := f.trigger.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	list, _ := f.notify.List(context.Background(), 10)
	for _, n := range list {
		if n.Channel == notifications.ChannelMedication {
			t.Errorf("unexpected reminder: %+v", n)
		}
	}
}

func TestRunRaisesPetStatusWhenSad(t *testing.T) {
	f := newFixture(t)
	// Missed: well beyond interval plus grace
	createMedTakenHoursAgo(t, f, "Aspirin", 40)

	if err := f.settings.Set(context.Background(), storage.KeyPetName, "Biscuit"); err != nil {
		t.Fatalf("setting pet name: %v", err)
	}

	if err := f.trigger.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	list, _ := f.notify.List(context.Background(), 10)
	var mood *notifications.Notification
	for i := range list {
		if list[i].Channel == notifications.ChannelPetStatus {
			mood = &list[i]
		}
	}
	if mood == nil {
		t.Fatal("no pet status notification raised")
	}
	if mood.Title != "Biscuit is Sad" {
		t.Errorf("title = %q, want %q", mood.Title, "Biscuit is Sad")
	}
	if !strings.Contains(mood.Body, "Aspirin") {
		t.Errorf("body %q missing missed medication", mood.Body)
	}
}

func TestRunHappyPetStaysQuiet(t *testing.T) {
	f := newFixture(t)
	createMedTakenHoursAgo(t, f, "Aspirin", 2)

	if err := f.trigger.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	list, _ := f.notify.List(context.Background(), 10)
	for _, n := range list {
		if n.Channel == notifications.ChannelPetStatus {
			t.Errorf("happy pet raised a status notification: %+v", n)
		}
	}
}

func TestTaskRegistration(t *testing.T) {
	f := newFixture(t)

	task := f.trigger.Task(time.Hour)
	if task.ID != TaskID {
		t.Errorf("task ID = %q, want %q", task.ID, TaskID)
	}
	if task.Interval != time.Hour {
		t.Errorf("interval = %v", task.Interval)
	}
	if task.Handler == nil {
		t.Error("task has no handler")
	}
}
