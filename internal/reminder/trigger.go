// Package reminder implements the periodic check that raises medication
// reminders and pet-status notifications.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/health"
	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/notifications"
	"github.com/pharmapet/pharmapet/internal/scheduler"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// TaskID identifies the periodic reminder task in the scheduler.
const TaskID = "reminder-check"

// Trigger runs the periodic reminder pass: due medications get a
// high-priority reminder, and a pet that is not happy gets a status
// notification so the user sees why.
type Trigger struct {
	meds     *storage.MedicationStore
	settings *storage.SettingsStore
	resolver *health.Resolver
	notify   *notifications.Service
	log      *logging.Logger
}

// NewTrigger creates a reminder trigger
func NewTrigger(meds *storage.MedicationStore, settings *storage.SettingsStore, resolver *health.Resolver, notify *notifications.Service) *Trigger {
	return &Trigger{
		meds:     meds,
		settings: settings,
		resolver: resolver,
		notify:   notify,
		log:      logging.WithField("component", "reminder"),
	}
}

// Task wraps Run as a scheduler task at the given interval
func (t *Trigger) Task(interval time.Duration) *scheduler.Task {
	return &scheduler.Task{
		ID:       TaskID,
		Name:     "Medication reminder check",
		Interval: interval,
		Handler:  t.Run,
		Timeout:  time.Minute,
	}
}

// Run executes one reminder pass. Notification dedupe keys keep repeated
// passes from stacking duplicates while the same doses remain due.
func (t *Trigger) Run(ctx context.Context) error {
	now := time.Now()

	meds, err := t.meds.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("reading medications: %w", err)
	}

	due := health.DueMedications(meds, now)
	if len(due) > 0 {
		body := fmt.Sprintf("Time to take: %s", strings.Join(due, ", "))
		key := "due:" + strings.Join(due, ",")
		if _, err := t.notify.Raise(ctx, notifications.ChannelMedication,
			"Medication Reminder", body, key); err != nil {
			t.log.Warn("raising medication reminder failed: %v", err)
		}
	}

	status := t.resolver.Current(ctx)
	if status.Emotion != core.EmotionHappy {
		name := t.settings.PetName(ctx)
		key := "mood:" + string(status.Emotion)
		if _, err := t.notify.Raise(ctx, notifications.ChannelPetStatus,
			moodTitle(name, status.Emotion), status.Reason, key); err != nil {
			t.log.Warn("raising pet status notification failed: %v", err)
		}
	}

	return nil
}

// moodTitle builds the notification title for a non-happy emotion
func moodTitle(petName string, emotion core.PetEmotion) string {
	switch emotion {
	case core.EmotionSad:
		return fmt.Sprintf("%s is Sad", petName)
	case core.EmotionConfused:
		return fmt.Sprintf("%s is Confused", petName)
	case core.EmotionInPain:
		return fmt.Sprintf("%s is in Pain", petName)
	default:
		return fmt.Sprintf("%s needs attention", petName)
	}
}
