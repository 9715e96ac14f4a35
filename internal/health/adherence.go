// Package health implements the health-state evaluation pipeline:
// adherence checking, data freshness, mood derivation, and the
// AI-assisted status classifier with its process-wide cache.
package health

import (
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
)

// MissedMedications returns the names of medications whose last dose is
// overdue beyond the expected interval plus a 50% grace period. Medications
// never taken (LastTaken == 0) are excluded: they are not yet actively
// tracked and flagging them would be a false positive. Output order matches
// input order. Pure function of its inputs.
func MissedMedications(meds []core.Medication, now time.Time) []string {
	var missed []string
	nowMs := now.UnixMilli()

	for _, med := range meds {
		if med.LastTaken <= 0 {
			continue
		}

		intervalMs := med.Interval().Milliseconds()
		graceMs := intervalMs / 2
		sinceLastTaken := nowMs - med.LastTaken

		if sinceLastTaken > intervalMs+graceMs {
			missed = append(missed, med.Name)
		}
	}

	return missed
}

// DueMedications returns the names of medications due for a proactive
// reminder: the bare interval has elapsed since the last dose, with no
// grace period. This is intentionally a tighter bound than
// MissedMedications: a reminder should fire as soon as a dose is due,
// while the mood derivation tolerates being somewhat late.
// LastTaken == 0 is excluded here too.
func DueMedications(meds []core.Medication, now time.Time) []string {
	var due []string
	nowMs := now.UnixMilli()

	for _, med := range meds {
		if med.LastTaken <= 0 {
			continue
		}

		if nowMs-med.LastTaken >= med.Interval().Milliseconds() {
			due = append(due, med.Name)
		}
	}

	return due
}
