// Package core defines the fundamental types for PharmaPet.
package core

import (
	"time"
)

// -----------------------------------------------------------------------------
// HEALTH STATUS - The cached AI classification
// -----------------------------------------------------------------------------

// HealthStatus is the severity tier produced by the health classifier.
type HealthStatus string

const (
	StatusNormal   HealthStatus = "NORMAL"
	StatusWarning  HealthStatus = "WARNING"
	StatusCritical HealthStatus = "CRITICAL"
)

// Valid reports whether the status is one of the three enumerated tiers.
// Classifier output outside this set must never reach the cache.
func (s HealthStatus) Valid() bool {
	switch s {
	case StatusNormal, StatusWarning, StatusCritical:
		return true
	}
	return false
}

// DefaultStatusMessage is the cached message before any classification runs.
const DefaultStatusMessage = "No health data analyzed yet."

// -----------------------------------------------------------------------------
// PET STATUS - Derived mood, never persisted
// -----------------------------------------------------------------------------

// PetEmotion is the pet's derived emotional state.
type PetEmotion string

const (
	EmotionHappy    PetEmotion = "HAPPY"
	EmotionSad      PetEmotion = "SAD"
	EmotionConfused PetEmotion = "CONFUSED"
	EmotionInPain   PetEmotion = "IN_PAIN"
)

// PetStatus is the derived mood plus a human-readable reason.
// It is recomputed on every read and never stored.
type PetStatus struct {
	Emotion PetEmotion `json:"emotion"`
	Reason  string     `json:"reason"`
}

// -----------------------------------------------------------------------------
// MEDICATION
// -----------------------------------------------------------------------------

// Medication is a tracked medication. LastTaken is unix milliseconds;
// zero means the medication has never been taken and is not yet actively
// tracked for adherence.
type Medication struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage"`
	Frequency     string    `json:"frequency"`
	IntervalHours int       `json:"interval_hours"` // Expected hours between doses
	LastTaken     int64     `json:"last_taken"`     // Unix millis, 0 = never
	CreatedAt     time.Time `json:"created_at"`
}

// DefaultIntervalHours is used when a medication is created without an
// explicit dosing interval (once daily).
const DefaultIntervalHours = 24

// Interval returns the expected time between doses.
func (m Medication) Interval() time.Duration {
	hours := m.IntervalHours
	if hours <= 0 {
		hours = DefaultIntervalHours
	}
	return time.Duration(hours) * time.Hour
}

// -----------------------------------------------------------------------------
// METRIC SERIES - A named, unit-tagged time series of logged values
// -----------------------------------------------------------------------------

// MetricSeries describes one tracked vital sign or custom metric.
type MetricSeries struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`       // Display name
	VitalSign string    `json:"vital_sign"` // Canonical vital-sign name
	Unit      string    `json:"unit"`
	Visible   bool      `json:"visible"`
	Custom    bool      `json:"custom"`
	CreatedAt time.Time `json:"created_at"`
}

// DataPoint is a single logged value in a metric series.
type DataPoint struct {
	ID        string  `json:"id"`
	SeriesID  string  `json:"series_id"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"` // Unix millis
	Note      string  `json:"note,omitempty"`
}

// Time returns the data point's timestamp as a time.Time.
func (p DataPoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// -----------------------------------------------------------------------------
// HEALTH CONTACT - Target of critical-alert broadcasts
// -----------------------------------------------------------------------------

// HealthContact is an external contact notified on CRITICAL status.
type HealthContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"` // e.g. Pharmacist, Doctor, Caregiver
}
