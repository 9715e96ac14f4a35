// Package storage provides persistence for PharmaPet.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
)

// Setting keys used across the daemon.
const (
	KeyHealthStatus  = "health_status"
	KeyHealthMessage = "health_message"
	KeyConditions    = "medical_conditions"
	KeyPetName       = "pet_name"
)

// DefaultPetName is used before the user names their pet.
const DefaultPetName = "PharmaPet"

// SettingsStore is a simple key-value layer for small scalar settings
// and the cached health status.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a new settings store
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for key, or fallback when unset
func (s *SettingsStore) Get(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return value, nil
}

// Set stores a value for key, replacing any previous value
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}

// HealthStatus returns the persisted cached status and message,
// defaulting to NORMAL before any classification has run.
func (s *SettingsStore) HealthStatus(ctx context.Context) (core.HealthStatus, string, error) {
	raw, err := s.Get(ctx, KeyHealthStatus, string(core.StatusNormal))
	if err != nil {
		return core.StatusNormal, core.DefaultStatusMessage, err
	}

	status := core.HealthStatus(raw)
	if !status.Valid() {
		status = core.StatusNormal
	}

	message, err := s.Get(ctx, KeyHealthMessage, core.DefaultStatusMessage)
	if err != nil {
		return status, core.DefaultStatusMessage, err
	}

	return status, message, nil
}

// SaveHealthStatus persists the cached status and message
func (s *SettingsStore) SaveHealthStatus(ctx context.Context, status core.HealthStatus, message string) error {
	if !status.Valid() {
		return core.ErrInvalidStatus
	}
	if err := s.Set(ctx, KeyHealthStatus, string(status)); err != nil {
		return err
	}
	return s.Set(ctx, KeyHealthMessage, message)
}

// Conditions returns the user's medical condition list
func (s *SettingsStore) Conditions(ctx context.Context) ([]string, error) {
	raw, err := s.Get(ctx, KeyConditions, "[]")
	if err != nil {
		return nil, err
	}

	var conditions []string
	if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
		return nil, err
	}
	return conditions, nil
}

// SaveConditions replaces the medical condition list
func (s *SettingsStore) SaveConditions(ctx context.Context, conditions []string) error {
	if conditions == nil {
		conditions = []string{}
	}
	data, err := json.Marshal(conditions)
	if err != nil {
		return err
	}
	return s.Set(ctx, KeyConditions, string(data))
}

// PetName returns the configured pet name
func (s *SettingsStore) PetName(ctx context.Context) string {
	name, err := s.Get(ctx, KeyPetName, DefaultPetName)
	if err != nil || name == "" {
		return DefaultPetName
	}
	return name
}
