// Package storage provides persistence for PharmaPet.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pharmapet/pharmapet/internal/core"
)

// MedicationStore handles medication persistence
type MedicationStore struct {
	db *DB
}

// NewMedicationStore creates a new medication store
func NewMedicationStore(db *DB) *MedicationStore {
	return &MedicationStore{db: db}
}

// GetAll returns all medications in insertion order
func (s *MedicationStore) GetAll(ctx context.Context) ([]core.Medication, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, name, dosage, frequency, interval_hours, last_taken, created_at
		FROM medications
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []core.Medication
	for rows.Next() {
		var m core.Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.Dosage, &m.Frequency,
			&m.IntervalHours, &m.LastTaken, &m.CreatedAt); err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}

	return meds, rows.Err()
}

// GetByID returns a medication by ID
func (s *MedicationStore) GetByID(ctx context.Context, id string) (*core.Medication, error) {
	var m core.Medication
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT id, name, dosage, frequency, interval_hours, last_taken, created_at
		FROM medications WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.Dosage, &m.Frequency,
		&m.IntervalHours, &m.LastTaken, &m.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Create inserts a new medication. A missing interval defaults to once daily.
func (s *MedicationStore) Create(ctx context.Context, m *core.Medication) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.IntervalHours <= 0 {
		m.IntervalHours = core.DefaultIntervalHours
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO medications (id, name, dosage, frequency, interval_hours, last_taken, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Dosage, m.Frequency, m.IntervalHours, m.LastTaken, m.CreatedAt)

	return err
}

// Update updates an existing medication
func (s *MedicationStore) Update(ctx context.Context, m *core.Medication) error {
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE medications SET
		    name = ?, dosage = ?, frequency = ?, interval_hours = ?, last_taken = ?
		WHERE id = ?
	`, m.Name, m.Dosage, m.Frequency, m.IntervalHours, m.LastTaken, m.ID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// MarkTaken records a dose taken at the given time
func (s *MedicationStore) MarkTaken(ctx context.Context, id string, when time.Time) error {
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE medications SET last_taken = ? WHERE id = ?
	`, when.UnixMilli(), id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// Delete removes a medication
func (s *MedicationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// Names returns the medication names in insertion order
func (s *MedicationStore) Names(ctx context.Context) ([]string, error) {
	meds, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Name)
	}
	return names, nil
}
