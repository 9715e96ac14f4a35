// Package storage provides persistence for PharmaPet.
package storage

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/pharmapet/pharmapet/internal/core"
)

// ContactStore handles health contact persistence
type ContactStore struct {
	db *DB
}

// NewContactStore creates a new contact store
func NewContactStore(db *DB) *ContactStore {
	return &ContactStore{db: db}
}

// GetAll returns every registered health contact
func (s *ContactStore) GetAll(ctx context.Context) ([]core.HealthContact, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, name, email, role FROM health_contacts ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []core.HealthContact
	for rows.Next() {
		var c core.HealthContact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Role); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// GetByID returns a contact by ID
func (s *ContactStore) GetByID(ctx context.Context, id string) (*core.HealthContact, error) {
	var c core.HealthContact
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT id, name, email, role FROM health_contacts WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Role)

	if err == sql.ErrNoRows {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// Create inserts a new contact
func (s *ContactStore) Create(ctx context.Context, c *core.HealthContact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO health_contacts (id, name, email, role) VALUES (?, ?, ?, ?)
	`, c.ID, c.Name, c.Email, c.Role)

	return err
}

// Update updates an existing contact
func (s *ContactStore) Update(ctx context.Context, c *core.HealthContact) error {
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE health_contacts SET name = ?, email = ?, role = ? WHERE id = ?
	`, c.Name, c.Email, c.Role, c.ID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// Delete removes a contact
func (s *ContactStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM health_contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}
