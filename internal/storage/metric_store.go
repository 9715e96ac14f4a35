// Package storage provides persistence for PharmaPet.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pharmapet/pharmapet/internal/core"
)

// MetricStore handles metric series and data point persistence
type MetricStore struct {
	db *DB
}

// NewMetricStore creates a new metric store
func NewMetricStore(db *DB) *MetricStore {
	return &MetricStore{db: db}
}

// GetAllSeries returns every metric series, newest first
func (s *MetricStore) GetAllSeries(ctx context.Context) ([]core.MetricSeries, error) {
	return s.querySeries(ctx, `
		SELECT id, name, vital_sign, unit, visible, custom, created_at
		FROM metric_series
		ORDER BY created_at DESC
	`)
}

// GetVisibleSeries returns series with the visibility flag set, newest first
func (s *MetricStore) GetVisibleSeries(ctx context.Context) ([]core.MetricSeries, error) {
	return s.querySeries(ctx, `
		SELECT id, name, vital_sign, unit, visible, custom, created_at
		FROM metric_series
		WHERE visible = TRUE
		ORDER BY created_at DESC
	`)
}

func (s *MetricStore) querySeries(ctx context.Context, query string) ([]core.MetricSeries, error) {
	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []core.MetricSeries
	for rows.Next() {
		var ms core.MetricSeries
		if err := rows.Scan(&ms.ID, &ms.Name, &ms.VitalSign, &ms.Unit,
			&ms.Visible, &ms.Custom, &ms.CreatedAt); err != nil {
			return nil, err
		}
		series = append(series, ms)
	}

	return series, rows.Err()
}

// GetSeriesByID returns a single series
func (s *MetricStore) GetSeriesByID(ctx context.Context, id string) (*core.MetricSeries, error) {
	var ms core.MetricSeries
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT id, name, vital_sign, unit, visible, custom, created_at
		FROM metric_series WHERE id = ?
	`, id).Scan(&ms.ID, &ms.Name, &ms.VitalSign, &ms.Unit, &ms.Visible, &ms.Custom, &ms.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ms, nil
}

// CreateSeries inserts a new metric series
func (s *MetricStore) CreateSeries(ctx context.Context, ms *core.MetricSeries) error {
	if ms.ID == "" {
		ms.ID = uuid.New().String()
	}
	if ms.VitalSign == "" {
		ms.VitalSign = ms.Name
	}
	ms.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO metric_series (id, name, vital_sign, unit, visible, custom, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ms.ID, ms.Name, ms.VitalSign, ms.Unit, ms.Visible, ms.Custom, ms.CreatedAt)

	return err
}

// UpdateSeries updates a series (visibility, name, unit)
func (s *MetricStore) UpdateSeries(ctx context.Context, ms *core.MetricSeries) error {
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE metric_series SET name = ?, vital_sign = ?, unit = ?, visible = ?
		WHERE id = ?
	`, ms.Name, ms.VitalSign, ms.Unit, ms.Visible, ms.ID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// DeleteSeries removes a series and, via cascade, its data points
func (s *MetricStore) DeleteSeries(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM metric_series WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// InsertPoint logs a data point into a series
func (s *MetricStore) InsertPoint(ctx context.Context, p *core.DataPoint) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().UnixMilli()
	}

	var note interface{}
	if p.Note != "" {
		note = p.Note
	}

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO data_points (id, series_id, value, timestamp, note)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.SeriesID, p.Value, p.Timestamp, note)

	return err
}

// RecentPoints returns up to limit points for a series, newest first
func (s *MetricStore) RecentPoints(ctx context.Context, seriesID string, limit int) ([]core.DataPoint, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, series_id, value, timestamp, note
		FROM data_points
		WHERE series_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, seriesID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []core.DataPoint
	for rows.Next() {
		var p core.DataPoint
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.SeriesID, &p.Value, &p.Timestamp, &note); err != nil {
			return nil, err
		}
		p.Note = note.String
		points = append(points, p)
	}

	return points, rows.Err()
}

// LatestPoint returns the most recent point for a series, if any
func (s *MetricStore) LatestPoint(ctx context.Context, seriesID string) (*core.DataPoint, error) {
	points, err := s.RecentPoints(ctx, seriesID, 1)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, core.ErrRecordNotFound
	}
	return &points[0], nil
}
