package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmapet/pharmapet/internal/storage"
)

// Subscriber receives notifications in real-time
type Subscriber interface {
	Send(notification Notification) error
	ID() string
}

// Service manages the notification feed
type Service struct {
	db          *storage.DB
	subscribers map[string]Subscriber
	mu          sync.RWMutex
}

// NewService creates a new notification service
func NewService(db *storage.DB) *Service {
	return &Service{
		db:          db,
		subscribers: make(map[string]Subscriber),
	}
}

// Subscribe adds a subscriber for real-time delivery
func (s *Service) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub.ID()] = sub
}

// Unsubscribe removes a subscriber
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

// Raise records a notification and broadcasts it. A non-empty dedupeKey
// makes the raise idempotent: a second raise with the same key updates the
// existing entry in place instead of creating a duplicate, and is not
// re-broadcast.
func (s *Service) Raise(ctx context.Context, channel, title, body, dedupeKey string) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New().String(),
		Channel:   channel,
		Title:     title,
		Body:      body,
		Priority:  channelPriority(channel),
		DedupeKey: dedupeKey,
		CreatedAt: time.Now().UTC(),
	}

	var key interface{}
	if dedupeKey != "" {
		key = dedupeKey
	}

	// The dedupe index is partial, so the conflict target must repeat its
	// predicate for SQLite to match it.
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO notifications (id, channel, title, body, priority, dedupe_key, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, ?)
		ON CONFLICT(dedupe_key) WHERE dedupe_key IS NOT NULL
		DO UPDATE SET title = excluded.title, body = excluded.body
	`, n.ID, n.Channel, n.Title, n.Body, n.Priority, key, n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	inserted, err := s.exists(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.broadcast(*n)
		return n, nil
	}

	// A dedupe update kept the original row. Return that row so callers see
	// the stored identity, and do not re-notify subscribers.
	return s.getByDedupeKey(ctx, dedupeKey)
}

func (s *Service) exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) getByDedupeKey(ctx context.Context, dedupeKey string) (*Notification, error) {
	var n Notification
	var body sql.NullString
	var readAt sql.NullTime
	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, channel, title, body, priority, read, created_at, read_at
		FROM notifications WHERE dedupe_key = ?
	`, dedupeKey).Scan(&n.ID, &n.Channel, &n.Title, &body, &n.Priority,
		&n.Read, &n.CreatedAt, &readAt)
	if err != nil {
		return nil, fmt.Errorf("load deduped notification: %w", err)
	}
	n.Body = body.String
	n.DedupeKey = dedupeKey
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}

// broadcast fans a notification out to all subscribers
func (s *Service) broadcast(n Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		go func(subscriber Subscriber) {
			subscriber.Send(n)
		}(sub)
	}
}

// List returns up to limit notifications, newest first
func (s *Service) List(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, channel, title, body, priority, dedupe_key, read, created_at, read_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		var n Notification
		var body, dedupe sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.Channel, &n.Title, &body, &n.Priority,
			&dedupe, &n.Read, &n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		n.Body = body.String
		n.DedupeKey = dedupe.String
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		list = append(list, n)
	}

	return list, rows.Err()
}

// MarkRead marks a notification as read
func (s *Service) MarkRead(ctx context.Context, id string) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = ?
		WHERE id = ? AND read = FALSE
	`, time.Now().UTC(), id)
	return err
}

// UnreadCount returns the number of unread notifications
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE read = FALSE`).Scan(&count)
	return count, err
}
