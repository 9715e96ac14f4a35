package health

import (
	"context"
	"sync"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// StatusSubscriber receives cached-status updates
type StatusSubscriber func(status core.HealthStatus, message string)

// StatusCache holds the process-wide cached health status: the most recent
// classifier result, consumed by the mood resolver, the report generator,
// and the API. Writes are last-writer-wins; concurrent invocations of the
// pipeline are not serialized because classification results are advisory.
// Consumers needing change notification subscribe rather than poll.
type StatusCache struct {
	mu          sync.RWMutex
	status      core.HealthStatus
	message     string
	subscribers map[string]StatusSubscriber
	settings    *storage.SettingsStore
	log         *logging.Logger
}

// NewStatusCache creates a status cache backed by the settings store.
// The cache starts at NORMAL with the placeholder message until Load or
// the first Set.
func NewStatusCache(settings *storage.SettingsStore) *StatusCache {
	return &StatusCache{
		status:      core.StatusNormal,
		message:     core.DefaultStatusMessage,
		subscribers: make(map[string]StatusSubscriber),
		settings:    settings,
		log:         logging.WithField("component", "statuscache"),
	}
}

// Load restores the persisted status, keeping defaults on any failure
func (c *StatusCache) Load(ctx context.Context) error {
	status, message, err := c.settings.HealthStatus(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.status = status
	c.message = message
	c.mu.Unlock()
	return nil
}

// Current returns the cached status and message
func (c *StatusCache) Current() (core.HealthStatus, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.message
}

// Set validates, persists, and publishes a new cached status. A status
// outside the enumeration is rejected and the prior value kept.
func (c *StatusCache) Set(ctx context.Context, status core.HealthStatus, message string) error {
	if !status.Valid() {
		return core.ErrInvalidStatus
	}

	if err := c.settings.SaveHealthStatus(ctx, status, message); err != nil {
		// Keep serving the new value in-process even if persistence failed;
		// the next successful Set repairs the stored copy.
		c.log.Warn("persisting health status failed: %v", err)
	}

	c.mu.Lock()
	c.status = status
	c.message = message
	subs := make([]StatusSubscriber, 0, len(c.subscribers))
	for _, sub := range c.subscribers {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		go sub(status, message)
	}

	return nil
}

// Subscribe registers a subscriber for status updates
func (c *StatusCache) Subscribe(id string, sub StatusSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[id] = sub
}

// Unsubscribe removes a subscriber
func (c *StatusCache) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, id)
}
