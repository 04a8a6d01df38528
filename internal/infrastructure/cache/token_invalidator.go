package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// TokenChangedChannel is the NOTIFY channel raised when a grant or client changes
const TokenChangedChannel = "oauth2_access_token_changed"

// Invalidator is the cache side of token change notifications
type Invalidator interface {
	Invalidate(ctx context.Context, token string) error
	InvalidateAll(ctx context.Context) error
}

// TokenInvalidator keeps cached grants consistent across API instances.
// It uses PostgreSQL LISTEN/NOTIFY: the payload names the changed token,
// an empty payload means a whole client changed.
type TokenInvalidator struct {
	mu       sync.Mutex
	target   Invalidator
	connStr  string
	listener *pq.Listener
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopped  bool
}

// NewTokenInvalidator creates a new TokenInvalidator.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
func NewTokenInvalidator(target Invalidator, connStr string) *TokenInvalidator {
	return &TokenInvalidator{
		target:  target,
		connStr: connStr,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start starts the LISTEN/NOTIFY listener.
// Notifications are handled until ctx is done or Stop is called.
func (m *TokenInvalidator) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("token invalidator listener error", "event", int(ev), "error", err)
		}
	}

	m.listener = pq.NewListener(m.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := m.listener.Listen(TokenChangedChannel); err != nil {
		m.listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", TokenChangedChannel, err)
	}

	// Start goroutine to handle notifications
	go m.handleNotifications(ctx, m.listener.Notify)

	return nil
}

// Stop stops the listener and waits for the notification loop to exit
func (m *TokenInvalidator) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.stopCh)
	m.mu.Unlock()

	if m.listener == nil {
		return nil
	}
	<-m.doneCh
	return m.listener.Close()
}

// handleNotifications processes incoming NOTIFY events
func (m *TokenInvalidator) handleNotifications(ctx context.Context, notify <-chan *pq.Notification) {
	defer close(m.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case notification, ok := <-notify:
			if !ok {
				return
			}
			m.apply(ctx, notification)
		case <-time.After(90 * time.Second):
			// Periodic ping to keep connection alive
			go func() {
				if err := m.listener.Ping(); err != nil {
					slog.Warn("token invalidator ping failed", "error", err)
				}
			}()
		}
	}
}

// apply drops the cache entries affected by one notification
func (m *TokenInvalidator) apply(ctx context.Context, notification *pq.Notification) {
	// nil after a reconnect: notifications may have been missed
	if notification == nil || notification.Extra == "" {
		if err := m.target.InvalidateAll(ctx); err != nil {
			slog.Warn("failed to clear token cache", "error", err)
		}
		return
	}

	if err := m.target.Invalidate(ctx, notification.Extra); err != nil {
		slog.Warn("failed to invalidate cached token", "error", err)
	}
}
