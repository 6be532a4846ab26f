package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// ProposalsChannel is the NOTIFY channel raised by the proposals trigger
const ProposalsChannel = "proposals_changed"

// ChangeListener relays PostgreSQL notifications on one channel to a
// callback. It reconnects on its own after connection loss.
type ChangeListener struct {
	listener *pq.Listener
	channel  string
}

// NewChangeListener subscribes to channel over a dedicated connection
func NewChangeListener(dsn, channel string) (*ChangeListener, error) {
	report := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			slog.Warn("change listener connection problem", "channel", channel, "event", ev, "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("change listener reconnected", "channel", channel)
		}
	}

	l := pq.NewListener(dsn, 10*time.Second, time.Minute, report)
	if err := l.Listen(channel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	return &ChangeListener{listener: l, channel: channel}, nil
}

// Run calls onChange for every notification until ctx is done. A reconnect
// also triggers onChange since notifications may have been missed.
func (c *ChangeListener) Run(ctx context.Context, onChange func(op string)) {
	slog.Info("change listener started", "channel", c.channel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("change listener stopped", "channel", c.channel)
			return
		case n := <-c.listener.Notify:
			if n == nil {
				onChange("RECONNECT")
				continue
			}
			onChange(n.Extra)
		case <-ping.C:
			go func() {
				if err := c.listener.Ping(); err != nil {
					slog.Warn("change listener ping failed", "error", err)
				}
			}()
		}
	}
}

// Close releases the listener connection
func (c *ChangeListener) Close() error {
	return c.listener.Close()
}
