package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSPublisher connects to url; subjects are "<prefix>.<event type>".
func NewNATSPublisher(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("esports-platform"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", eventType, err)
	}
	subj := Subject(p.prefix, eventType)
	if err := p.conn.Publish(subj, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subj, err)
	}
	p.logger.DebugContext(ctx, "event published", slog.String("subject", subj))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

func Subject(prefix, eventType string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
