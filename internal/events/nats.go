package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subjectPrefix = "readycheck.events."

// Publisher is the slice of *nats.Conn the NATS sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSSink struct {
	conn Publisher
}

func NewNATSSink(conn Publisher) *NATSSink {
	return &NATSSink{conn: conn}
}

func (s *NATSSink) Publish(_ context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.EventType, err)
	}
	if err := s.conn.Publish(Subject(evt.EventType), data); err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventType, err)
	}
	return nil
}

func Subject(eventType string) string {
	return subjectPrefix + eventType
}

// Connect dials NATS with reconnect logging.
func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("ready-check"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
