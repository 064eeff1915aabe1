// Package relay publishes chat lifecycle events to NATS JetStream so
// downstream consumers (analytics, notification fan-out) can follow turn
// activity without touching the database.
package relay

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/brickchat/backend/pkg/logger"
	"github.com/brickchat/backend/pkg/metrics"
)

const (
	// StreamName is the name of the lifecycle event stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all lifecycle subjects.
	SubjectPrefix = "chat"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	// EventTurnCompleted marks a fully delivered assistant turn.
	EventTurnCompleted EventType = "turn_completed"
	// EventStreamFailed marks a turn that ended with an upstream error.
	EventStreamFailed EventType = "stream_failed"
)

// Event is one lifecycle event on the relay stream.
type Event struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	UserID    string    `json:"user_id"`
	Type      EventType `json:"type"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds NATS connection configuration.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Relay wraps the NATS connection and JetStream context. A nil Relay is
// valid and drops all publishes, so callers need no connected-or-not
// branching.
type Relay struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect establishes a connection to the NATS server and ensures the
// lifecycle stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Relay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	r := &Relay{conn: nc, js: js, logger: log}
	if err := r.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return r, nil
}

func (r *Relay) ensureStream(ctx context.Context) error {
	if _, err := r.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := r.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat turn lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject for a lifecycle event.
func EventSubject(userID, threadID string, eventType EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, userID, threadID, eventType)
}

// Publish emits one lifecycle event. Publishing is best effort: failures are
// logged and counted, never surfaced to the request path.
func (r *Relay) Publish(ctx context.Context, threadID, userID string, eventType EventType, reason string) {
	if r == nil {
		return
	}

	event := Event{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		UserID:    userID,
		Type:      eventType,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal lifecycle event", zap.Error(err))
		metrics.RecordRelayPublish(string(eventType), "error")
		return
	}

	if _, err := r.js.Publish(ctx, EventSubject(userID, threadID, eventType), data); err != nil {
		r.logger.Warn("failed to publish lifecycle event",
			zap.String("thread_id", threadID),
			zap.String("type", string(eventType)),
			zap.Error(err))
		metrics.RecordRelayPublish(string(eventType), "error")
		return
	}
	metrics.RecordRelayPublish(string(eventType), "ok")
}

// Close closes the NATS connection.
func (r *Relay) Close() {
	if r != nil && r.conn != nil {
		r.conn.Close()
	}
}

// IsConnected returns true if connected to NATS.
func (r *Relay) IsConnected() bool {
	return r != nil && r.conn != nil && r.conn.IsConnected()
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
