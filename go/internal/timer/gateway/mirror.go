package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

// JetStreamMirrorConfig holds configuration for the JetStream state mirror
type JetStreamMirrorConfig struct {
	URL            string
	StreamName     string
	SubjectPrefix  string // e.g. "timer.room"
	MaxReconnects  int
	ReconnectWait  time.Duration
	PublishTimeout time.Duration
	BufferSize     int
}

// DefaultJetStreamMirrorConfig returns default JetStream mirror configuration
func DefaultJetStreamMirrorConfig() JetStreamMirrorConfig {
	return JetStreamMirrorConfig{
		URL:            nats.DefaultURL,
		StreamName:     "TIMER_STATE",
		SubjectPrefix:  "timer.room",
		MaxReconnects:  -1, // Infinite
		ReconnectWait:  2 * time.Second,
		PublishTimeout: 5 * time.Second,
		BufferSize:     32,
	}
}

// MirrorMessage is the JSON body published for each snapshot.
type MirrorMessage struct {
	ID          string         `json:"id"`
	PublishedAt time.Time      `json:"publishedAt"`
	State       timer.Snapshot `json:"state"`
}

// msgPublisher is the slice of jetstream.JetStream the mirror uses.
type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamMirror is a timer observer that republishes every snapshot to
// a JetStream subject keeping only the latest message.
type JetStreamMirror struct {
	nc        *nats.Conn
	publisher msgPublisher
	config    JetStreamMirrorConfig

	pending chan timer.Snapshot
	dropped atomic.Uint64
}

// NewJetStreamMirror connects to NATS and ensures the mirror stream exists.
func NewJetStreamMirror(ctx context.Context, cfg JetStreamMirrorConfig) (*JetStreamMirror, error) {
	opts := []nats.Option{
		nats.Name("cueclock-gateway"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureMirrorStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	m := newJetStreamMirror(js, cfg)
	m.nc = nc
	return m, nil
}

func newJetStreamMirror(publisher msgPublisher, cfg JetStreamMirrorConfig) *JetStreamMirror {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	return &JetStreamMirror{
		publisher: publisher,
		config:    cfg,
		pending:   make(chan timer.Snapshot, cfg.BufferSize),
	}
}

func ensureMirrorStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamMirrorConfig) error {
	sc := jetstream.StreamConfig{
		Name:              cfg.StreamName,
		Description:       "Latest timer state per room",
		Subjects:          []string{cfg.SubjectPrefix + ".>"},
		Storage:           jetstream.MemoryStorage,
		MaxMsgsPerSubject: 1,
		Discard:           jetstream.DiscardOld,
		Replicas:          1,
	}

	stream, err := js.CreateOrUpdateStream(ctx, sc)
	if err != nil {
		return fmt.Errorf("create or update stream: %w", err)
	}

	log.Info().
		Str("stream", stream.CachedInfo().Config.Name).
		Str("subjects", cfg.SubjectPrefix+".>").
		Msg("JetStream mirror stream ready")
	return nil
}

// Subject returns the subject snapshots are published on.
func (m *JetStreamMirror) Subject() string {
	return m.config.SubjectPrefix + ".state"
}

// Notify queues a snapshot for publishing. When the publisher falls
// behind, the oldest queued snapshot is discarded so the newest one always
// reaches the stream. Notify runs on the coordinator's goroutine, which is
// the only sender on pending.
func (m *JetStreamMirror) Notify(snapshot timer.Snapshot) {
	select {
	case m.pending <- snapshot:
		return
	default:
	}

	select {
	case <-m.pending:
		m.dropped.Add(1)
	default:
	}

	select {
	case m.pending <- snapshot:
	default:
		m.dropped.Add(1)
	}
}

// Dropped returns how many queued snapshots were superseded before they
// could be published.
func (m *JetStreamMirror) Dropped() uint64 {
	return m.dropped.Load()
}

// Run publishes queued snapshots until ctx is cancelled.
func (m *JetStreamMirror) Run(ctx context.Context) error {
	log.Info().Str("subject", m.Subject()).Msg("JetStream mirror started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("dropped", m.Dropped()).Msg("JetStream mirror shutting down")
			return nil
		case snapshot := <-m.pending:
			if err := m.publish(ctx, snapshot); err != nil {
				log.Error().Err(err).Str("subject", m.Subject()).Msg("failed to mirror timer state")
			}
		}
	}
}

func (m *JetStreamMirror) publish(ctx context.Context, snapshot timer.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.PublishTimeout)
	defer cancel()

	msg := MirrorMessage{
		ID:          uuid.New().String(),
		PublishedAt: time.Now().UTC(),
		State:       snapshot,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ack, err := m.publisher.PublishMsg(ctx, &nats.Msg{
		Subject: m.Subject(),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(EventTimerState)},
			"Event-ID":   []string{msg.ID},
			"Timer-Mode": []string{string(snapshot.Mode)},
		},
	},
		jetstream.WithMsgID(msg.ID),
		jetstream.WithExpectStream(m.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", m.Subject()).
		Str("event_id", msg.ID).
		Uint64("sequence", ack.Sequence).
		Msg("mirrored timer state")
	return nil
}

// Close drains the NATS connection.
func (m *JetStreamMirror) Close() error {
	if m.nc != nil {
		return m.nc.Drain()
	}
	return nil
}
