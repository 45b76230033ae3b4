package broadcast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	"github.com/obafela/venuescout/backend/internal/infrastructure/observability"
	"github.com/obafela/venuescout/backend/pkg/config"
	"github.com/rs/zerolog"
)

// Manager maintains live connections, channel-scoped subscriptions, and
// bounded per-key backlogs. Publish is the single entry point used by
// every producer.
type Manager struct {
	cfg     config.BroadcastConfig
	log     zerolog.Logger
	metrics *observability.Metrics

	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[*Conn]struct{}
	subs   map[string]map[*Conn]struct{} // subscription key -> conns
	owners map[string]ownerRecord        // requestID -> owning session

	backlog  *backlog
	closeLog *closeLog

	now       func() time.Time
	stop      chan struct{}
	closeOnce sync.Once
}

// ownerRecord holds a session grant; expired records are treated as
// unknown requests and reaped by the sweep.
type ownerRecord struct {
	sessionID string // "" = open to any subscriber that knows the ID
	expiresAt time.Time
}

var _ providers.Publisher = (*Manager)(nil)

// NewManager creates a broadcast manager. Construct once at process start
// and inject it into every producer.
func NewManager(cfg config.BroadcastConfig, log zerolog.Logger, metrics *observability.Metrics) *Manager {
	if cfg.OwnershipTTL <= 0 {
		cfg.OwnershipTTL = 15 * time.Minute
	}
	m := &Manager{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns:    make(map[*Conn]struct{}),
		subs:     make(map[string]map[*Conn]struct{}),
		owners:   make(map[string]ownerRecord),
		backlog:  newBacklog(cfg.BacklogPerKey, cfg.BacklogTTL),
		closeLog: newCloseLog(0),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go m.sweepOwners()
	return m
}

// HandleWS upgrades an HTTP request into a managed connection.
// GET /ws?session_id=...
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	conn := newConn(uuid.NewString(), sessionID, ws, m, m.log)

	m.mu.Lock()
	m.conns[conn] = struct{}{}
	total := len(m.conns)
	m.mu.Unlock()

	// Session identity is established by the outer auth layer before the
	// upgrade reaches us, so the connection is authenticated on arrival.
	conn.setState(stateAuthenticated)
	m.log.Info().Str("conn_id", conn.id).Int("connections", total).Msg("connection established")

	go conn.writePump()
	go conn.readPump()
}

// GrantOwnership records which session owns a request, for subscription
// validation. An empty session leaves the request open to any subscriber
// that knows its ID.
func (m *Manager) GrantOwnership(requestID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[requestID] = ownerRecord{
		sessionID: sessionID,
		expiresAt: m.now().Add(m.cfg.OwnershipTTL),
	}
}

// sweepOwners reaps expired ownership grants so the registry stays
// bounded over the process lifetime.
func (m *Manager) sweepOwners() {
	ticker := time.NewTicker(m.cfg.OwnershipTTL / 4)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.pruneOwners()
		}
	}
}

func (m *Manager) pruneOwners() {
	cutoff := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for requestID, record := range m.owners {
		if record.expiresAt.Before(cutoff) {
			delete(m.owners, requestID)
		}
	}
}

// handleMessage processes one inbound frame. Payload contents are never
// logged.
func (m *Manager) handleMessage(c *Conn, message []byte) {
	var env InboundEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		m.log.Warn().Str("conn_id", c.id).Int("bytes", len(message)).Msg("malformed envelope")
		c.Close(ClosePolicy, "malformed envelope", SourcePolicy)
		return
	}
	env.Normalize()

	switch env.Type {
	case EnvelopeSubscribe:
		m.subscribe(c, &env)
	case EnvelopeUnsubscribe:
		m.unsubscribe(c, &env)
	case EnvelopeEvent:
		m.log.Debug().
			Str("conn_id", c.id).
			Str("channel", env.Channel).
			Int("payload_bytes", len(env.Payload)).
			Msg("client event received")
	default:
		m.log.Warn().Str("conn_id", c.id).Str("type", string(env.Type)).Msg("unknown envelope type")
	}
}

func (m *Manager) subscribe(c *Conn, env *InboundEnvelope) {
	ownerKey := env.OwnerKey()
	if ownerKey == "" {
		m.nack(c, env.Channel, "", "missing owner key")
		return
	}

	if reason := m.validateOwnership(c, env, ownerKey); reason != "" {
		m.nack(c, env.Channel, ownerKey, reason)
		return
	}

	key := SubscriptionKey(env.Channel, ownerKey)

	// Publishers hold the read side of this lock across their subscriber
	// check and backlog append, so draining under the write lock cannot
	// interleave with a publish. Backlogged messages reach the send queue
	// before any newer publish is delivered live.
	m.mu.Lock()
	first := m.subs[key] == nil
	if first {
		m.subs[key] = make(map[*Conn]struct{})
	}
	m.subs[key][c] = struct{}{}

	c.setState(stateSubscribed)
	m.ackLocked(c, env.Channel, key)

	var drained int
	if first {
		pending := m.backlog.drain(key)
		for _, message := range pending {
			c.enqueue(message)
		}
		drained = len(pending)
	}
	m.mu.Unlock()

	if drained > 0 {
		if m.metrics != nil {
			m.metrics.BacklogDepth.Add(context.Background(), -int64(drained))
		}
		m.log.Info().
			Str("key_hash", hashKey(key)).
			Int("drained", drained).
			Msg("backlog drained to new subscriber")
	}
}

func (m *Manager) validateOwnership(c *Conn, env *InboundEnvelope, ownerKey string) string {
	if env.Channel == providers.ChannelSession {
		if c.sessionID == "" || ownerKey != c.sessionID {
			return "session mismatch"
		}
		return ""
	}

	m.mu.RLock()
	record, known := m.owners[ownerKey]
	m.mu.RUnlock()

	if !known || record.expiresAt.Before(m.now()) {
		return "unknown request"
	}
	if record.sessionID != "" && record.sessionID != c.sessionID {
		return "not the request owner"
	}
	return ""
}

func (m *Manager) unsubscribe(c *Conn, env *InboundEnvelope) {
	key := SubscriptionKey(env.Channel, env.OwnerKey())

	m.mu.Lock()
	if conns, ok := m.subs[key]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m.subs, key)
		}
	}
	m.mu.Unlock()
}

func (m *Manager) ackLocked(c *Conn, channel, key string) {
	data, err := json.Marshal(ackPayload{Type: "sub_ack", Channel: channel, Key: key})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (m *Manager) nack(c *Conn, channel, ownerKey, reason string) {
	m.log.Warn().
		Str("conn_id", c.id).
		Str("channel", channel).
		Str("key_hash", hashKey(ownerKey)).
		Str("reason", reason).
		Msg("subscription rejected")

	data, err := json.Marshal(ackPayload{Type: "sub_nack", Channel: channel, Reason: reason})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// Publish delivers an event to every live subscriber of (channel,
// ownerKey), or appends it to the key's backlog when nobody is listening.
func (m *Manager) Publish(ctx context.Context, channel, ownerKey string, event *entities.OutboundEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := SubscriptionKey(channel, ownerKey)

	// The subscriber check and the backlog append stay under the lock:
	// a first subscribe drains under the write side, so it cannot slip
	// between them and leave this message stranded.
	m.mu.RLock()
	delivered := 0
	backlogged := len(m.subs[key]) == 0
	if backlogged {
		m.backlog.append(key, data)
	} else {
		for c := range m.subs[key] {
			if c.enqueue(data) {
				delivered++
			}
		}
	}
	m.mu.RUnlock()

	if m.metrics != nil {
		if backlogged {
			m.metrics.BacklogDepth.Add(ctx, 1)
		}
		m.metrics.PublishCount.Add(ctx, 1)
	}
	m.log.Info().
		Str("channel", channel).
		Str("key_hash", hashKey(ownerKey)).
		Str("event_type", string(event.Type)).
		Int("payload_bytes", len(data)).
		Int("delivered", delivered).
		Bool("backlogged", backlogged).
		Msg("event published")

	return nil
}

// removeConn drops a connection from the registry and all subscriptions.
func (m *Manager) removeConn(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns, c)
	for key, conns := range m.subs {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m.subs, key)
		}
	}
}

// recordClose logs a close event and checks the code/source pairing
// invariant.
func (m *Manager) recordClose(e CloseEvent) {
	m.closeLog.record(e)

	if !e.Valid() {
		if m.metrics != nil {
			m.metrics.CloseCodeViolations.Add(context.Background(), 1)
		}
		m.log.Error().
			Int("code", e.Code).
			Str("source", string(e.Source)).
			Msg("close-code pairing violation")
		return
	}

	m.log.Info().
		Int("code", e.Code).
		Str("reason", e.Reason).
		Str("source", string(e.Source)).
		Msg("connection closed")
}

// CloseAll closes every live connection, used during graceful shutdown.
func (m *Manager) CloseAll(source CloseSource) {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.Close(CloseGoingAway, "server shutting down", source)
	}
}

// Close stops the manager's background work. Live connections are not
// touched; call CloseAll first during shutdown.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.stop) })
}

// CloseEvents returns a snapshot of recorded close events.
func (m *Manager) CloseEvents() []CloseEvent {
	return m.closeLog.snapshot()
}

// ClientCount returns the number of live connections.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// BacklogDepth returns the retained message count for a key, for
// diagnostics.
func (m *Manager) BacklogDepth(channel, ownerKey string) int {
	return m.backlog.depth(SubscriptionKey(channel, ownerKey))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}
