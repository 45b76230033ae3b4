package broadcast

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// connState is the per-connection lifecycle state.
type connState int32

const (
	stateConnecting connState = iota
	stateAuthenticated
	stateSubscribed
	stateClosed
)

// Conn is one live client connection.
type Conn struct {
	id        string
	sessionID string
	ws        *websocket.Conn
	send      chan []byte
	mgr       *Manager
	log       zerolog.Logger

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id, sessionID string, ws *websocket.Conn, mgr *Manager, log zerolog.Logger) *Conn {
	// A first-subscribe drain enqueues up to a full backlog at once, so
	// the buffer must hold it plus acks and live frames in flight.
	bufSize := mgr.cfg.BacklogPerKey + 16
	if bufSize < 32 {
		bufSize = 32
	}
	c := &Conn{
		id:        id,
		sessionID: sessionID,
		ws:        ws,
		send:      make(chan []byte, bufSize),
		mgr:       mgr,
		log:       log,
		done:      make(chan struct{}),
	}
	c.state.Store(int32(stateConnecting))
	return c
}

// SessionID returns the session this connection authenticated as.
func (c *Conn) SessionID() string {
	return c.sessionID
}

func (c *Conn) setState(s connState) {
	// CLOSED is sticky
	if connState(c.state.Load()) == stateClosed {
		return
	}
	c.state.Store(int32(s))
}

// enqueue hands a frame to the write pump. A slow client does not block
// the publisher: the frame is dropped and logged.
func (c *Conn) enqueue(message []byte) bool {
	if connState(c.state.Load()) == stateClosed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		c.log.Warn().Str("conn_id", c.id).Msg("send buffer full, dropping frame")
		return false
	}
}

// readPump consumes client envelopes until the connection dies. The read
// deadline doubles as the idle timeout; pongs extend it.
func (c *Conn) readPump() {
	cfg := c.mgr.cfg
	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.IdleTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.IdleTimeout))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.closeFromReadError(err)
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(cfg.IdleTimeout))
		c.mgr.handleMessage(c, message)
	}
}

func (c *Conn) closeFromReadError(err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.Close(CloseNormal, "client closed", SourceClientClose)
	case isTimeout(err):
		c.Close(CloseGoingAway, "idle timeout", SourceIdleTimeout)
	default:
		c.Close(CloseUnexpected, "read error", SourceError)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// writePump flushes outbound frames and keeps the heartbeat going.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.mgr.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.mgr.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close(CloseUnexpected, "write error", SourceError)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.mgr.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(CloseUnexpected, "ping failed", SourceError)
				return
			}
		}
	}
}

// Close tears the connection down exactly once and records the close
// event with its (code, reason, source) triple.
func (c *Conn) Close(code int, reason string, source CloseSource) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateClosed))
		close(c.done)

		deadline := time.Now().Add(c.mgr.cfg.WriteTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()

		c.mgr.removeConn(c)
		c.mgr.recordClose(CloseEvent{
			Code:   code,
			Reason: reason,
			Source: source,
			At:     time.Now(),
		})
	})
}
