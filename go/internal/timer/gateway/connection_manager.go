package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

// Coordinator is what the gateway needs from the timer coordinator.
type Coordinator interface {
	Dispatch(ctx context.Context, cmd timer.Command) (timer.Result, error)
	Subscribe(ctx context.Context, obs timer.Observer) error
	Unsubscribe(ctx context.Context, obs timer.Observer) error
}

// ConnectionManager manages WebSocket connections to timer observers
type ConnectionManager struct {
	coordinator Coordinator

	connections map[*Connection]struct{}
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config ConnectionConfig
}

// Connection is one observer: a control panel or a display.
type Connection struct {
	ID          string
	RemoteAddr  string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager
	ConnectedAt time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	closing   atomic.Bool
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	CommandTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// ConnectionStats is a point-in-time view of connected observers.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		CommandTimeout:  5 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  64,
		CheckOrigin: func(r *http.Request) bool {
			// Displays are opened from arbitrary hosts on the venue network.
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(coordinator Coordinator, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		coordinator: coordinator,
		connections: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// ServeConnection upgrades an HTTP request to a WebSocket observer and
// serves it until the peer goes away. The observer receives the current
// timer state before anything else.
func (cm *ConnectionManager) ServeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New().String(),
		RemoteAddr:  r.RemoteAddr,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}

	cm.registerConnection(connection)

	subCtx, subCancel := context.WithTimeout(ctx, cm.config.CommandTimeout)
	err = cm.coordinator.Subscribe(subCtx, connection)
	subCancel()
	if err != nil {
		log.Error().Err(err).Str("connection_id", connection.ID).Msg("failed to subscribe connection")
		cm.unregisterConnection(connection)
		conn.Close()
		cancel()
		return fmt.Errorf("failed to subscribe connection: %w", err)
	}

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", connection.RemoteAddr).
		Msg("client connected")

	go connection.writePump()
	connection.readPump()
	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = struct{}{}

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.connections, conn)
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return ConnectionStats{TotalConnections: len(cm.connections)}
}

// CloseAll drops every connection. Clients reconnect and get a fresh
// snapshot.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		conn.Conn.Close()
	}
}

// Notify queues a timerState frame for the client. It runs on the
// coordinator's goroutine, so a client that cannot keep up is
// disconnected rather than waited on.
func (c *Connection) Notify(snapshot timer.Snapshot) {
	if c.closing.Load() {
		return
	}

	frame, err := EncodeState(snapshot)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to encode timer state")
		return
	}

	select {
	case c.Send <- frame:
	default:
		if c.closing.CompareAndSwap(false, true) {
			log.Warn().
				Str("connection_id", c.ID).
				Msg("connection send buffer full, closing connection")
			go c.Conn.Close()
		}
	}
}

// close detaches the connection from the coordinator before closing Send,
// so Notify can never write to a closed channel.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		if err := c.Manager.coordinator.Unsubscribe(context.Background(), c); err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("unsubscribe after coordinator stop")
		}
		c.Manager.unregisterConnection(c)
		c.cancel()
		close(c.Send)
		c.Conn.Close()

		log.Info().
			Str("connection_id", c.ID).
			Dur("connected_for", time.Since(c.ConnectedAt)).
			Msg("client disconnected")
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client commands until the connection fails
func (c *Connection) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage applies a command frame. Frames that do not decode
// to a known command are dropped; the protocol has no error event.
func (c *Connection) handleClientMessage(message []byte) {
	cmd, ok := ParseCommand(message)
	if !ok {
		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("ignoring unrecognized client message")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.Manager.config.CommandTimeout)
	defer cancel()

	res, err := c.Manager.coordinator.Dispatch(ctx, cmd)
	if err != nil {
		log.Error().
			Err(err).
			Str("connection_id", c.ID).
			Str("command", string(cmd.Type)).
			Msg("failed to dispatch timer command")
		return
	}

	log.Info().
		Str("connection_id", c.ID).
		Str("command", string(cmd.Type)).
		Bool("applied", res.Applied).
		Str("mode", string(res.Snapshot.Mode)).
		Msg("timer command received")
}
