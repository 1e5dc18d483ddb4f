// Package channel maintains the websocket progress channel to the backend.
//
// The channel is best-effort display plumbing: it reconnects on abnormal
// closes with a fixed delay up to a bounded attempt count, then falls back to
// progress-less operation for the rest of the session. All durable state
// transitions happen elsewhere, driven by request responses.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/facedeck/facedeck/internal/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
	writeTimeout     = 5 * time.Second

	defaultReconnectDelay = 2 * time.Second
	defaultMaxReconnects  = 3
)

// Handler receives every parsed inbound event. It runs on the channel's read
// goroutine and must not block.
type Handler func(ev domain.ProgressEvent)

// Channel is a reconnecting websocket client for progress notifications.
type Channel struct {
	baseURL string
	nodeID  string
	logger  *slog.Logger

	reconnectDelay time.Duration
	maxReconnects  int

	mu       sync.RWMutex
	conn     *websocket.Conn
	state    domain.ChannelState
	attempts int
	handler  Handler

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// Option tunes channel construction.
type Option func(*Channel)

// WithReconnectDelay sets the fixed inter-attempt reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithMaxReconnects bounds consecutive failed reconnect attempts.
func WithMaxReconnects(n int) Option {
	return func(c *Channel) {
		if n >= 0 {
			c.maxReconnects = n
		}
	}
}

// New creates a channel for the backend at baseURL, subscribing to events
// correlated to nodeID. Call Start to connect.
func New(baseURL, nodeID string, logger *slog.Logger, opts ...Option) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Channel{
		baseURL:        baseURL,
		nodeID:         nodeID,
		logger:         logger,
		reconnectDelay: defaultReconnectDelay,
		maxReconnects:  defaultMaxReconnects,
		state:          domain.ChannelDisconnected,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHandler registers the inbound-event sink.
func (c *Channel) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// State returns the current connection state.
func (c *Channel) State() domain.ChannelState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Attempts returns the consecutive failed reconnect attempt count.
func (c *Channel) Attempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

// Start launches the connect/reconnect loop in the background.
func (c *Channel) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// run drives the state machine: Disconnected -> Connecting -> Open, back to
// Disconnected on abnormal close, terminal Disconnected once the attempt
// budget is spent. The attempt counter resets only on a successful open.
func (c *Channel) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			c.setState(domain.ChannelDisconnected)
			return
		case <-c.stopCh:
			return
		default:
		}

		c.setState(domain.ChannelConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(domain.ChannelDisconnected)
			if !c.recordFailure() {
				c.logger.Warn("progress channel giving up", "attempts", c.Attempts())
				return
			}
			if !c.waitReconnect(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.state = domain.ChannelOpen
		c.attempts = 0 // Reset only on successful open
		c.mu.Unlock()
		c.logger.Info("progress channel open", "nodeID", c.nodeID)

		if err := c.subscribe(conn); err != nil {
			c.logger.Warn("progress channel subscribe failed", "error", err)
		}

		pingDone := make(chan struct{})
		c.wg.Add(1)
		go c.pingLoop(conn, pingDone)

		clean := c.readLoop(conn)
		close(pingDone)
		c.clearConn()

		if clean {
			// Caller-initiated close: never reconnect.
			c.setState(domain.ChannelDisconnected)
			return
		}

		c.setState(domain.ChannelDisconnected)
		if !c.recordFailure() {
			c.logger.Warn("progress channel giving up", "attempts", c.Attempts())
			return
		}
		if !c.waitReconnect(ctx) {
			return
		}
	}
}

// dial opens the websocket connection.
func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := buildWebSocketURL(c.baseURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// subscribe announces which node's events this client wants.
func (c *Channel) subscribe(conn *websocket.Conn) error {
	msg := map[string]string{"type": "subscribe", "node_id": c.nodeID}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop consumes messages until the connection drops. Returns true when
// the loop ended because the caller closed the channel.
func (c *Channel) readLoop(conn *websocket.Conn) (clean bool) {
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				return true
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("progress channel closed by peer")
			} else {
				c.logger.Warn("progress channel read error", "error", err)
			}
			return false
		}
		c.handleMessage(message)
	}
}

// handleMessage parses one inbound frame and hands it to the handler.
// Malformed frames are logged and dropped; they never tear the channel down.
func (c *Channel) handleMessage(data []byte) {
	var ev domain.ProgressEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logger.Warn("failed to parse channel event", "error", err)
		return
	}
	if ev.Kind == "" {
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler != nil {
		handler(ev)
	}
}

// pingLoop keeps the connection alive while it is open.
func (c *Channel) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// recordFailure bumps the attempt counter; false means the budget is spent.
func (c *Channel) recordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	return c.attempts < c.maxReconnects
}

// waitReconnect sleeps the fixed delay; false means the channel should stop.
func (c *Channel) waitReconnect(ctx context.Context) bool {
	select {
	case <-time.After(c.reconnectDelay):
		return true
	case <-ctx.Done():
		c.setState(domain.ChannelDisconnected)
		return false
	case <-c.stopCh:
		return false
	}
}

// Close performs a clean, caller-initiated shutdown. It is distinguished from
// an abnormal close and never triggers reconnection.
func (c *Channel) Close() {
	c.stopped.Do(func() {
		c.setState(domain.ChannelClosing)
		close(c.stopCh)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		}
	})
	c.wg.Wait()
	c.setState(domain.ChannelDisconnected)
}

func (c *Channel) setState(s domain.ChannelState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Closing is sticky until the run loop exits.
	if c.state == domain.ChannelClosing && s != domain.ChannelDisconnected {
		return
	}
	c.state = s
}

func (c *Channel) clearConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// buildWebSocketURL converts the backend base URL into its websocket endpoint.
func buildWebSocketURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, parsed.Host), nil
}
