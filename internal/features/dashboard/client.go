package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"logrelay/internal/features/realtime"

	"github.com/coder/quartz"
	"github.com/coder/websocket"
)

type ClientOptions struct {
	// URL of the realtime endpoint, e.g. ws://localhost:4005/api/ws.
	URL   string
	Room  string
	Token string
	// PingInterval of zero disables latency pings.
	PingInterval time.Duration

	Dial   DialFunc
	Clock  quartz.Clock
	Logger *slog.Logger
}

// Client keeps one realtime connection alive and feeds everything it
// receives into a Pipeline. Abnormal closes are retried once per close
// after ReconnectDelay; auth failures and normal closures are final.
type Client struct {
	options  ClientOptions
	pipeline *Pipeline
	logger   *slog.Logger

	mu             sync.Mutex
	state          ConnectionState
	token          string
	generation     uint64
	cancelSession  context.CancelFunc
	conn           Conn
	reconnectTimer *quartz.Timer
	reconnectAt    time.Time
	lastCloseCode  websocket.StatusCode
	latency        time.Duration
	isClosed       bool

	wg sync.WaitGroup
}

func NewClient(options ClientOptions, view View) *Client {
	if options.Dial == nil {
		options.Dial = DialWebsocket
	}
	if options.Clock == nil {
		options.Clock = quartz.NewReal()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	logger := options.Logger.With("component", "dashboard", "room", options.Room)

	return &Client{
		options:       options,
		pipeline:      NewPipeline(options.Clock, view, logger),
		logger:        logger,
		state:         ConnectionStateClosed,
		token:         options.Token,
		lastCloseCode: -1,
	}
}

func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed || c.cancelSession != nil {
		return
	}
	c.startSessionLocked()
}

// ForceReconnect drops the current connection and any pending retry,
// discards queued messages and connects again right away.
func (c *Client) ForceReconnect() {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return
	}
	c.stopSessionLocked()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "reconnecting")
	}
	c.pipeline.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		c.logger.Info("reconnecting on request")
		c.startSessionLocked()
	}
}

// UpdateToken replaces the credentials and reconnects with them.
func (c *Client) UpdateToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.ForceReconnect()
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return
	}
	c.isClosed = true
	conn := c.conn
	c.conn = nil
	c.state = ConnectionStateClosed
	c.stopSessionLocked()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "dashboard closed")
	}
	c.wg.Wait()
	c.pipeline.Reset()
}

func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ReconnectIn reports the time left until the pending reconnect, if any.
func (c *Client) ReconnectIn() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnectTimer == nil {
		return 0, false
	}
	return max(c.reconnectAt.Sub(c.options.Clock.Now()), 0), true
}

// LastCloseCode is -1 until a connection has been closed by the server.
func (c *Client) LastCloseCode() websocket.StatusCode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastCloseCode
}

func (c *Client) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.latency
}

func (c *Client) Pipeline() *Pipeline {
	return c.pipeline
}

func (c *Client) startSessionLocked() {
	c.generation++
	generation := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelSession = cancel
	c.state = ConnectionStateConnecting

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		c.runSession(ctx, generation)
	}()
}

// stopSessionLocked invalidates the current session so that its late
// events are ignored.
func (c *Client) stopSessionLocked() {
	c.generation++

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.cancelSession != nil {
		c.cancelSession()
		c.cancelSession = nil
	}
}

func (c *Client) runSession(ctx context.Context, generation uint64) {
	conn, err := c.options.Dial(ctx, c.sessionURL())
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("failed to connect", slog.String("error", err.Error()))
		c.mu.Lock()
		if generation == c.generation && !c.isClosed {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	c.mu.Lock()
	if generation != c.generation || c.isClosed {
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	if c.options.PingInterval > 0 {
		c.options.Clock.TickerFunc(ctx, c.options.PingInterval, func() error {
			c.sendPing(ctx, conn)
			return nil
		}, "client", "ping")
	}

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.handleDisconnect(generation, err)
			return
		}

		message, err := ParseMessage(data)
		if err != nil {
			c.logger.Warn("ignoring unreadable message", slog.String("error", err.Error()))
			continue
		}

		if !c.handleMessage(ctx, generation, conn, message) {
			return
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, generation uint64, conn Conn, message Message) bool {
	c.mu.Lock()
	if generation != c.generation || c.isClosed {
		c.mu.Unlock()
		return false
	}

	var reply *realtime.ClientMessage
	switch message.Type {
	case realtime.MessageTypeAuthRequired:
		if c.token != "" {
			reply = &realtime.ClientMessage{Type: realtime.MessageTypeAuth, Token: c.token}
		} else {
			c.state = ConnectionStateAuthRequired
		}
	case realtime.MessageTypeConnected:
		c.state = ConnectionStateConnected
		c.logger.Info("connected")
	case realtime.MessageTypePong:
		var payload realtime.TimestampPayload
		if err := message.Decode(&payload); err == nil && payload.Timestamp > 0 {
			sentAt := time.UnixMilli(payload.Timestamp)
			c.latency = max(c.options.Clock.Since(sentAt), 0)
		}
	}
	c.mu.Unlock()

	if reply != nil {
		c.write(ctx, conn, *reply)
	}
	c.pipeline.Push(message)

	return true
}

func (c *Client) handleDisconnect(generation uint64, err error) {
	code := websocket.CloseStatus(err)

	c.mu.Lock()
	if generation != c.generation || c.isClosed {
		c.mu.Unlock()
		return
	}

	c.conn = nil
	c.cancelSession = nil
	c.lastCloseCode = code

	switch code {
	case realtime.StatusAuthFailed:
		c.state = ConnectionStateAuthRequired
		c.logger.Warn("server rejected credentials, not reconnecting")
	case websocket.StatusNormalClosure:
		c.state = ConnectionStateClosed
		c.logger.Info("server closed the connection")
	default:
		c.logger.Warn("connection lost",
			slog.Int("code", int(code)),
			slog.String("error", err.Error()))
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	c.pipeline.Reset()
}

func (c *Client) scheduleReconnectLocked() {
	if c.reconnectTimer != nil {
		return
	}

	generation := c.generation
	c.state = ConnectionStateReconnecting
	c.reconnectAt = c.options.Clock.Now().Add(ReconnectDelay)
	c.reconnectTimer = c.options.Clock.AfterFunc(ReconnectDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if generation != c.generation || c.isClosed {
			return
		}
		c.reconnectTimer = nil
		c.startSessionLocked()
	}, "client", "reconnect")
}

func (c *Client) sendPing(ctx context.Context, conn Conn) {
	c.write(ctx, conn, realtime.ClientMessage{
		Type:      realtime.MessageTypePing,
		Timestamp: c.options.Clock.Now().UnixMilli(),
	})
}

func (c *Client) write(ctx context.Context, conn Conn, message realtime.ClientMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		c.logger.Error("failed to encode message", slog.String("error", err.Error()))
		return
	}

	if err := conn.Write(ctx, data); err != nil && ctx.Err() == nil {
		c.logger.Warn("failed to send message",
			slog.String("type", string(message.Type)),
			slog.String("error", err.Error()))
	}
}

func (c *Client) sessionURL() string {
	if c.options.Room == "" {
		return c.options.URL
	}

	parsed, err := url.Parse(c.options.URL)
	if err != nil {
		return c.options.URL
	}
	query := parsed.Query()
	query.Set("room", c.options.Room)
	parsed.RawQuery = query.Encode()

	return parsed.String()
}
