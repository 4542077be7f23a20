package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"logrelay/internal/features/auth"
	"logrelay/internal/features/rooms"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
)

const (
	authTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	readLimitBytes = 64 * 1024
)

type RealtimeController struct {
	hub              *Hub
	roomRegistry     *rooms.RoomRegistry
	authService      *auth.TokenAuthService
	initEntriesLimit int
	acceptOptions    *websocket.AcceptOptions
	logger           *slog.Logger
}

func (c *RealtimeController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.Subscribe)
}

// Subscribe
// @Summary Real-time channel
// @Description Upgrades to a websocket that streams entries, watches, streams and control messages of one room
// @Tags realtime
// @Param room query string false "Room ID"
// @Param token query string false "Bearer token, may also be sent in-band after auth_required"
// @Router /ws [get]
func (c *RealtimeController) Subscribe(ctx *gin.Context) {
	conn, err := websocket.Accept(ctx.Writer, ctx.Request, c.acceptOptions)
	if err != nil {
		c.logger.Warn("failed to accept websocket",
			slog.String("remoteAddr", ctx.Request.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(readLimitBytes)

	c.serve(
		ctx.Request.Context(),
		conn,
		ctx.Query("room"),
		ctx.Request.RemoteAddr,
		ctx.ClientIP(),
		auth.TokenFromRequest(ctx.Request),
	)
}

func (c *RealtimeController) serve(
	ctx context.Context,
	conn *websocket.Conn,
	roomID string,
	remoteAddr string,
	clientKey string,
	token string,
) {
	if !c.authenticate(ctx, conn, clientKey, token) {
		return
	}

	subscriber, room := c.hub.Subscribe(roomID, remoteAddr)
	defer c.hub.Unsubscribe(subscriber)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.write(ctx, conn, NewConnectedMessage(subscriber.ID.String(), room.ID)); err != nil {
		return
	}
	initMessage := NewInitMessage(room, c.initEntriesLimit, c.roomIDs())
	if err := c.write(ctx, conn, initMessage); err != nil {
		return
	}
	lastEntryID := initMessage.Payload.(InitPayload).LastEntryID()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		c.readLoop(ctx, conn)
	}()

	c.writeLoop(ctx, conn, subscriber, lastEntryID)

	select {
	case <-subscriber.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		conn.CloseNow()
	}
	<-readerDone
}

// authenticate performs the in-band handshake when no token came with the
// upgrade request. A wrong token closes with StatusAuthFailed.
func (c *RealtimeController) authenticate(
	ctx context.Context,
	conn *websocket.Conn,
	clientKey string,
	token string,
) bool {
	if !c.authService.IsRequired() {
		return true
	}

	if token != "" {
		if err := c.authService.Authenticate(clientKey, token); err != nil {
			c.rejectAuth(conn, clientKey, err)
			return false
		}
		return true
	}

	if err := c.write(ctx, conn, Message{Type: MessageTypeAuthRequired}); err != nil {
		return false
	}

	authCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var message ClientMessage
	if err := wsjson.Read(authCtx, conn, &message); err != nil {
		c.logger.Info("websocket auth not completed", slog.String("error", err.Error()))
		return false
	}

	if message.Type != MessageTypeAuth {
		_ = conn.Close(StatusAuthFailed, "authentication failed")
		return false
	}
	if err := c.authService.Authenticate(clientKey, message.Token); err != nil {
		c.rejectAuth(conn, clientKey, err)
		return false
	}

	return c.write(ctx, conn, Message{Type: MessageTypeAuthSuccess}) == nil
}

func (c *RealtimeController) rejectAuth(conn *websocket.Conn, clientKey string, err error) {
	c.logger.Info("websocket auth rejected",
		slog.String("client", clientKey),
		slog.String("error", err.Error()))

	reason := "authentication failed"
	var throttled *auth.TooManyFailuresError
	if errors.As(err, &throttled) {
		reason = "too many failed attempts"
	}
	_ = conn.Close(StatusAuthFailed, reason)
}

func (c *RealtimeController) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var message ClientMessage
		if err := wsjson.Read(ctx, conn, &message); err != nil {
			if !isExpectedCloseError(err) {
				c.logger.Debug("websocket read ended", slog.String("error", err.Error()))
			}
			return
		}

		if message.Type == MessageTypePing {
			if err := c.write(ctx, conn, NewPongMessage(message.Timestamp)); err != nil {
				return
			}
		}
	}
}

// writeLoop drains everything queued at wake-up and batches it before
// writing.
// writeLoop skips entries up to lastEntryID. They were queued between
// subscribing and taking the init snapshot, which already carries them.
func (c *RealtimeController) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	subscriber *Subscriber,
	lastEntryID uint64,
) {
	outbound := subscriber.Outbound()

	for {
		select {
		case <-ctx.Done():
			return
		case <-subscriber.Done():
			return
		case first := <-outbound:
			pending := []Message{first}
		drain:
			for len(pending) < cap(outbound) {
				select {
				case next := <-outbound:
					pending = append(pending, next)
				default:
					break drain
				}
			}

			for _, message := range batchMessages(skipDeliveredEntries(pending, lastEntryID)) {
				if err := c.write(ctx, conn, message); err != nil {
					return
				}
			}
		}
	}
}

func (c *RealtimeController) write(ctx context.Context, conn *websocket.Conn, message Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(writeCtx, conn, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Debug("websocket write failed",
				slog.String("type", string(message.Type)),
				slog.String("error", err.Error()))
		}
		return err
	}

	return nil
}

func (c *RealtimeController) roomIDs() []string {
	roomList := c.roomRegistry.List()
	ids := make([]string, 0, len(roomList))
	for _, room := range roomList {
		ids = append(ids, room.ID)
	}
	return ids
}

func isExpectedCloseError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
