package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/internal/features/protocol"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	headerKeyAppName  = "appname"
	headerKeyHostName = "hostname"
	headerKeyRoom     = "room"
)

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Connection is the per-socket ingestion state machine. handleData is only
// called from the connection's read goroutine; the mutex guards the fields
// that health reporting reads concurrently.
type Connection struct {
	ID          uuid.UUID
	RemoteAddr  string
	ConnectedAt time.Time

	writer       io.Writer
	writeTimeout time.Duration
	assembler    *protocol.FrameAssembler
	banner       []byte

	roomRegistry  *rooms.RoomRegistry
	packetService *PacketService
	publisher     EventPublisher
	logger        *slog.Logger
	now           func() time.Time

	mu           sync.RWMutex
	state        ConnectionState
	clientBanner string
	appName      string
	hostName     string
	roomID       string
	joined       bool

	packets        atomic.Uint64
	bytes          atomic.Uint64
	decodeFailures atomic.Uint64

	decodeWarning   rate.Sometimes
	bannerTruncated bool
}

func newConnection(
	remoteAddr string,
	writer io.Writer,
	maxFrameSize int,
	writeTimeout time.Duration,
	roomRegistry *rooms.RoomRegistry,
	packetService *PacketService,
	publisher EventPublisher,
	logger *slog.Logger,
) *Connection {
	id := uuid.New()

	return &Connection{
		ID:            id,
		RemoteAddr:    remoteAddr,
		ConnectedAt:   time.Now().UTC(),
		writer:        writer,
		writeTimeout:  writeTimeout,
		assembler:     protocol.NewFrameAssembler(maxFrameSize),
		roomRegistry:  roomRegistry,
		packetService: packetService,
		publisher:     publisher,
		logger:        logger.With(slog.String("connectionId", id.String()), slog.String("remoteAddr", remoteAddr)),
		now:           func() time.Time { return time.Now().UTC() },
		state:         ConnectionStateAwaitingBanner,
		roomID:        roomRegistry.DefaultRoom(),
		decodeWarning: rate.Sometimes{Interval: 5 * time.Second},
	}
}

// open sends the server banner and joins the default room.
func (c *Connection) open() error {
	if err := c.write([]byte(protocol.ServerBanner)); err != nil {
		return fmt.Errorf("failed to send banner: %w", err)
	}

	room := c.roomRegistry.AddConnection(c.RoomID(), c.ID)
	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()
	c.publisher.PublishToRoom(room.ID, realtime.NewClientConnectMessage(c.clientInfo()))

	c.logger.Info("ingestion client connected", slog.String("room", room.ID))
	return nil
}

// handleData consumes one read's worth of bytes. A returned error means the
// connection must be closed.
func (c *Connection) handleData(data []byte) error {
	c.bytes.Add(uint64(len(data)))

	if c.State() == ConnectionStateAwaitingBanner {
		var complete bool
		data, complete = c.consumeBanner(data)
		if !complete || len(data) == 0 {
			return nil
		}
	}

	c.assembler.Feed(data)
	frames, drainErr := c.assembler.Drain()

	for _, frame := range frames {
		if err := c.handleFrame(frame); err != nil {
			return err
		}
	}

	if drainErr != nil {
		c.logger.Warn("closing connection after framing violation", slog.Any("error", drainErr))
		return drainErr
	}

	return nil
}

// consumeBanner buffers bytes up to the first '\n'. It returns whatever
// followed the terminator and whether the banner is complete.
func (c *Connection) consumeBanner(data []byte) ([]byte, bool) {
	terminator := bytes.IndexByte(data, '\n')

	line := data
	if terminator >= 0 {
		line = data[:terminator]
	}

	overflows := len(c.banner)+len(line) > maxClientBannerSize
	if room := maxClientBannerSize - len(c.banner); room > 0 {
		c.banner = append(c.banner, line[:min(room, len(line))]...)
	}
	if overflows && !c.bannerTruncated {
		c.bannerTruncated = true
		c.logger.Warn("client banner exceeds limit, discarding excess",
			slog.Int("limit", maxClientBannerSize))
	}

	if terminator < 0 {
		return nil, false
	}

	clientBanner := strings.TrimRight(string(c.banner), "\r")
	c.banner = nil

	c.mu.Lock()
	c.clientBanner = clientBanner
	c.state = ConnectionStateStreaming
	c.mu.Unlock()

	c.logger.Debug("client banner received", slog.String("banner", clientBanner))
	return data[terminator+1:], true
}

func (c *Connection) handleFrame(frame protocol.Frame) error {
	packet, err := protocol.Decode(frame.Kind, frame.Payload)
	if err != nil {
		c.decodeFailures.Add(1)
		c.decodeWarning.Do(func() {
			c.logger.Warn("dropping undecodable packet",
				slog.String("kind", frame.Kind.String()),
				slog.Int("length", len(frame.Payload)),
				slog.Uint64("decodeFailures", c.decodeFailures.Load()),
				slog.Any("error", err))
		})
		return nil
	}

	c.packets.Add(1)

	if err := c.write(protocol.Ack); err != nil {
		return fmt.Errorf("failed to send ack: %w", err)
	}

	if header, ok := packet.(protocol.LogHeader); ok {
		c.applyLogHeader(header)
		return nil
	}

	c.packetService.Handle(c.packetContext(), packet)
	return nil
}

// applyLogHeader updates the connection's identity and, when a different
// room is named, moves the connection there before any later packet is
// routed.
func (c *Connection) applyLogHeader(header protocol.LogHeader) {
	values := protocol.ParseLogHeader(header.Content)

	c.mu.Lock()
	if appName, ok := values[headerKeyAppName]; ok {
		c.appName = appName
	}
	if hostName, ok := values[headerKeyHostName]; ok {
		c.hostName = hostName
	}
	previousRoomID := c.roomID
	targetRoomID := previousRoomID
	if roomID, ok := values[headerKeyRoom]; ok {
		targetRoomID = c.roomRegistry.ResolveID(roomID)
	}
	c.mu.Unlock()

	if targetRoomID != previousRoomID {
		leaving := c.clientInfo()
		room := c.roomRegistry.MoveConnection(c.ID, previousRoomID, targetRoomID)

		c.mu.Lock()
		c.roomID = room.ID
		c.mu.Unlock()

		c.publisher.PublishToRoom(previousRoomID, realtime.NewClientDisconnectMessage(leaving))
		c.publisher.PublishToRoom(room.ID, realtime.NewClientConnectMessage(c.clientInfo()))

		c.logger.Info("ingestion client switched room",
			slog.String("from", previousRoomID),
			slog.String("to", room.ID))
	}

	c.publisher.PublishToRoom(c.RoomID(), realtime.NewSessionMessage(c.clientInfo()))
}

// close leaves the room and announces the disconnect. Safe to call twice.
func (c *Connection) close() {
	c.mu.Lock()
	if c.state == ConnectionStateClosed {
		c.mu.Unlock()
		return
	}
	c.state = ConnectionStateClosed
	joined := c.joined
	c.mu.Unlock()

	c.assembler.Reset()

	if !joined {
		c.logger.Debug("ingestion connection closed before joining a room")
		return
	}

	roomID := c.RoomID()
	c.roomRegistry.RemoveConnection(roomID, c.ID)
	c.publisher.PublishToRoom(roomID, realtime.NewClientDisconnectMessage(c.clientInfo()))

	c.logger.Info("ingestion client disconnected",
		slog.String("room", roomID),
		slog.Uint64("packets", c.packets.Load()),
		slog.Uint64("bytes", c.bytes.Load()),
		slog.Uint64("decodeFailures", c.decodeFailures.Load()))
}

func (c *Connection) write(data []byte) error {
	if deadliner, ok := c.writer.(writeDeadliner); ok && c.writeTimeout > 0 {
		if err := deadliner.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}

	_, err := c.writer.Write(data)
	return err
}

func (c *Connection) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) packetContext() PacketContext {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return PacketContext{
		ConnectionID: c.ID,
		RemoteAddr:   c.RemoteAddr,
		AppName:      c.appName,
		HostName:     c.hostName,
		RoomID:       c.roomID,
		ReceivedAt:   c.now(),
	}
}

func (c *Connection) clientInfo() realtime.ClientInfo {
	return c.packetContext().ClientInfo()
}

func (c *Connection) Info() ConnectionInfoDTO {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ConnectionInfoDTO{
		ConnectionID:   c.ID.String(),
		RemoteAddr:     c.RemoteAddr,
		AppName:        c.appName,
		HostName:       c.hostName,
		Room:           c.roomID,
		State:          c.state,
		ClientBanner:   c.clientBanner,
		ConnectedAt:    c.ConnectedAt,
		Packets:        c.packets.Load(),
		Bytes:          c.bytes.Load(),
		DecodeFailures: c.decodeFailures.Load(),
	}
}
