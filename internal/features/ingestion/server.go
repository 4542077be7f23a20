package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/internal/features/rooms"

	"github.com/google/uuid"
)

const (
	defaultWriteTimeout = 10 * time.Second
	acceptRetryDelay    = 50 * time.Millisecond
)

// IngestionServer accepts client TCP connections and runs one read
// goroutine per connection.
type IngestionServer struct {
	listenAddr   string
	maxFrameSize int
	writeTimeout time.Duration

	roomRegistry  *rooms.RoomRegistry
	packetService *PacketService
	publisher     EventPublisher
	logger        *slog.Logger

	mu          sync.Mutex
	listener    net.Listener
	connections map[uuid.UUID]*trackedConnection
	isStopping  bool
	wg          sync.WaitGroup

	isListening      atomic.Bool
	totalConnections atomic.Uint64

	// counters carried over from connections that already closed
	closedPackets        atomic.Uint64
	closedBytes          atomic.Uint64
	closedDecodeFailures atomic.Uint64
}

type trackedConnection struct {
	connection *Connection
	netConn    net.Conn
}

func NewIngestionServer(
	listenAddr string,
	maxFrameSize int,
	roomRegistry *rooms.RoomRegistry,
	publisher EventPublisher,
	logger *slog.Logger,
) *IngestionServer {
	return &IngestionServer{
		listenAddr:    listenAddr,
		maxFrameSize:  maxFrameSize,
		writeTimeout:  defaultWriteTimeout,
		roomRegistry:  roomRegistry,
		packetService: NewPacketService(roomRegistry, publisher, logger),
		publisher:     publisher,
		logger:        logger,
		connections:   make(map[uuid.UUID]*trackedConnection),
	}
}

// PacketService lets other transports feed packets through the same path
// as TCP connections.
func (s *IngestionServer) PacketService() *PacketService {
	return s.packetService
}

// Listen binds the TCP listener. Serve must be called afterwards.
func (s *IngestionServer) Listen() error {
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.isListening.Store(true)
	s.logger.Info("ingestion listener started", slog.String("addr", listener.Addr().String()))
	return nil
}

// Serve accepts connections until ctx is cancelled, then closes every open
// connection and waits for their goroutines to finish.
func (s *IngestionServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return errors.New("ingestion server is not listening")
	}

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		s.isListening.Store(false)
		_ = listener.Close()
		s.closeAllConnections()
	}()

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}

			s.logger.Warn("failed to accept ingestion connection", slog.Any("error", err))
			time.Sleep(acceptRetryDelay)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConnection(netConn)
		}()
	}

	s.isListening.Store(false)
	s.closeAllConnections()
	s.wg.Wait()

	s.logger.Info("ingestion listener stopped")
	return nil
}

// Run binds and serves.
func (s *IngestionServer) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *IngestionServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *IngestionServer) IsListening() bool {
	return s.isListening.Load()
}

func (s *IngestionServer) Connections() []ConnectionInfoDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]ConnectionInfoDTO, 0, len(s.connections))
	for _, tracked := range s.connections {
		infos = append(infos, tracked.connection.Info())
	}
	return infos
}

func (s *IngestionServer) Stats() ServerStatsDTO {
	stats := ServerStatsDTO{
		IsListening:      s.IsListening(),
		TotalConnections: s.totalConnections.Load(),
		Packets:          s.closedPackets.Load(),
		Bytes:            s.closedBytes.Load(),
		DecodeFailures:   s.closedDecodeFailures.Load(),
	}

	for _, info := range s.Connections() {
		stats.ActiveConnections++
		stats.Packets += info.Packets
		stats.Bytes += info.Bytes
		stats.DecodeFailures += info.DecodeFailures
	}

	return stats
}

func (s *IngestionServer) serveConnection(netConn net.Conn) {
	connection := newConnection(
		netConn.RemoteAddr().String(),
		netConn,
		s.maxFrameSize,
		s.writeTimeout,
		s.roomRegistry,
		s.packetService,
		s.publisher,
		s.logger,
	)

	s.track(connection, netConn)
	defer func() {
		_ = netConn.Close()
		connection.close()
		s.untrack(connection)
	}()

	if err := connection.open(); err != nil {
		connection.logger.Warn("failed to open ingestion connection", slog.Any("error", err))
		return
	}

	buffer := make([]byte, readBufferSize)
	for {
		n, err := netConn.Read(buffer)
		if n > 0 {
			if handleErr := connection.handleData(buffer[:n]); handleErr != nil {
				connection.logger.Warn("closing ingestion connection", slog.Any("error", handleErr))
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				connection.logger.Debug("ingestion read failed", slog.Any("error", err))
			}
			return
		}
	}
}

func (s *IngestionServer) track(connection *Connection, netConn net.Conn) {
	s.totalConnections.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStopping {
		_ = netConn.Close()
	}
	s.connections[connection.ID] = &trackedConnection{connection: connection, netConn: netConn}
}

func (s *IngestionServer) untrack(connection *Connection) {
	s.mu.Lock()
	delete(s.connections, connection.ID)
	s.mu.Unlock()

	info := connection.Info()
	s.closedPackets.Add(info.Packets)
	s.closedBytes.Add(info.Bytes)
	s.closedDecodeFailures.Add(info.DecodeFailures)
}

func (s *IngestionServer) closeAllConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isStopping = true

	for _, tracked := range s.connections {
		_ = tracked.netConn.Close()
	}
}
