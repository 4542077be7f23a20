package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

type recordingView struct {
	mu            sync.Mutex
	applied       []Message
	watchUpdates  []map[string]rooms.Watch
	backlogEvents []bool
}

func (v *recordingView) Apply(message Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applied = append(v.applied, message)
}

func (v *recordingView) ApplyWatches(watches map[string]rooms.Watch) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watchUpdates = append(v.watchUpdates, watches)
}

func (v *recordingView) SetBacklogged(backlogged bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backlogEvents = append(v.backlogEvents, backlogged)
}

func (v *recordingView) appliedTypes() []realtime.MessageType {
	v.mu.Lock()
	defer v.mu.Unlock()

	types := make([]realtime.MessageType, 0, len(v.applied))
	for _, message := range v.applied {
		types = append(types, message.Type)
	}
	return types
}

func (v *recordingView) appliedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.applied)
}

func (v *recordingView) watches() []map[string]rooms.Watch {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]map[string]rooms.Watch(nil), v.watchUpdates...)
}

func (v *recordingView) backlog() []bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]bool(nil), v.backlogEvents...)
}

func mustMessage(t *testing.T, message realtime.Message) Message {
	t.Helper()

	data, err := json.Marshal(message)
	require.NoError(t, err)

	parsed, err := ParseMessage(data)
	require.NoError(t, err)
	return parsed
}

func entryMessage(t *testing.T) Message {
	return mustMessage(t, realtime.Message{Type: realtime.MessageTypeEntry, Payload: realtime.EntryPayload{}})
}

func watchMessage(t *testing.T, name string, value string) Message {
	return mustMessage(t, realtime.Message{
		Type:    realtime.MessageTypeWatch,
		Payload: realtime.WatchPayload{Watch: rooms.Watch{Name: name, Value: value}},
	})
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestClient(t *testing.T, options ClientOptions) (*Client, *recordingView) {
	t.Helper()

	options.Logger = logger.GetLogger()
	view := &recordingView{}
	client := NewClient(options, view)
	t.Cleanup(client.Close)

	return client, view
}

type readResult struct {
	data []byte
	err  error
}

type fakeConn struct {
	incoming chan readResult
	done     chan struct{}

	mu         sync.Mutex
	written    [][]byte
	closeCode  websocket.StatusCode
	closeCount int
	closeOnce  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming:  make(chan readResult, 16),
		done:      make(chan struct{}),
		closeCode: -1,
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, net.ErrClosed
	case result := <-c.incoming:
		return result.data, result.err
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close(code websocket.StatusCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeCount++
	if c.closeCode == -1 {
		c.closeCode = code
	}
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) send(t *testing.T, message realtime.Message) {
	t.Helper()

	data, err := json.Marshal(message)
	require.NoError(t, err)
	c.incoming <- readResult{data: data}
}

func (c *fakeConn) closeWith(code websocket.StatusCode) {
	c.incoming <- readResult{err: websocket.CloseError{Code: code, Reason: "test"}}
}

func (c *fakeConn) drop() {
	c.incoming <- readResult{err: errors.New("connection reset by peer")}
}

func (c *fakeConn) writtenMessages(t *testing.T) []realtime.ClientMessage {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]realtime.ClientMessage, 0, len(c.written))
	for _, data := range c.written {
		var message realtime.ClientMessage
		require.NoError(t, json.Unmarshal(data, &message))
		messages = append(messages, message)
	}
	return messages
}

func (c *fakeConn) firstCloseCode() websocket.StatusCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

type fakeServer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
}

func (s *fakeServer) dial(_ context.Context, url string) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := newFakeConn()
	s.urls = append(s.urls, url)
	s.conns = append(s.conns, conn)
	return conn, nil
}

func (s *fakeServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *fakeServer) waitForConn(t *testing.T, index int) *fakeConn {
	t.Helper()

	require.Eventually(t, func() bool { return s.dialCount() > index }, 2*time.Second, 5*time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[index]
}
