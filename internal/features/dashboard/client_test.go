package dashboard

import (
	"testing"
	"time"

	"logrelay/internal/features/realtime"

	"github.com/coder/quartz"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "ws://relay.local/api/ws"

func waitForState(t *testing.T, client *Client, state ConnectionState) {
	t.Helper()

	require.Eventually(t, func() bool { return client.State() == state },
		2*time.Second, 5*time.Millisecond, "expected state %s, got %s", state, client.State())
}

func Test_Client_WhenStarted_DialsRoomAndBecomesConnected(t *testing.T) {
	server := &fakeServer{}
	client, view := newTestClient(t, ClientOptions{
		URL: testURL, Room: "alpha", Dial: server.dial, Clock: quartz.NewMock(t),
	})

	client.Start()
	conn := server.waitForConn(t, 0)
	assert.Equal(t, ConnectionStateConnecting, client.State())

	conn.send(t, realtime.NewConnectedMessage("sub-1", "alpha"))
	waitForState(t, client, ConnectionStateConnected)

	assert.Equal(t, testURL+"?room=alpha", server.urls[0])
	require.Eventually(t, func() bool { return view.appliedCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []realtime.MessageType{realtime.MessageTypeConnected}, view.appliedTypes())
}

func Test_Client_WhenAuthRequiredAndTokenSet_SendsToken(t *testing.T) {
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{
		URL: testURL, Token: "secret", Dial: server.dial, Clock: quartz.NewMock(t),
	})

	client.Start()
	conn := server.waitForConn(t, 0)
	conn.send(t, realtime.Message{Type: realtime.MessageTypeAuthRequired})

	require.Eventually(t, func() bool { return len(conn.writtenMessages(t)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t,
		realtime.ClientMessage{Type: realtime.MessageTypeAuth, Token: "secret"},
		conn.writtenMessages(t)[0])
	assert.Equal(t, ConnectionStateConnecting, client.State())
}

func Test_Client_WhenAuthRequiredWithoutToken_WaitsForCredentials(t *testing.T) {
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: quartz.NewMock(t)})

	client.Start()
	conn := server.waitForConn(t, 0)
	conn.send(t, realtime.Message{Type: realtime.MessageTypeAuthRequired})

	waitForState(t, client, ConnectionStateAuthRequired)
	assert.Empty(t, conn.writtenMessages(t))

	client.UpdateToken("secret")
	second := server.waitForConn(t, 1)
	second.send(t, realtime.Message{Type: realtime.MessageTypeAuthRequired})

	require.Eventually(t, func() bool { return len(second.writtenMessages(t)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "secret", second.writtenMessages(t)[0].Token)
}

func Test_Client_WhenClosedWithAuthFailure_DoesNotReconnect(t *testing.T) {
	clock := quartz.NewMock(t)
	ctx := testContext(t)
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Token: "wrong", Dial: server.dial, Clock: clock})

	client.Start()
	server.waitForConn(t, 0).closeWith(realtime.StatusAuthFailed)

	waitForState(t, client, ConnectionStateAuthRequired)
	_, scheduled := client.ReconnectIn()
	assert.False(t, scheduled)
	assert.Equal(t, websocket.StatusCode(realtime.StatusAuthFailed), client.LastCloseCode())

	clock.Advance(ReconnectDelay).MustWait(ctx)
	assert.Equal(t, 1, server.dialCount())
}

func Test_Client_WhenClosedNormally_DoesNotReconnect(t *testing.T) {
	clock := quartz.NewMock(t)
	ctx := testContext(t)
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: clock})

	client.Start()
	server.waitForConn(t, 0).closeWith(websocket.StatusNormalClosure)

	waitForState(t, client, ConnectionStateClosed)
	_, scheduled := client.ReconnectIn()
	assert.False(t, scheduled)

	clock.Advance(ReconnectDelay).MustWait(ctx)
	assert.Equal(t, 1, server.dialCount())
}

func Test_Client_WhenClosedAbnormally_ReconnectsOnceAfterDelay(t *testing.T) {
	clock := quartz.NewMock(t)
	ctx := testContext(t)
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: clock})

	client.Start()
	server.waitForConn(t, 0).closeWith(websocket.StatusInternalError)

	waitForState(t, client, ConnectionStateReconnecting)
	remaining, scheduled := client.ReconnectIn()
	require.True(t, scheduled)
	assert.Equal(t, ReconnectDelay, remaining)

	clock.Advance(ReconnectDelay - time.Second).MustWait(ctx)
	remaining, _ = client.ReconnectIn()
	assert.Equal(t, time.Second, remaining)
	assert.Equal(t, 1, server.dialCount())

	clock.Advance(time.Second).MustWait(ctx)
	server.waitForConn(t, 1)
	waitForState(t, client, ConnectionStateConnecting)

	_, scheduled = client.ReconnectIn()
	assert.False(t, scheduled)
	assert.Equal(t, 2, server.dialCount())
}

func Test_Client_WhenConnectionDrops_ReconnectsAndDiscardsQueue(t *testing.T) {
	clock := quartz.NewMock(t)
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: clock})

	client.Start()
	conn := server.waitForConn(t, 0)
	conn.send(t, realtime.Message{Type: realtime.MessageTypeEntry, Payload: realtime.EntryPayload{}})
	require.Eventually(t, func() bool { return client.Pipeline().Depth() == 1 }, time.Second, 5*time.Millisecond)

	conn.drop()

	waitForState(t, client, ConnectionStateReconnecting)
	require.Eventually(t, func() bool { return client.Pipeline().Depth() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, websocket.StatusCode(-1), client.LastCloseCode())
}

func Test_Client_WhenForcedToReconnect_CancelsPendingRetry(t *testing.T) {
	clock := quartz.NewMock(t)
	ctx := testContext(t)
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: clock})

	client.Start()
	server.waitForConn(t, 0).closeWith(websocket.StatusGoingAway)
	waitForState(t, client, ConnectionStateReconnecting)

	client.ForceReconnect()
	server.waitForConn(t, 1)

	_, scheduled := client.ReconnectIn()
	assert.False(t, scheduled)

	clock.Advance(ReconnectDelay).MustWait(ctx)
	assert.Equal(t, 2, server.dialCount())
}

func Test_Client_WhenForcedToReconnect_ClosesCurrentConnection(t *testing.T) {
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: quartz.NewMock(t)})

	client.Start()
	first := server.waitForConn(t, 0)
	first.send(t, realtime.NewConnectedMessage("sub-1", "default"))
	waitForState(t, client, ConnectionStateConnected)

	client.ForceReconnect()
	server.waitForConn(t, 1)

	assert.Equal(t, websocket.StatusNormalClosure, first.firstCloseCode())
	assert.Equal(t, ConnectionStateConnecting, client.State())
}

func Test_Client_WhenPongArrives_MeasuresLatency(t *testing.T) {
	clock := quartz.NewMock(t)
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: clock})

	client.Start()
	conn := server.waitForConn(t, 0)
	sentAt := clock.Now().Add(-40 * time.Millisecond)
	conn.send(t, realtime.NewPongMessage(sentAt.UnixMilli()))

	require.Eventually(t, func() bool { return client.Latency() > 0 }, time.Second, 5*time.Millisecond)
	assert.InDelta(t, float64(40*time.Millisecond), float64(client.Latency()), float64(time.Millisecond))
}

func Test_Client_WhenClosed_StopsWithNormalClosure(t *testing.T) {
	server := &fakeServer{}
	client, _ := newTestClient(t, ClientOptions{URL: testURL, Dial: server.dial, Clock: quartz.NewMock(t)})

	client.Start()
	conn := server.waitForConn(t, 0)
	conn.send(t, realtime.NewConnectedMessage("sub-1", "default"))
	waitForState(t, client, ConnectionStateConnected)

	client.Close()

	assert.Equal(t, ConnectionStateClosed, client.State())
	assert.Equal(t, websocket.StatusNormalClosure, conn.firstCloseCode())

	client.Start()
	assert.Equal(t, 1, server.dialCount())
}
