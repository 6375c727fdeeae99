package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/mathcraft/internal/config"
)

func dialAnimate(t *testing.T, baseURL, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/animate?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntilDone(t *testing.T, conn *websocket.Conn) []StreamMessage {
	t.Helper()
	var msgs []StreamMessage
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		msgs = append(msgs, msg)
		if msg.Type == StreamDone {
			return msgs
		}
	}
}

func TestAnimateStreamsAllFrames(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dialAnimate(t, ts.URL, "speed_a=100000&speed_b=200000&distance=1000000&scenario=opposite&max_frames=10")

	msgs := readUntilDone(t, conn)
	require.Len(t, msgs, 12)

	assert.Equal(t, StreamResult, msgs[0].Type)
	require.NotNil(t, msgs[0].Result)
	assert.True(t, msgs[0].Result.Collides)
	session := msgs[0].Session
	assert.NotEmpty(t, session)

	for i, msg := range msgs[1:11] {
		assert.Equal(t, StreamFrame, msg.Type)
		assert.Equal(t, i, msg.Index)
		assert.Equal(t, session, msg.Session)
		require.NotNil(t, msg.Frame)
	}
	assert.Equal(t, 0.0, msgs[1].Frame.TimeSec)

	done := msgs[11]
	assert.Equal(t, 10, done.Frames)
	assert.False(t, done.Stopped)
}

func TestAnimateNoCollision(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dialAnimate(t, ts.URL, "speed_a=200000&speed_b=100000&distance=1000000&scenario=Same+Direction")

	msgs := readUntilDone(t, conn)
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].Result.Collides)
	assert.Equal(t, "no collision", msgs[1].Message)
}

func TestAnimateStop(t *testing.T) {
	srv, ts := newTestServer(t, func(c *config.Config) {
		c.Playback.FrameInterval = config.Duration(20 * time.Millisecond)
	})
	conn := dialAnimate(t, ts.URL, "speed_a=1&speed_b=1&distance=1000&max_frames=200")

	var first StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, StreamResult, first.Type)
	require.Eventually(t, func() bool { return srv.GetStats().ActiveStreams == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ControlMessage{Action: "stop"}))

	msgs := readUntilDone(t, conn)
	done := msgs[len(msgs)-1]
	assert.True(t, done.Stopped)
	assert.Less(t, done.Frames, 200)

	require.Eventually(t, func() bool { return srv.GetStats().ActiveStreams == 0 }, time.Second, 5*time.Millisecond)
}

func TestAnimateRejectsBadQuery(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := get(t, ts.URL+"/ws/animate?speed_a=1&speed_b=1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, ts.URL+"/ws/animate?speed_a=0&speed_b=1&distance=10")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode[errorResponse](t, resp).Code)
}

func TestAnimateRejectedAfterStop(t *testing.T) {
	srv, ts := newTestServer(t, func(c *config.Config) { c.Server.ListenAddr = "127.0.0.1:0" })
	require.NoError(t, srv.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/animate?speed_a=1&speed_b=2&distance=30"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, srv.GetStats().ActiveStreams)
}
