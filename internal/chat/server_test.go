package chat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdembot/internal/ledger"
	"github.com/lox/holdembot/internal/table"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	reg := table.NewRegistry(table.DefaultConfig(), ledger.NewMemoryStore(), hub, zerolog.Nop(),
		table.WithRegistryClock(quartz.NewMock(t)))
	srv := NewServer("127.0.0.1:0", hub, NewRouter(reg, zerolog.Nop()), zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		reg.CloseAll(context.Background())
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return ts, hub
}

func dial(t *testing.T, ts *httptest.Server, user, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?user=" + user + "&name=" + name
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, line string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(line)))
}

// readUntil reads envelopes until match accepts one.
func readUntil(t *testing.T, ws *websocket.Conn, match func(Envelope) bool) Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var env Envelope
		require.NoError(t, ws.ReadJSON(&env))
		if match(env) {
			return env
		}
	}
}

func kind(k string) func(Envelope) bool {
	return func(e Envelope) bool { return e.Kind == k }
}

func TestServerCommandsAndBroadcasts(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)
	alice := dial(t, ts, "u1", "alice")
	bob := dial(t, ts, "u2", "bob")

	send(t, alice, "open")
	reply := readUntil(t, alice, kind(KindReply))
	require.True(t, strings.HasPrefix(reply.Text, "Opened table "), reply.Text)
	id := strings.TrimPrefix(reply.Text, "Opened table ")

	send(t, alice, "join")
	reply = readUntil(t, alice, kind(KindReply))
	assert.Contains(t, reply.Text, "Joined table "+id)

	send(t, bob, "join "+id)
	reply = readUntil(t, bob, kind(KindReply))
	assert.Contains(t, reply.Text, "Joined table "+id)

	post := readUntil(t, alice, func(e Envelope) bool {
		return e.Kind == KindPost && strings.Contains(e.Text, "bob joined")
	})
	assert.NotEmpty(t, post.Channel)
	assert.NotEmpty(t, post.ID)

	send(t, alice, "start")
	cards := readUntil(t, bob, kind(KindPrivate))
	assert.True(t, strings.HasPrefix(cards.Text, "Your cards: "), cards.Text)

	status := readUntil(t, alice, func(e Envelope) bool { return e.Kind == KindPost && e.Info != nil })
	assert.Equal(t, id, status.Info.TableID)
	assert.True(t, status.Info.Running)
	assert.Len(t, status.Info.Players, 2)

	send(t, bob, "check")
	reply = readUntil(t, bob, kind(KindReply))
	assert.Equal(t, "@bob, not your turn", reply.Text)
}

func TestServerRequiresUser(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestHubUnknownTargets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub := NewHub(zerolog.Nop())

	h, err := hub.Post(ctx, "general", table.Message{Text: "hello"})
	require.NoError(t, err)
	assert.ErrorIs(t, hub.Update(ctx, h, table.Message{Text: "edited"}), ErrUnknownMessage)

	status, err := hub.Post(ctx, "general", table.Message{Text: "status", Info: &table.Info{TableID: "t1"}})
	require.NoError(t, err)
	require.NotEqual(t, h, status)
	require.NoError(t, hub.Update(ctx, status, table.Message{Text: "status", Info: &table.Info{TableID: "t1"}}))
	require.NoError(t, hub.Delete(ctx, status))
	assert.ErrorIs(t, hub.Delete(ctx, status), ErrUnknownMessage)

	assert.ErrorIs(t, hub.PostPrivate(ctx, "general", "nobody", table.Message{Text: "psst"}), ErrNotConnected)
	assert.Zero(t, hub.Clients())
}
