package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/chat"
	"github.com/DoyleJ11/ready-check/internal/history"
	"github.com/DoyleJ11/ready-check/internal/hub"
	"github.com/DoyleJ11/ready-check/internal/platform"
	"github.com/DoyleJ11/ready-check/internal/types"
)

type fakeOutcomes struct {
	recs      []history.Record
	err       error
	channelID string
	limit     int
}

func (f *fakeOutcomes) Recent(_ context.Context, channelID string, limit int) ([]history.Record, error) {
	f.channelID = channelID
	f.limit = limit
	return f.recs, f.err
}

func newServer(t *testing.T) (*httptest.Server, *chat.Service) {
	t.Helper()
	return newServerWith(t, nil)
}

func newServerWith(t *testing.T, outcomes OutcomeLister) (*httptest.Server, *chat.Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := chat.New("bot", clockwork.NewRealClock())
	srv := httptest.NewServer(SetupRoutes(svc, hub.NewHub(ctx), outcomes, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Zero(t, body.Lobbies)
}

func TestPostAndListMessages(t *testing.T) {
	srv, _ := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/channels/general/messages", `{"author_id":"u1","content":"hi <@u2>"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var posted platform.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posted))
	assert.Equal(t, []string{"u2"}, posted.Mentions)

	resp = do(t, http.MethodGet, srv.URL+"/channels/general/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs []platform.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, posted.ID, msgs[0].ID)
}

func TestPostMessageValidates(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/channels/general/messages", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReactions(t *testing.T) {
	srv, svc := newServer(t)
	msg, err := svc.Post(context.Background(), "general", "u1", "hello")
	require.NoError(t, err)
	url := srv.URL + "/channels/general/messages/" + msg.ID + "/reactions"

	resp := do(t, http.MethodPost, url, `{"user_id":"u2","emoji":"🆗"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"u2"}, svc.Reactions(msg.ID, "🆗"))

	resp = do(t, http.MethodDelete, url, `{"user_id":"u2","emoji":"🆗"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, svc.Reactions(msg.ID, "🆗"))

	resp = do(t, http.MethodPost, srv.URL+"/channels/general/messages/missing/reactions", `{"user_id":"u2","emoji":"🆗"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListOutcomes(t *testing.T) {
	ended := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
	outcomes := &fakeOutcomes{recs: []history.Record{
		{EventID: "e1", LobbyID: "l1", ChannelID: "general", Outcome: "completed", Participants: "u1,u2", EndedAt: ended},
	}}
	srv, _ := newServerWith(t, outcomes)

	resp := do(t, http.MethodGet, srv.URL+"/channels/general/outcomes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []history.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "completed", got[0].Outcome)
	assert.Equal(t, "general", outcomes.channelID)
	assert.Equal(t, defaultOutcomeLimit, outcomes.limit)

	resp = do(t, http.MethodGet, srv.URL+"/channels/general/outcomes?limit=500", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, maxOutcomeLimit, outcomes.limit)

	resp = do(t, http.MethodGet, srv.URL+"/channels/general/outcomes?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	outcomes.err = errors.New("connection refused")
	resp = do(t, http.MethodGet, srv.URL+"/channels/general/outcomes", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestOutcomesNeedHistory(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/channels/general/outcomes", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketStreamsChannelAndDirectMessages(t *testing.T) {
	srv, svc := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?channel=general&user=u1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return svc.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	_, err = svc.Post(ctx, "elsewhere", "u2", "not for you")
	require.NoError(t, err)
	_, err = svc.SendDirect(ctx, "u9", platform.Payload{Content: "not for you either"})
	require.NoError(t, err)
	_, err = svc.SendDirect(ctx, "u1", platform.Payload{Content: "psst"})
	require.NoError(t, err)

	frame := read(t, ctx, conn)
	require.Equal(t, types.ServerEvent, frame.Type)
	assert.Equal(t, platform.EventDirectMessage, frame.Event.Type)
	assert.Equal(t, "psst", frame.Event.Message.Content)

	out, err := json.Marshal(types.ClientMessage{Type: types.ClientPost, Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, out))

	frame = read(t, ctx, conn)
	require.Equal(t, types.ServerEvent, frame.Type)
	assert.Equal(t, platform.EventMessageCreated, frame.Event.Type)
	assert.Equal(t, "u1", frame.Event.Message.AuthorID)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"dance"}`)))
	frame = read(t, ctx, conn)
	assert.Equal(t, types.ServerError, frame.Type)
	assert.Equal(t, "unknown type", frame.Error)
}

func TestWebsocketRequiresChannelAndUser(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/ws?channel=general", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}
