package shuttle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/DenisKolodin/shuttle/internal/wire"
)

func dialTestServer(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/shuttle"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendInput(t *testing.T, ws *websocket.Conn, in wire.Input) {
	t.Helper()
	frame, err := wire.EncodeInput(in)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame))
}

func readOutput(t *testing.T, ws *websocket.Conn) wire.Output {
	t.Helper()
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	out, err := wire.DecodeOutput(frame)
	require.NoError(t, err)
	return out
}

func requireOutputKind(t *testing.T, ws *websocket.Conn, kind wire.OutputKind) wire.Output {
	t.Helper()
	out := readOutput(t, ws)
	require.Equal(t, kind, out.Kind)
	return out
}

// Scenario S1 over a real WebSocket: upgrade, call, stream, done.
func TestServerEndToEnd(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	srv := httptest.NewServer(Router(ctx, "/shuttle", testSuite()))
	defer srv.Close()

	ws := dialTestServer(t, srv, nil)

	sendInput(t, ws, call("echo", Request{"v": int8(1)}))
	requireOutputKind(t, ws, wire.OutputReady)

	sendInput(t, ws, next(Request{"v": int8(2)}))
	item := requireOutputKind(t, ws, wire.OutputItem)
	require.Equal(t, wire.Object{"v": int8(2)}, item.Item)
	requireOutputKind(t, ws, wire.OutputReady)

	sendInput(t, ws, next(nil))
	item = requireOutputKind(t, ws, wire.OutputItem)
	require.Equal(t, wire.Object{"v": int8(0)}, item.Item)
	requireOutputKind(t, ws, wire.OutputDone)
}

// Suspend/resume over a real WebSocket, scenario S4.
func TestServerSuspendResume(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	srv := httptest.NewServer(Router(ctx, "/shuttle", testSuite()))
	defer srv.Close()

	ws := dialTestServer(t, srv, nil)

	sendInput(t, ws, call("slow", nil))
	requireOutputKind(t, ws, wire.OutputReady)

	sendInput(t, ws, suspend)
	suspended := requireOutputKind(t, ws, wire.OutputSuspended)

	sendInput(t, ws, resume(suspended.TaskID))
	requireOutputKind(t, ws, wire.OutputReady)

	sendInput(t, ws, next(nil))
	requireOutputKind(t, ws, wire.OutputDone)
}

func TestRouterOperationalRoutes(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	srv := httptest.NewServer(Router(ctx, "/shuttle", testSuite()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/debug/suite")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Services      []string `json:"services"`
		ParkedWorkers int64    `json:"parked_workers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Contains(t, view.Services, "echo")
	require.Contains(t, view.Services, "count3")
	require.True(t, sortedStrings(view.Services))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}

// gatedWorker requires a capability at prepare time, exercising the
// Rights/Require façade end to end through a JWT-bearing upgrade.
type gatedWorker struct {
	BaseWorker[testState]
}

func (w *gatedWorker) Prepare(ctx *Context[testState], _ Request) (Shortcut, error) {
	if err := ctx.Require("reports"); err != nil {
		return ShortcutReject("reports access denied"), nil
	}
	return ShortcutTuned, nil
}

func (w *gatedWorker) Realize(*Context[testState], *Request) (Realize, error) {
	return RealizeOneItemAndDone(Object{"report": "ok"}), nil
}

func TestServerJWTRights(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	suite := NewSuite(func() testState { return testState{} })
	suite.Register("reports", ServiceFunc[testState](func(Request) Worker[testState] { return &gatedWorker{} }))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	srv := httptest.NewServer(Router(ctx, "/shuttle", suite,
		WithJWTKey[testState](key),
		WithAllowAnonymous[testState](false),
	))
	defer srv.Close()

	// No token: the upgrade itself is refused.
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/shuttle"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	// Token without the reports scope: connected, but rejected at prepare.
	token := signToken(t, key, "other")
	ws := dialTestServer(t, srv, http.Header{"Authorization": {"Bearer " + token}})
	sendInput(t, ws, call("reports", nil))
	rejected := requireOutputKind(t, ws, wire.OutputReject)
	require.Equal(t, "reports access denied", rejected.Reason)

	// Token with the reports scope: full stream.
	token = signToken(t, key, "reports other")
	ws = dialTestServer(t, srv, http.Header{"Authorization": {"Bearer " + token}})
	sendInput(t, ws, call("reports", nil))
	requireOutputKind(t, ws, wire.OutputReady)
	sendInput(t, ws, next(nil))
	requireOutputKind(t, ws, wire.OutputItem)
	requireOutputKind(t, ws, wire.OutputDone)
}

func signToken(t *testing.T, key []byte, scope string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"scope": scope}).SignedString(key)
	require.NoError(t, err)
	return token
}
