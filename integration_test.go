package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/bcrypt"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// startTestServer spins up an httptest.Server around a Hub built from deps
// and returns the server, the hub and its WebSocket URL.
func startTestServer(t *testing.T, deps HubDeps) (*httptest.Server, *Hub, string) {
	t.Helper()

	prevIdleTimeout := SessionIdleTimeout
	SessionIdleTimeout = 150 * time.Millisecond

	// Create a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	jsDir := filepath.Join(tmpDir, "js")
	require.NoError(t, os.MkdirAll(jsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jsDir, "main.js"), []byte("// test"), 0o644))

	cfg := testConfig()
	cfg.ClientDir = tmpDir
	// enemies hold still so no test ship gets rammed
	cfg.Sim.EnemyShipSpeed = 0
	deps.Logger = nopLogger()
	hub := NewHub(cfg, deps)
	SessionIdleTimeout = prevIdleTimeout

	done := make(chan struct{})
	go hub.Run(done)

	srv := httptest.NewServer(SetupRoutes(hub))
	t.Cleanup(func() {
		srv.Close()
		close(done)
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return srv, hub, wsURL
}

// startTestServerWithDB adds accounts, analytics and the leaderboard
func startTestServerWithDB(t *testing.T) (*httptest.Server, *Hub, string) {
	t.Helper()
	db := openTestDB(t)
	auth, err := NewAuth(db, nopLogger())
	require.NoError(t, err)
	auth.cost = bcrypt.MinCost
	analytics := NewAnalytics(db, nopLogger())
	t.Cleanup(analytics.Stop)
	return startTestServer(t, HubDeps{DB: db, Auth: auth, Analytics: analytics})
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(Envelope{T: msgType, Data: data})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// readText reads the next JSON message, skipping state snapshots.
func readText(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return env
	}
}

// expectText reads until a JSON message of type want arrives.
func expectText(t *testing.T, conn *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	env := readText(t, conn)
	if env.T != want {
		t.Fatalf("expected %s, got %s (%v)", want, env.T, env.Data)
	}
	return dataMap(t, env)
}

// readStateWhere reads snapshots until one satisfies ok.
func readStateWhere(t *testing.T, conn *websocket.Conn, ok func(GameState) bool) GameState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		var gs GameState
		if err := msgpack.Unmarshal(raw, &gs); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		if ok(gs) {
			return gs
		}
	}
}

// dataMap extracts the Data field as map[string]interface{}.
func dataMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	return m
}

// createAndEnter creates a session then attaches to it. Returns the session
// ID and the player id the server assigned.
func createAndEnter(t *testing.T, conn *websocket.Conn, sname string) (string, string) {
	t.Helper()
	sendMsg(t, conn, MsgCreate, CreateMsg{SessionName: sname})
	sid := expectText(t, conn, MsgCreated)["sid"].(string)
	pid := enter(t, conn, sid)
	return sid, pid
}

func enter(t *testing.T, conn *websocket.Conn, sid string) string {
	t.Helper()
	sendMsg(t, conn, MsgEnter, SessionMsg{SID: sid})
	entered := expectText(t, conn, MsgEntered)
	if entered["sid"] != sid {
		t.Fatalf("entered %v, want %s", entered["sid"], sid)
	}
	return entered["pid"].(string)
}

func httpGet(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// ---------- UUID generation tests ----------

func TestGenerateUUIDFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := GenerateUUID()
		if !uuidRegex.MatchString(id) {
			t.Errorf("GenerateUUID() = %q, does not match UUID v4 format", id)
		}
	}
}

// ---------- HTTP routes ----------

func TestStaticRoutes(t *testing.T) {
	srv, _, _ := startTestServer(t, HubDeps{})

	resp, body := httpGet(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "test")
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	_, body = httpGet(t, srv.URL+"/"+GenerateUUID())
	assert.Contains(t, body, "<html>test</html>", "session links serve the app shell")

	resp, body = httpGet(t, srv.URL+"/js/main.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "// test", body)
}

func TestLeaderboardAndStatsWithoutDB(t *testing.T) {
	srv, _, _ := startTestServer(t, HubDeps{})

	resp, _ := httpGet(t, srv.URL+"/api/leaderboard")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := httpGet(t, srv.URL+"/api/stats")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, 0, stats.Sessions)
	assert.Empty(t, stats.Events)
}

func TestLeaderboardWithDB(t *testing.T) {
	srv, hub, _ := startTestServerWithDB(t)

	resp, body := httpGet(t, srv.URL+"/api/leaderboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	require.NoError(t, hub.db.RecordGame(GameRecord{SessionID: "x", Score: 4, Crew: []string{"alice"}}))
	_, body = httpGet(t, srv.URL+"/api/leaderboard?limit=5")
	var entries []LeaderboardEntry
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Score)

	resp, _ = httpGet(t, srv.URL+"/api/leaderboard?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInviteQRRoute(t *testing.T) {
	srv, _, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)
	sid, _ := createAndEnter(t, conn, "Alpha")

	resp, body := httpGet(t, srv.URL+"/qr/"+sid)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))

	resp, _ = httpGet(t, srv.URL+"/qr/"+GenerateUUID())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ---------- WebSocket flow ----------

func TestCreateEnterJoin(t *testing.T) {
	_, _, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)

	sid, pid := createAndEnter(t, conn, "Alpha")
	assert.Regexp(t, uuidRegex, sid)
	assert.True(t, strings.HasPrefix(pid, "guest-"))

	spectating := readStateWhere(t, conn, func(GameState) bool { return true })
	assert.Nil(t, spectating.PlayerShip)
	assert.Empty(t, spectating.Ships)

	sendMsg(t, conn, MsgJoin, nil)
	assert.Equal(t, MsgJoin, expectText(t, conn, MsgOK)["cmd"])

	st := readStateWhere(t, conn, func(gs GameState) bool { return gs.PlayerShip != nil })
	assert.Equal(t, RoleNavigator, st.PlayerShip.Role)
	assert.Len(t, st.Ships, 2, "joining brings an enemy")

	sendMsg(t, conn, MsgJoin, nil)
	assert.Equal(t, CodeAlreadyJoined, expectText(t, conn, MsgError)["code"])

	sendMsg(t, conn, MsgThrust, LocationMsg{Location: &Point2D{X: 400, Y: 300}})
	assert.Equal(t, MsgThrust, expectText(t, conn, MsgOK)["cmd"])

	sendMsg(t, conn, MsgTurret, LocationMsg{Location: &Point2D{X: 400, Y: 300}})
	assert.Equal(t, CodeNotGunner, expectText(t, conn, MsgError)["code"])

	sendMsg(t, conn, MsgAgain, nil)
	assert.Equal(t, CodeInProgress, expectText(t, conn, MsgError)["code"])
}

func TestSecondPilotBecomesGunner(t *testing.T) {
	_, _, wsURL := startTestServer(t, HubDeps{})
	a := dialWS(t, wsURL)
	b := dialWS(t, wsURL)

	sid, _ := createAndEnter(t, a, "Alpha")
	enter(t, b, sid)

	sendMsg(t, a, MsgJoin, nil)
	expectText(t, a, MsgOK)
	sendMsg(t, b, MsgJoin, nil)
	expectText(t, b, MsgOK)

	st := readStateWhere(t, b, func(gs GameState) bool {
		return gs.PlayerShip != nil && gs.PlayerShip.Role == RoleGunner
	})
	var friendlies int
	for _, s := range st.Ships {
		if s.Type == EntityFriendly {
			friendlies++
		}
	}
	assert.Equal(t, 1, friendlies, "both pilots share one ship")

	sendMsg(t, b, MsgTurret, LocationMsg{Location: &Point2D{X: 500, Y: 500}})
	assert.Equal(t, MsgTurret, expectText(t, b, MsgOK)["cmd"])
	sendMsg(t, b, MsgThrust, LocationMsg{Location: &Point2D{X: 500, Y: 500}})
	assert.Equal(t, CodeNotNavigator, expectText(t, b, MsgError)["code"])
}

func TestCommandsNeedASession(t *testing.T) {
	_, _, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)

	sendMsg(t, conn, MsgThrust, LocationMsg{Location: &Point2D{X: 1, Y: 1}})
	assert.Equal(t, CodeNotJoined, expectText(t, conn, MsgError)["code"])

	sendMsg(t, conn, MsgEnter, SessionMsg{SID: "nope"})
	assert.Equal(t, CodeNoSession, expectText(t, conn, MsgError)["code"])

	sendMsg(t, conn, "warp", nil)
	assert.Equal(t, CodeBadRequest, expectText(t, conn, MsgError)["code"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, CodeBadRequest, expectText(t, conn, MsgError)["code"])
}

func TestCheckAndList(t *testing.T) {
	_, _, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)
	sid, _ := createAndEnter(t, conn, "Alpha")

	sendMsg(t, conn, MsgCheck, SessionMsg{SID: sid})
	checked := expectText(t, conn, MsgChecked)
	assert.Equal(t, true, checked["exists"])
	assert.Equal(t, "Alpha", checked["name"])
	assert.Equal(t, float64(1), checked["players"])

	sendMsg(t, conn, MsgCheck, SessionMsg{SID: "nope"})
	assert.Equal(t, false, expectText(t, conn, MsgChecked)["exists"])

	sendMsg(t, conn, MsgList, nil)
	env := readText(t, conn)
	require.Equal(t, MsgSessions, env.T)
	list, ok := env.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, sid, list[0].(map[string]interface{})["id"])
}

func TestIdleSessionIsReaped(t *testing.T) {
	_, hub, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)
	createAndEnter(t, conn, "Alpha")
	sendMsg(t, conn, MsgJoin, nil)
	expectText(t, conn, MsgOK)
	require.Equal(t, 1, hub.sessions.Count())

	conn.Close()
	require.Eventually(t, func() bool { return hub.sessions.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLeaveKeepsSessionUntilIdle(t *testing.T) {
	_, hub, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)
	sid, _ := createAndEnter(t, conn, "Alpha")

	sendMsg(t, conn, MsgLeave, nil)
	sendMsg(t, conn, MsgJoin, nil)
	assert.Equal(t, CodeNotJoined, expectText(t, conn, MsgError)["code"])

	require.Eventually(t, func() bool { return hub.sessions.GetSession(sid) == nil }, 2*time.Second, 10*time.Millisecond)
}

// ---------- accounts ----------

func TestAccountsDisabledWithoutDB(t *testing.T) {
	_, _, wsURL := startTestServer(t, HubDeps{})
	conn := dialWS(t, wsURL)

	sendMsg(t, conn, MsgRegister, RegisterMsg{Username: "alice", Password: "secret"})
	assert.Equal(t, CodeAuth, expectText(t, conn, MsgError)["code"])
}

func TestRegisterLoginOverWS(t *testing.T) {
	_, _, wsURL := startTestServerWithDB(t)

	conn := dialWS(t, wsURL)
	sendMsg(t, conn, MsgRegister, RegisterMsg{Username: "alice", Password: "secret"})
	ok := expectText(t, conn, MsgAuthOK)
	assert.Equal(t, "alice", ok["username"])
	token := ok["token"].(string)
	require.NotEmpty(t, token)

	_, pid := createAndEnter(t, conn, "Alpha")
	assert.Equal(t, "alice", pid, "accounts play under their username")

	sendMsg(t, conn, MsgLogin, LoginMsg{Username: "alice", Password: "secret"})
	assert.Equal(t, CodeBadRequest, expectText(t, conn, MsgError)["code"], "no identity change inside a session")

	other := dialWS(t, wsURL)
	sendMsg(t, other, MsgLogin, LoginMsg{Username: "alice", Password: "wrong"})
	assert.Equal(t, CodeAuth, expectText(t, other, MsgError)["code"])
	sendMsg(t, other, MsgLogin, LoginMsg{Username: "alice", Password: "secret"})
	assert.Equal(t, "alice", expectText(t, other, MsgAuthOK)["username"])

	third := dialWS(t, wsURL)
	sendMsg(t, third, MsgAuth, AuthMsg{Token: token})
	assert.Equal(t, "alice", expectText(t, third, MsgAuthOK)["username"])
	sendMsg(t, third, MsgAuth, AuthMsg{Token: "garbage"})
	assert.Equal(t, CodeAuth, expectText(t, third, MsgError)["code"])

	sendMsg(t, third, MsgRegister, RegisterMsg{Username: "alice", Password: "secret"})
	assert.Equal(t, CodeAuth, expectText(t, third, MsgError)["code"])
}
