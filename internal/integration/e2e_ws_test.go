package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idle_tapper/internal/auth"
	"idle_tapper/internal/db"
	"idle_tapper/internal/economy"
	"idle_tapper/internal/events"
	httpserver "idle_tapper/internal/http"
	"idle_tapper/internal/http/handlers"
	"idle_tapper/internal/http/middleware"
	"idle_tapper/internal/repository"
	"idle_tapper/internal/save"
	"idle_tapper/internal/service"
	"idle_tapper/internal/storage"
	"idle_tapper/internal/ws"
)

type stack struct {
	ts        *httptest.Server
	sessions  *service.Sessions
	snapshots *repository.SnapshotRepository
	cancel    context.CancelFunc
}

// startStack runs the full router against a bolt-backed store. With
// DATABASE_URL set the remote mirror and audit trail are attached too.
func startStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.UseRedis(nil)

	kv, err := storage.NewBoltKV(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	bus := events.NewBus()
	opts := save.Options{Bus: bus}

	var snapshots *repository.SnapshotRepository
	var audit *service.AuditService
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := db.Connect(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(pool.Close)
		_, err = db.Migrate(ctx, pool)
		require.NoError(t, err)
		snapshots = repository.NewSnapshotRepository(pool)
		opts.Remote = snapshots
		audit = service.NewAuditService(repository.NewAuditRepository(pool))
	}

	econ := economy.New(nil, economy.DefaultRules(), economy.NewSeededRNG(7), nil)
	sessions := service.NewSessions(kv, econ, opts, service.Config{
		SaveDebounce: 50 * time.Millisecond,
		TickInterval: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	sessions.Start(ctx)

	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{
		Handler: handlers.NewHandler(sessions, auth.New("test-secret", "", true), snapshots, audit),
		Health:  handlers.NewHealthHandler(nil, kv, sessions, "test"),
		Hub:     ws.NewHub(bus),
	})
	ts := httptest.NewServer(r)

	st := &stack{ts: ts, sessions: sessions, snapshots: snapshots, cancel: cancel}
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-sessions.Done()
	})
	return st
}

func (s *stack) post(t *testing.T, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, s.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *stack) login(t *testing.T, playerID string) string {
	t.Helper()
	code, out := s.post(t, "/api/v1/auth", "", map[string]string{"init_data": `user={"id":` + playerID + `}`})
	require.Equal(t, http.StatusOK, code, out)
	return out["token"].(string)
}

// startReader keeps a single goroutine on ReadMessage.
func startReader(conn *websocket.Conn) chan map[string]any {
	out := make(chan map[string]any, 16)
	go func() {
		defer close(out)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var obj map[string]any
			if json.Unmarshal(msg, &obj) == nil {
				out <- obj
			}
		}
	}()
	return out
}

func waitFor(ch chan map[string]any, typ string, tmo time.Duration) (map[string]any, bool) {
	deadline := time.After(tmo)
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return nil, false
			}
			if m["type"] == typ {
				return m, true
			}
		case <-deadline:
			return nil, false
		}
	}
}

func TestE2E_TapIsPushedAfterDebouncedSave(t *testing.T) {
	s := startStack(t)
	playerID := "4242"
	if s.snapshots != nil {
		playerID = "9" + time.Now().Format("150405")
	}
	token := s.login(t, playerID)

	wsURL := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	ch := startReader(conn)

	_, ok := waitFor(ch, ws.MsgReady, 2*time.Second)
	require.True(t, ok, "no ready frame")

	code, out := s.post(t, "/api/v1/navigate", token, map[string]string{"tab": "shop"})
	require.Equal(t, http.StatusNoContent, code, out)
	nav, ok := waitFor(ch, string(events.TypeNavigate), 2*time.Second)
	require.True(t, ok, "no navigate frame")
	assert.Equal(t, "shop", nav["payload"].(map[string]any)["tab"])

	code, out = s.post(t, "/api/v1/tap", token, map[string]int{"count": 5})
	require.Equal(t, http.StatusOK, code, out)

	changed, ok := waitFor(ch, string(events.TypeSaveChanged), 5*time.Second)
	require.True(t, ok, "no save_changed frame")
	payload := changed["payload"].(map[string]any)
	assert.Equal(t, float64(5), payload["balance"])
	assert.GreaterOrEqual(t, payload["revision"].(float64), float64(1))

	if s.snapshots != nil {
		id, err := strconv.ParseInt(playerID, 10, 64)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			got, found, err := s.snapshots.GetSnapshot(context.Background(), id)
			return err == nil && found && got.Balance == 5
		}, 5*time.Second, 50*time.Millisecond)
	}
}

func TestE2E_OtherPlayersEventsStayPrivate(t *testing.T) {
	s := startStack(t)
	tokenA := s.login(t, "5001")
	tokenB := s.login(t, "5002")

	base := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws?token="
	connB, _, err := websocket.DefaultDialer.Dial(base+tokenB, nil)
	require.NoError(t, err)
	defer connB.Close()
	chB := startReader(connB)
	_, ok := waitFor(chB, ws.MsgReady, 2*time.Second)
	require.True(t, ok)

	code, _ := s.post(t, "/api/v1/navigate", tokenA, map[string]string{"tab": "map"})
	require.Equal(t, http.StatusNoContent, code)
	code, _ = s.post(t, "/api/v1/tap", tokenA, nil)
	require.Equal(t, http.StatusOK, code)

	_, leaked := waitFor(chB, string(events.TypeNavigate), 300*time.Millisecond)
	assert.False(t, leaked)
}
