package http_test

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"idle_tapper/internal/auth"
	"idle_tapper/internal/economy"
	"idle_tapper/internal/events"
	apphttp "idle_tapper/internal/http"
	"idle_tapper/internal/http/handlers"
	"idle_tapper/internal/http/middleware"
	"idle_tapper/internal/save"
	"idle_tapper/internal/service"
	"idle_tapper/internal/storage"
	"idle_tapper/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newServer(t *testing.T, limits apphttp.Limits) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.UseRedis(nil)

	kv := storage.NewMemoryKV()
	bus := events.NewBus()
	econ := economy.New(nil, economy.DefaultRules(), economy.NewSeededRNG(1), nil)
	sessions := service.NewSessions(kv, econ, save.Options{Bus: bus}, service.Config{SaveDebounce: time.Hour})
	authn := auth.New("test-secret", "", true)

	r := gin.New()
	apphttp.RegisterRoutes(r, apphttp.Deps{
		Handler: handlers.NewHandler(sessions, authn, nil, nil),
		Health:  handlers.NewHealthHandler(nil, kv, sessions, "test"),
		Hub:     ws.NewHub(bus),
		Limits:  limits,
	})
	return &server{t: t, engine: r}
}

func (s *server) do(method, path string, body any) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func (s *server) login(playerID string) {
	s.t.Helper()
	code, out := s.do(http.MethodPost, "/api/v1/auth", gin.H{"init_data": `user={"id":` + playerID + `}`})
	require.Equal(s.t, http.StatusOK, code, out)
	s.token = out["token"].(string)
	require.NotEmpty(s.t, s.token)
}

func num(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}

func TestPlayerRoutesRequireToken(t *testing.T) {
	s := newServer(t, apphttp.Limits{})
	code, _ := s.do(http.MethodGet, "/api/v1/state", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/v1/catalog", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthReturnsViewForPlayer(t *testing.T) {
	s := newServer(t, apphttp.Limits{})
	code, out := s.do(http.MethodPost, "/api/v1/auth", gin.H{"init_data": `user={"id":77}`})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(77), out["user"].(map[string]any)["id"])
	assert.Contains(t, out, "view")

	code, _ = s.do(http.MethodPost, "/api/v1/auth", "not an object")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTapAndErrors(t *testing.T) {
	s := newServer(t, apphttp.Limits{})
	s.login("5")

	code, out := s.do(http.MethodPost, "/api/v1/tap", gin.H{"count": 3})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, int64(3), num(out["balance"]))
	assert.Equal(t, int64(3), num(out["combo"]))

	code, out = s.do(http.MethodPost, "/api/v1/tap", nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, int64(4), num(out["balance"]))

	code, out = s.do(http.MethodPost, "/api/v1/tap", gin.H{"count": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, economy.ErrInvalidQuantity.Error(), out["error"])

	code, out = s.do(http.MethodPost, "/api/v1/upgrades/tap_value", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, economy.ErrInsufficientFunds.Error(), out["error"])

	code, out = s.do(http.MethodPost, "/api/v1/upgrades/tap_value", gin.H{"qty": math.MaxInt64})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, economy.ErrMaxLevel.Error(), out["error"])

	code, _ = s.do(http.MethodPost, "/api/v1/upgrades/warp_drive", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/v1/packs/mega/open", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, out = s.do(http.MethodPost, "/api/v1/packs/single/open", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, economy.ErrInsufficientCoupons.Error(), out["error"])

	code, out = s.do(http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(4), num(out["state"].(map[string]any)["taps"]))
}

func TestImportConquerExportReset(t *testing.T) {
	s := newServer(t, apphttp.Limits{})
	s.login("9")

	code, _ := s.do(http.MethodPost, "/api/v1/map/de/conquer", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out := s.do(http.MethodPost, "/api/v1/save/import", gin.H{"balance": 100000, "totalEarnings": 100000})
	require.Equal(t, http.StatusOK, code, out)

	code, out = s.do(http.MethodPost, "/api/v1/map/de/conquer", nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, int64(50000), num(out["cost"]))
	assert.Equal(t, int64(56000), num(out["nextCost"]))
	assert.Equal(t, int64(1), num(out["bonuses"].(map[string]any)["countriesOwned"]))

	code, out = s.do(http.MethodGet, "/api/v1/map", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["regions"], 7)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/save/export", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "save-9.json")
	assert.Contains(t, w.Body.String(), `"balance": 50000`)

	code, _ = s.do(http.MethodPost, "/api/v1/save/import", "garbage")
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = s.do(http.MethodPost, "/api/v1/save/reset", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), num(out["view"].(map[string]any)["state"].(map[string]any)["balance"]))
}

func TestShopAchievementsAndNavigate(t *testing.T) {
	s := newServer(t, apphttp.Limits{})
	s.login("11")

	code, _ := s.do(http.MethodPost, "/api/v1/save/import", gin.H{"balance": 10000, "totalEarnings": 10000})
	require.Equal(t, http.StatusOK, code)

	code, out := s.do(http.MethodPost, "/api/v1/suits/hoodie/buy", nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, int64(5000), num(out["price"]))
	code, _ = s.do(http.MethodPost, "/api/v1/suits/hoodie/equip", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/api/v1/pets/dog/equip", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/v1/pets/unicorn/buy", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/v1/achievements/first_tap/claim", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	_, _ = s.do(http.MethodPost, "/api/v1/tap", nil)
	code, out = s.do(http.MethodPost, "/api/v1/achievements/first_tap/claim", nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, int64(10), num(out["reward"]))
	code, _ = s.do(http.MethodPost, "/api/v1/titles/rookie/equip", nil)
	assert.Equal(t, http.StatusOK, code)

	code, out = s.do(http.MethodGet, "/api/v1/achievements", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, out["achievements"])

	code, _ = s.do(http.MethodGet, "/api/v1/upgrades", nil)
	assert.Equal(t, http.StatusOK, code)
	code, out = s.do(http.MethodGet, "/api/v1/cards", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["cardMult"])

	code, _ = s.do(http.MethodPost, "/api/v1/navigate", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/v1/navigate", gin.H{"tab": "map"})
	assert.Equal(t, http.StatusNoContent, code)
}

func TestTapRateLimited(t *testing.T) {
	s := newServer(t, apphttp.Limits{Tap: 2})
	s.login("3")

	for i := 0; i < 2; i++ {
		code, _ := s.do(http.MethodPost, "/api/v1/tap", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := s.do(http.MethodPost, "/api/v1/tap", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestHealthWithoutDatabase(t *testing.T) {
	s := newServer(t, apphttp.Limits{})

	code, _ := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, out := s.do(http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, code)
	checks := out["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["database"])
	assert.Equal(t, "healthy", checks["store"])

	code, _ = s.do(http.MethodGet, "/api/v1/leaderboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s.login("8")
	code, _ = s.do(http.MethodGet, "/api/v1/save/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestWSRequiresToken(t *testing.T) {
	s := newServer(t, apphttp.Limits{})
	code, _ := s.do(http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodGet, "/ws?token=bad", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
