package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trustmarket/pkg/middleware"
	"trustmarket/services/notification"
	"trustmarket/services/points"
	"trustmarket/services/testutil"
	"trustmarket/services/tier"
	"trustmarket/services/trust"
	"trustmarket/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	db := testutil.NewTestDB(t,
		&user.User{},
		&points.PointsBalance{},
		&trust.TrustEvent{},
		&trust.TrustSnapshot{},
		&tier.TierHistory{},
		&notification.Notification{},
	)
	node := testutil.NewNode(t)

	tiers := tier.NewService(tier.ServiceParams{DB: db, Node: node})
	h := &Handler{
		users:         user.NewService(user.ServiceParams{DB: db, Node: node}),
		points:        points.NewService(points.ServiceParams{DB: db, Node: node}),
		trust:         trust.NewService(trust.ServiceParams{DB: db, Node: node, Observer: tiers}),
		tiers:         tiers,
		notifications: notification.NewService(notification.ServiceParams{DB: db, Node: node}),
	}

	r := gin.New()
	r.Use(middleware.Error())
	RegisterRoutes(r, h)
	return r, h
}

func do(r *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestMissingCallerIsUnauthorized(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodGet, "/v1/points/balance", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	body := decode(t, w)
	require.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])
}

func TestRegisterStartsWithEmptyBalance(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodPost, "/v1/users", "", map[string]string{"wallet_address": "0xabc"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)

	w = do(r, http.MethodGet, "/v1/points/balance", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 0, decode(t, w)["balance"])
}

func TestCallersCannotWriteTheirOwnLedger(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodPost, "/v1/users", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = do(r, http.MethodPost, "/v1/points/rewards", id, map[string]any{"amount": 1000000, "reason": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/v1/trust/events", id, map[string]any{"source": "x", "delta": 1000})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/v1/points/balance", id, nil)
	require.EqualValues(t, 0, decode(t, w)["balance"])

	w = do(r, http.MethodGet, "/v1/trust/score", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 0, decode(t, w)["score"])
}

func TestTrustEventMovesTier(t *testing.T) {
	r, h := newRouter(t)

	w := do(r, http.MethodPost, "/v1/users", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	score, err := h.trust.RecordEvent(context.Background(), id, "review", 650)
	require.NoError(t, err)
	require.Equal(t, int64(650), score)

	w = do(r, http.MethodGet, "/v1/trust/score", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 650, decode(t, w)["score"])

	w = do(r, http.MethodGet, "/v1/tier", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Flare", decode(t, w)["tier"])
}

func TestUnknownUserMapsToNotFound(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodGet, "/v1/me", "ghost", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", decode(t, w)["error"].(map[string]any)["code"])
}

func TestInvalidBodyIsBadRequest(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodPut, "/v1/me/wallet", "u1", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "BAD_REQUEST", decode(t, w)["error"].(map[string]any)["code"])
}
