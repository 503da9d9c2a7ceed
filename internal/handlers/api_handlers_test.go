package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/eventbus"
	"github.com/brpainel/painel-gateway/internal/loader"
	"github.com/brpainel/painel-gateway/internal/usecases"
)

var testSecret = []byte("painel-test-secret")

func signToken(t *testing.T, accountID string, support, admin bool) string {
	t.Helper()
	claims := Claims{
		Name:    "Maria",
		Support: support,
		Admin:   admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

type fakeDashboard struct {
	stats      entities.Stats
	refreshErr error
	state      loader.State[entities.Transaction]
}

func (f *fakeDashboard) Stats() entities.Stats { return f.stats }
func (f *fakeDashboard) Refresh(context.Context) error {
	return f.refreshErr
}
func (f *fakeDashboard) LoadHistory(context.Context, loader.Params) error { return nil }
func (f *fakeDashboard) History() loader.State[entities.Transaction]      { return f.state }

type fakeOrders struct {
	orders     []entities.Order
	stale      bool
	view       *usecases.TrackingView
	advanceErr error
	advanced   []entities.OrderStatus
}

func (f *fakeOrders) ListOrders(context.Context, string) ([]entities.Order, bool, error) {
	return f.orders, f.stale, nil
}
func (f *fakeOrders) Track(context.Context, string) (*usecases.TrackingView, error) {
	return f.view, nil
}
func (f *fakeOrders) AdvanceOrder(_ context.Context, _ string, next entities.OrderStatus) error {
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.advanced = append(f.advanced, next)
	return nil
}

type fakeTransactions struct {
	records []entities.Transaction
	stale   bool
	err     error
}

func (f *fakeTransactions) History(context.Context, string, usecases.HistoryFilter) ([]entities.Transaction, bool, error) {
	return f.records, f.stale, f.err
}

type fakeLookup struct {
	result   json.RawMessage
	queryErr error
	has      bool
}

func (f *fakeLookup) Query(context.Context, string, entities.LookupModule, string) (json.RawMessage, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.result, nil
}
func (f *fakeLookup) HasRecords(context.Context, string, entities.LookupModule) (bool, error) {
	return f.has, nil
}

type fakeMaintenance struct{ active bool }

func (f *fakeMaintenance) Poll(context.Context) error { return nil }
func (f *fakeMaintenance) Active() bool               { return f.active }
func (f *fakeMaintenance) Allow(s entities.Session) bool {
	return !f.active || s.Support || s.Admin
}

func testRouter(t *testing.T, h *HTTPHandler, maintenance *fakeMaintenance) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(Auth(slog.Default(), testSecret))
	api.Use(Maintenance(slog.Default(), maintenance))
	h.RegisterRoutes(api)
	return router
}

func doRequest(router *mux.Router, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	h := NewHTTPHandler(slog.Default(), &fakeDashboard{}, &fakeOrders{}, &fakeTransactions{}, &fakeLookup{}, eventbus.New(slog.Default()))
	router := testRouter(t, h, &fakeMaintenance{})

	rec := doRequest(router, http.MethodGet, "/api/orders", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/orders", "not-a-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMaintenanceBlocksRegularSessions(t *testing.T) {
	h := NewHTTPHandler(slog.Default(), &fakeDashboard{}, &fakeOrders{}, &fakeTransactions{}, &fakeLookup{}, eventbus.New(slog.Default()))
	router := testRouter(t, h, &fakeMaintenance{active: true})

	rec := doRequest(router, http.MethodGet, "/api/orders", signToken(t, "acc-1", false, false), "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "maintenance", resp.Error)

	// Support sessions keep working during maintenance.
	rec = doRequest(router, http.MethodGet, "/api/orders", signToken(t, "acc-2", true, false), "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOrdersMarksStaleFallback(t *testing.T) {
	orders := &fakeOrders{
		orders: []entities.Order{{ID: "ord-1", Status: entities.OrderStatusPaid}},
		stale:  true,
	}
	h := NewHTTPHandler(slog.Default(), &fakeDashboard{}, orders, &fakeTransactions{}, &fakeLookup{}, eventbus.New(slog.Default()))
	router := testRouter(t, h, &fakeMaintenance{})

	rec := doRequest(router, http.MethodGet, "/api/orders", signToken(t, "acc-1", false, false), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.True(t, resp.Stale)
}

func TestRunLookupMapsInsufficientBalance(t *testing.T) {
	lookup := &fakeLookup{queryErr: usecases.ErrInsufficientBalance}
	h := NewHTTPHandler(slog.Default(), &fakeDashboard{}, &fakeOrders{}, &fakeTransactions{}, lookup, eventbus.New(slog.Default()))
	router := testRouter(t, h, &fakeMaintenance{})

	rec := doRequest(router, http.MethodPost, "/api/lookup/cpf", signToken(t, "acc-1", false, false), `{"document":"12345678900"}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "insufficient_balance", resp.Error)
}

func TestDashboardStatsView(t *testing.T) {
	dash := &fakeDashboard{stats: entities.Stats{
		entities.CounterCashBalance:   12345,
		entities.CounterRechargeTotal: 500,
	}}
	h := NewHTTPHandler(slog.Default(), dash, &fakeOrders{}, &fakeTransactions{}, &fakeLookup{}, eventbus.New(slog.Default()))
	router := testRouter(t, h, &fakeMaintenance{})

	rec := doRequest(router, http.MethodGet, "/api/dashboard/stats", signToken(t, "acc-1", false, false), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, int64(12345), resp.Data["cash_balance"])
	require.Equal(t, int64(500), resp.Data["recharge_total"])
}

func TestNotifyPaymentPublishesSessionScopedEvents(t *testing.T) {
	bus := eventbus.New(slog.Default())

	var recharges []eventbus.RechargeCompleted
	var purchases []eventbus.PlanPurchaseCompleted
	var commissions []eventbus.CommissionEarned
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.RechargeCompleted) {
		recharges = append(recharges, e)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.PlanPurchaseCompleted) {
		purchases = append(purchases, e)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.CommissionEarned) {
		commissions = append(commissions, e)
	})

	h := NewHTTPHandler(slog.Default(), &fakeDashboard{}, &fakeOrders{}, &fakeTransactions{}, &fakeLookup{}, bus)
	router := testRouter(t, h, &fakeMaintenance{})
	token := signToken(t, "acc-7", false, false)

	rec := doRequest(router, http.MethodPost, "/api/notifications/payment", token, `{"kind":"recharge","amount":5000,"method":"pix"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/notifications/payment", token, `{"kind":"plan_purchase","amount":9900,"plan_id":"plan-gold"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/notifications/payment", token, `{"kind":"commission","amount":300,"referred":"acc-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, recharges, 1)
	require.Equal(t, "acc-7", recharges[0].AccountID)
	require.Equal(t, int64(5000), recharges[0].Amount)
	require.Equal(t, "pix", recharges[0].Method)

	require.Len(t, purchases, 1)
	require.Equal(t, "acc-7", purchases[0].AccountID)
	require.Equal(t, "plan-gold", purchases[0].PlanID)

	require.Len(t, commissions, 1)
	require.Equal(t, "acc-7", commissions[0].AccountID)
	require.Equal(t, "acc-2", commissions[0].Referred)
}

func TestNotifyPaymentRejectsBadInput(t *testing.T) {
	h := NewHTTPHandler(slog.Default(), &fakeDashboard{}, &fakeOrders{}, &fakeTransactions{}, &fakeLookup{}, eventbus.New(slog.Default()))
	router := testRouter(t, h, &fakeMaintenance{})
	token := signToken(t, "acc-7", false, false)

	rec := doRequest(router, http.MethodPost, "/api/notifications/payment", token, `{"kind":"chargeback","amount":100}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/notifications/payment", token, `{"kind":"recharge","amount":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSurfaceRequiresAdminSession(t *testing.T) {
	orders := &fakeOrders{}
	admin := NewAdminHandler(slog.Default(), nil, orders)

	router := mux.NewRouter()
	sub := router.PathPrefix("/api/admin").Subrouter()
	sub.Use(Auth(slog.Default(), testSecret))
	sub.Use(RequireAdmin(slog.Default()))
	admin.RegisterRoutes(sub)

	rec := doRequest(router, http.MethodPost, "/api/admin/orders/ord-1/advance", signToken(t, "acc-1", false, false), `{"status":"paid"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, orders.advanced)

	rec = doRequest(router, http.MethodPost, "/api/admin/orders/ord-1/advance", signToken(t, "acc-9", false, true), `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []entities.OrderStatus{entities.OrderStatusPaid}, orders.advanced)
}

func TestAdvanceOrderRegressionConflict(t *testing.T) {
	orders := &fakeOrders{advanceErr: &entities.ErrStatusRegression{From: entities.OrderStatusDelivered, To: entities.OrderStatusPaid}}
	admin := NewAdminHandler(slog.Default(), nil, orders)

	router := mux.NewRouter()
	sub := router.PathPrefix("/api/admin").Subrouter()
	sub.Use(Auth(slog.Default(), testSecret))
	sub.Use(RequireAdmin(slog.Default()))
	admin.RegisterRoutes(sub)

	rec := doRequest(router, http.MethodPost, "/api/admin/orders/ord-1/advance", signToken(t, "acc-9", false, true), `{"status":"paid"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "status_regression", resp.Error)
}
