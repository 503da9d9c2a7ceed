package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.openly.dev/pointy"

	"github.com/brpainel/painel-gateway/internal/core/ports"
	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/eventbus"
	"github.com/brpainel/painel-gateway/internal/loader"
	"github.com/brpainel/painel-gateway/internal/usecases"
)

var _ ports.OrderService = (*usecases.OrdersService)(nil)

type HTTPHandler struct {
	logger       *slog.Logger
	dashboard    ports.DashboardService
	orders       ports.OrderService
	transactions ports.TransactionService
	lookup       ports.LookupService
	bus          *eventbus.Bus
}

func NewHTTPHandler(logger *slog.Logger, dashboard ports.DashboardService, orders ports.OrderService, transactions ports.TransactionService, lookup ports.LookupService, bus *eventbus.Bus) *HTTPHandler {
	return &HTTPHandler{
		logger:       logger,
		dashboard:    dashboard,
		orders:       orders,
		transactions: transactions,
		lookup:       lookup,
		bus:          bus,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Dashboard
	router.HandleFunc("/dashboard/stats", h.GetDashboardStats).Methods("GET")
	router.HandleFunc("/dashboard/refresh", h.RefreshDashboard).Methods("POST")
	router.HandleFunc("/dashboard/history", h.GetDashboardHistory).Methods("GET")

	// Orders
	router.HandleFunc("/orders", h.GetOrders).Methods("GET")
	router.HandleFunc("/orders/{orderId}/tracking", h.GetOrderTracking).Methods("GET")

	// Transactions
	router.HandleFunc("/transactions", h.GetTransactions).Methods("GET")

	// Record lookups
	router.HandleFunc("/lookup/{module}", h.RunLookup).Methods("POST")
	router.HandleFunc("/lookup/{module}/has-records", h.GetHasRecords).Methods("GET")

	// Payment confirmations
	router.HandleFunc("/notifications/payment", h.NotifyPayment).Methods("POST")
}

func (h *HTTPHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboard.Stats()

	view := make(map[string]int64, len(stats))
	for counter, value := range stats {
		view[string(counter)] = value
	}
	respondData(h.logger, w, view)
}

func (h *HTTPHandler) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.Refresh(r.Context()); err != nil {
		h.logger.Error("Error refreshing dashboard stats", "error", err)
		respondError(h.logger, w, err)
		return
	}
	h.GetDashboardStats(w, r)
}

func (h *HTTPHandler) GetDashboardHistory(w http.ResponseWriter, r *http.Request) {
	params, err := historyParams(r)
	if err != nil {
		respondBadRequest(h.logger, w, err.Error())
		return
	}

	if err := h.dashboard.LoadHistory(r.Context(), params); err != nil {
		h.logger.Error("Error loading dashboard history", "error", err)
	}

	// Even a failed reload has a view to show: the previous records plus the
	// error, so the panel never blanks.
	state := h.dashboard.History()
	respondData(h.logger, w, map[string]any{
		"records":    state.Records,
		"aggregates": state.Aggregates,
		"loading":    state.Loading,
		"loaded":     state.Loaded,
		"empty":      state.Empty(),
		"error":      errMessage(state.Err),
	})
}

func (h *HTTPHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondJSON(h.logger, w, http.StatusUnauthorized, response{Error: "unauthorized"})
		return
	}

	orders, stale, err := h.orders.ListOrders(r.Context(), session.AccountID)
	if err != nil {
		h.logger.Error("Error listing orders", "error", err, "account_id", session.AccountID)
		respondError(h.logger, w, err)
		return
	}
	respondStale(h.logger, w, orders, stale)
}

func (h *HTTPHandler) GetOrderTracking(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	if orderID == "" {
		respondBadRequest(h.logger, w, "Missing required parameter: orderId")
		return
	}

	view, err := h.orders.Track(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Error tracking order", "error", err, "order_id", orderID)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, view)
}

func (h *HTTPHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondJSON(h.logger, w, http.StatusUnauthorized, response{Error: "unauthorized"})
		return
	}

	filter, err := transactionFilter(r)
	if err != nil {
		respondBadRequest(h.logger, w, err.Error())
		return
	}

	records, stale, err := h.transactions.History(r.Context(), session.AccountID, filter)
	if err != nil {
		h.logger.Error("Error loading transaction history", "error", err, "account_id", session.AccountID)
		respondError(h.logger, w, err)
		return
	}
	respondStale(h.logger, w, records, stale)
}

func (h *HTTPHandler) RunLookup(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondJSON(h.logger, w, http.StatusUnauthorized, response{Error: "unauthorized"})
		return
	}

	module := entities.LookupModule(mux.Vars(r)["module"])

	var body struct {
		Document string `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	result, err := h.lookup.Query(r.Context(), session.AccountID, module, body.Document)
	if err != nil {
		h.logger.Error("Error running lookup", "error", err, "module", module, "account_id", session.AccountID)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, json.RawMessage(result))
}

func (h *HTTPHandler) GetHasRecords(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondJSON(h.logger, w, http.StatusUnauthorized, response{Error: "unauthorized"})
		return
	}

	module := entities.LookupModule(mux.Vars(r)["module"])

	has, err := h.lookup.HasRecords(r.Context(), session.AccountID, module)
	if err != nil {
		h.logger.Error("Error checking module records", "error", err, "module", module, "account_id", session.AccountID)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, map[string]bool{"has_records": has})
}

// NotifyPayment ingests a confirmed payment for the signed-in account and
// publishes the matching event, which adjusts the dashboard counters.
func (h *HTTPHandler) NotifyPayment(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondJSON(h.logger, w, http.StatusUnauthorized, response{Error: "unauthorized"})
		return
	}

	var body struct {
		Kind     string `json:"kind"`
		Amount   int64  `json:"amount"`
		Method   string `json:"method"`
		PlanID   string `json:"plan_id"`
		Referred string `json:"referred"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}
	if body.Amount <= 0 {
		respondBadRequest(h.logger, w, "Amount must be positive")
		return
	}

	switch body.Kind {
	case "recharge":
		h.bus.Publish(r.Context(), eventbus.RechargeCompleted{
			AccountID: session.AccountID,
			Amount:    body.Amount,
			Method:    body.Method,
		})
	case "plan_purchase":
		h.bus.Publish(r.Context(), eventbus.PlanPurchaseCompleted{
			AccountID: session.AccountID,
			PlanID:    body.PlanID,
			Amount:    body.Amount,
		})
	case "commission":
		h.bus.Publish(r.Context(), eventbus.CommissionEarned{
			AccountID: session.AccountID,
			Referred:  body.Referred,
			Amount:    body.Amount,
		})
	default:
		respondBadRequest(h.logger, w, "Unknown payment kind: "+body.Kind)
		return
	}

	h.logger.Info("Payment notification accepted", "kind", body.Kind, "account_id", session.AccountID, "amount", body.Amount)
	respondData(h.logger, w, map[string]string{"status": "accepted"})
}

func historyParams(r *http.Request) (loader.Params, error) {
	q := r.URL.Query()
	p := loader.Params{}

	if v := q.Get("kind"); v != "" {
		p.Status = pointy.String(v)
	}
	if v := q.Get("search"); v != "" {
		p.Search = pointy.String(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, err
		}
		p.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, err
		}
		p.To = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, err
		}
		p.Limit = pointy.Int(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, err
		}
		p.Offset = pointy.Int(n)
	}
	return p, nil
}

func transactionFilter(r *http.Request) (usecases.HistoryFilter, error) {
	q := r.URL.Query()
	f := usecases.HistoryFilter{}

	if v := q.Get("kind"); v != "" {
		f.Kind = pointy.String(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Limit = pointy.Int(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Offset = pointy.Int(n)
	}
	return f, nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
