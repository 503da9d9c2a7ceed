package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/brpainel/painel-gateway/internal/core/ports"
	"github.com/brpainel/painel-gateway/internal/entities"
)

// AdminService is the slice of the admin usecase this handler consumes.
type AdminService interface {
	ListAccounts(ctx context.Context) ([]entities.Account, error)
	SaveAccount(ctx context.Context, account entities.Account) (*entities.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	ListPlans(ctx context.Context) ([]entities.Plan, error)
	SavePlan(ctx context.Context, plan entities.Plan) (*entities.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	ListTestimonials(ctx context.Context) ([]entities.Testimonial, error)
	SaveTestimonial(ctx context.Context, item entities.Testimonial) (*entities.Testimonial, error)
	DeleteTestimonial(ctx context.Context, id string) error

	GetConfig(ctx context.Context, key string) (*entities.ConfigEntry, error)
	SetConfig(ctx context.Context, entry entities.ConfigEntry) error
}

type AdminHandler struct {
	logger *slog.Logger
	admin  AdminService
	orders ports.OrderService
}

func NewAdminHandler(logger *slog.Logger, admin AdminService, orders ports.OrderService) *AdminHandler {
	return &AdminHandler{logger: logger, admin: admin, orders: orders}
}

// RegisterRoutes mounts the admin surface. The router passed in must already
// carry the admin gate.
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts", h.SaveAccount).Methods("POST")
	router.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods("DELETE")

	router.HandleFunc("/plans", h.ListPlans).Methods("GET")
	router.HandleFunc("/plans", h.SavePlan).Methods("POST")
	router.HandleFunc("/plans/{id}", h.DeletePlan).Methods("DELETE")

	router.HandleFunc("/testimonials", h.ListTestimonials).Methods("GET")
	router.HandleFunc("/testimonials", h.SaveTestimonial).Methods("POST")
	router.HandleFunc("/testimonials/{id}", h.DeleteTestimonial).Methods("DELETE")

	router.HandleFunc("/config/{key}", h.GetConfig).Methods("GET")
	router.HandleFunc("/config/{key}", h.SetConfig).Methods("PUT")

	router.HandleFunc("/orders/{orderId}/advance", h.AdvanceOrder).Methods("POST")
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.admin.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("Error listing accounts", "error", err)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, accounts)
}

func (h *AdminHandler) SaveAccount(w http.ResponseWriter, r *http.Request) {
	var account entities.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	saved, err := h.admin.SaveAccount(r.Context(), account)
	if err != nil {
		h.logger.Error("Error saving account", "error", err, "account_id", account.ID)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, saved)
}

func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.admin.DeleteAccount(r.Context(), id); err != nil {
		h.logger.Error("Error deleting account", "error", err, "account_id", id)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, map[string]string{"deleted": id})
}

func (h *AdminHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.admin.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("Error listing plans", "error", err)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, plans)
}

func (h *AdminHandler) SavePlan(w http.ResponseWriter, r *http.Request) {
	var plan entities.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	saved, err := h.admin.SavePlan(r.Context(), plan)
	if err != nil {
		h.logger.Error("Error saving plan", "error", err, "plan_id", plan.ID)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, saved)
}

func (h *AdminHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.admin.DeletePlan(r.Context(), id); err != nil {
		h.logger.Error("Error deleting plan", "error", err, "plan_id", id)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, map[string]string{"deleted": id})
}

func (h *AdminHandler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	items, err := h.admin.ListTestimonials(r.Context())
	if err != nil {
		h.logger.Error("Error listing testimonials", "error", err)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, items)
}

func (h *AdminHandler) SaveTestimonial(w http.ResponseWriter, r *http.Request) {
	var item entities.Testimonial
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	saved, err := h.admin.SaveTestimonial(r.Context(), item)
	if err != nil {
		h.logger.Error("Error saving testimonial", "error", err, "testimonial_id", item.ID)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, saved)
}

func (h *AdminHandler) DeleteTestimonial(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.admin.DeleteTestimonial(r.Context(), id); err != nil {
		h.logger.Error("Error deleting testimonial", "error", err, "testimonial_id", id)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, map[string]string{"deleted": id})
}

func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	entry, err := h.admin.GetConfig(r.Context(), key)
	if err != nil {
		h.logger.Error("Error reading config entry", "error", err, "key", key)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, entry)
}

func (h *AdminHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var body struct {
		Value string `json:"config_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	entry := entities.ConfigEntry{Key: key, Value: body.Value}
	if err := h.admin.SetConfig(r.Context(), entry); err != nil {
		h.logger.Error("Error writing config entry", "error", err, "key", key)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, entry)
}

func (h *AdminHandler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	var body struct {
		Status entities.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondBadRequest(h.logger, w, "Invalid request body")
		return
	}

	if err := h.orders.AdvanceOrder(r.Context(), orderID, body.Status); err != nil {
		h.logger.Error("Error advancing order", "error", err, "order_id", orderID, "status", body.Status)
		respondError(h.logger, w, err)
		return
	}
	respondData(h.logger, w, map[string]string{"order_id": orderID, "status": string(body.Status)})
}
