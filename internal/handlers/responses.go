package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/upstream"
	"github.com/brpainel/painel-gateway/internal/usecases"
	"github.com/brpainel/painel-gateway/internal/usecases/repository"
)

// response is the gateway's reply envelope. Stale marks data served from the
// local fallback copy while upstream is unreachable.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Stale   bool   `json:"stale,omitempty"`
}

func respondJSON(logger *slog.Logger, w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("Error encoding response", "error", err)
	}
}

func respondData(logger *slog.Logger, w http.ResponseWriter, data any) {
	respondJSON(logger, w, http.StatusOK, response{Success: true, Data: data})
}

func respondStale(logger *slog.Logger, w http.ResponseWriter, data any, stale bool) {
	respondJSON(logger, w, http.StatusOK, response{Success: true, Data: data, Stale: stale})
}

func respondBadRequest(logger *slog.Logger, w http.ResponseWriter, msg string) {
	respondJSON(logger, w, http.StatusBadRequest, response{Error: "bad_request", Message: msg})
}

// respondError maps domain errors to HTTP statuses. Upstream API errors pass
// their status through; anything unrecognized is a 502 because the gateway
// itself only fails when the panel API does.
func respondError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		respondJSON(logger, w, apiErr.Status, response{Error: apiErr.Code, Message: apiErr.Message})
		return
	}

	var regression *entities.ErrStatusRegression
	switch {
	case errors.As(err, &regression):
		respondJSON(logger, w, http.StatusConflict, response{Error: "status_regression", Message: regression.Error()})
	case errors.Is(err, usecases.ErrInsufficientBalance):
		respondJSON(logger, w, http.StatusPaymentRequired, response{Error: "insufficient_balance", Message: "Saldo insuficiente para esta consulta"})
	case errors.Is(err, repository.ErrNotFound):
		respondJSON(logger, w, http.StatusNotFound, response{Error: "not_found", Message: "Registro não encontrado"})
	default:
		logger.Error("Unhandled upstream failure", "error", err)
		respondJSON(logger, w, http.StatusBadGateway, response{Error: "upstream_unavailable", Message: "Serviço temporariamente indisponível"})
	}
}
