// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

// CampaignHandler serves read-only campaign endpoints
type CampaignHandler struct {
	Service *service.CampaignService
	Logger  *zap.Logger
}

// NewCampaignHandler creates a new CampaignHandler backed by svc
func NewCampaignHandler(svc *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{Service: svc, Logger: logging.OrNop(logger)}
}

// GetCampaignHandlerWithStats returns one campaign with its delivery counts
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	id, ok := CampaignID(w, r)
	if !ok {
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, details)
}

// ListDeliveriesHandler returns every ledger row of one campaign
func (h *CampaignHandler) ListDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := CampaignID(w, r)
	if !ok {
		return
	}

	logs, err := h.Service.ListDeliveries(r.Context(), id)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"campaign_id": id, "deliveries": logs})
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CampaignID parses the {id} route parameter, writing a 400 when it is invalid.
func CampaignID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid campaign id"})
		return 0, false
	}
	return id, true
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case appErrors.IsClientError(err):
		return http.StatusBadRequest
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case appErrors.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error": ...}. Internal errors are logged and
// their text is not exposed.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.OrNop(logger).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}
