package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/adoptrack/internal/store"
)

type AlertHandler struct {
	alerts *store.AlertStore
	now    func() time.Time
	logger *slog.Logger
}

func NewAlertHandler(alerts *store.AlertStore, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, now: time.Now, logger: logger}
}

// List handles GET /api/alerts[?open=true]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.List(r.Context(), r.URL.Query().Get("open") == "true")
	if err != nil {
		h.logger.Error("list alerts", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(alerts))
}

// Resolve handles POST /api/alerts/{id}/resolve
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	alert, err := h.alerts.Resolve(r.Context(), id, h.now())
	if err != nil {
		h.logger.Error("resolve alert", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}
	if alert == nil {
		writeMessage(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
