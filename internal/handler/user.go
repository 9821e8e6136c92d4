package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/adoptrack/internal/adoption"
	"github.com/dukerupert/adoptrack/internal/period"
)

type UserHandler struct {
	svc    *adoption.Service
	logger *slog.Logger
}

func NewUserHandler(svc *adoption.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// ActiveAdoption handles GET /api/users/{id}/active-adoption[?date=YYYY-MM-DD]
// and answers 204 when the user has no adoption on that date.
func (h *UserHandler) ActiveAdoption(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	day := h.svc.Today()
	if q := r.URL.Query().Get("date"); q != "" {
		day, err = period.ParseDate(q)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	u, err := h.svc.User(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get user", err)
		return
	}
	a, err := h.svc.ActiveAdoption(r.Context(), *u, day)
	if err != nil {
		writeError(w, h.logger, "find active adoption", err)
		return
	}
	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Warn handles POST /api/users/{id}/warning
func (h *UserHandler) Warn(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.WarnUser(r.Context(), id); err != nil {
		writeError(w, h.logger, "warn user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
