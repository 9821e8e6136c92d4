package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/adoptrack/internal/store"
)

type PushHandler struct {
	users     *store.UserStore
	pushStore *store.PushStore
	publicKey string
	logger    *slog.Logger
}

// NewPushHandler serves device registration. publicKey may be empty when web
// push is not configured.
func NewPushHandler(users *store.UserStore, ps *store.PushStore, publicKey string, logger *slog.Logger) *PushHandler {
	return &PushHandler{users: users, pushStore: ps, publicKey: publicKey, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/users/{id}/push-subscriptions
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeMessage(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	if u == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}

	sub, err := h.pushStore.Subscribe(r.Context(), u.ID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		writeMessage(w, http.StatusNotFound, "web push is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.publicKey})
}
