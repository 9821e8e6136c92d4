package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/adoptrack/internal/adoption"
)

type AdoptionHandler struct {
	svc    *adoption.Service
	logger *slog.Logger
}

func NewAdoptionHandler(svc *adoption.Service, logger *slog.Logger) *AdoptionHandler {
	return &AdoptionHandler{svc: svc, logger: logger}
}

type createAdoptionRequest struct {
	UserID       int64 `json:"user_id"`
	PetID        int64 `json:"pet_id"`
	TrialEndDate *date `json:"trial_end_date"`
}

// Create handles POST /api/shelters/{species}/adoptions
func (h *AdoptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	species, err := parseSpeciesParam(r)
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}

	var req createAdoptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == 0 || req.PetID == 0 || req.TrialEndDate == nil {
		writeMessage(w, http.StatusBadRequest, "user_id, pet_id and trial_end_date are required")
		return
	}

	a, err := h.svc.CreateAdoption(r.Context(), species, req.UserID, req.PetID, req.TrialEndDate.Time)
	if err != nil {
		writeError(w, h.logger, "create adoption", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// List handles GET /api/shelters/{species}/adoptions[?active=true]
func (h *AdoptionHandler) List(w http.ResponseWriter, r *http.Request) {
	species, err := parseSpeciesParam(r)
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}

	list := h.svc.ListAdoptions
	if r.URL.Query().Get("active") == "true" {
		list = h.svc.ListActiveAdoptions
	}
	adoptions, err := list(r.Context(), species)
	if err != nil {
		writeError(w, h.logger, "list adoptions", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(adoptions))
}

// Get handles GET /api/shelters/{species}/adoptions/{id}
func (h *AdoptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	species, err := parseSpeciesParam(r)
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.svc.GetAdoption(r.Context(), species, id)
	if err != nil {
		writeError(w, h.logger, "get adoption", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type setTrialRequest struct {
	TrialEndDate *date `json:"trial_end_date"`
}

// SetTrial handles PUT /api/shelters/{species}/adoptions/{id}/trial
func (h *AdoptionHandler) SetTrial(w http.ResponseWriter, r *http.Request) {
	species, err := parseSpeciesParam(r)
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req setTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TrialEndDate == nil {
		writeMessage(w, http.StatusBadRequest, "trial_end_date is required")
		return
	}

	a, err := h.svc.SetTrialDate(r.Context(), species, id, req.TrialEndDate.Time)
	if err != nil {
		writeError(w, h.logger, "set trial date", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/shelters/{species}/adoptions/{id}
func (h *AdoptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	species, err := parseSpeciesParam(r)
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.svc.DeleteAdoption(r.Context(), species, id)
	if err != nil {
		writeError(w, h.logger, "delete adoption", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Reports handles GET /api/shelters/{species}/adoptions/{id}/reports
func (h *AdoptionHandler) Reports(w http.ResponseWriter, r *http.Request) {
	species, err := parseSpeciesParam(r)
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	reports, err := h.svc.Reports(r.Context(), species, id)
	if err != nil {
		writeError(w, h.logger, "list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(reports))
}
