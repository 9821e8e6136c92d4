// Package handler exposes the adoption API over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/adoptrack/internal/adoption"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/period"
)

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseSpeciesParam(r *http.Request) (model.Species, error) {
	return model.ParseSpecies(r.PathValue("species"))
}

// date is a YYYY-MM-DD JSON string.
type date struct {
	time.Time
}

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := period.ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto HTTP statuses. Anything unrecognised is
// logged and reported as 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, adoption.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, adoption.ErrBusy):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, adoption.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, adoption.ErrDelivery):
		logger.Warn(op, "error", err)
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error(op, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
