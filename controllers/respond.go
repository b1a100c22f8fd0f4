package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go-storefront/models"
	"go-storefront/storage"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
	Field   string `json:"field,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// writeError maps collaborator and storage errors onto a status code. Errors
// without a structured message become a plain 500.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *models.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status != 0:
		writeJSON(w, apiErr.Status, errorBody{Message: apiErr.Message})
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
