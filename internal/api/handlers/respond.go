package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avery/hireflow/internal/api/dto"
	"github.com/avery/hireflow/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error onto an HTTP response. Taxonomy errors
// carry their own status; anything else is a 500 with a generic message.
func writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	resp := dto.ErrorResponse{Error: e.Message, Code: string(e.Code)}
	if e.Field != "" {
		resp.Details = map[string]string{e.Field: e.Message}
	}

	switch e.Code {
	case apperr.CodeValidation:
		writeJSON(w, http.StatusBadRequest, resp)
	case apperr.CodeNotFound:
		writeJSON(w, http.StatusNotFound, resp)
	case apperr.CodeConflict:
		writeJSON(w, http.StatusConflict, resp)
	case apperr.CodeUnauthorized:
		writeJSON(w, http.StatusForbidden, resp)
	default:
		resp.Error = "Internal server error"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}
