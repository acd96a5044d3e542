package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lakegate/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeRunError maps an orchestrator failure to an HTTP response. The failure
// code is preserved verbatim so clients can branch on it.
func writeRunError(w http.ResponseWriter, err error) {
	var runErr *domain.RunError
	if errors.As(err, &runErr) {
		writeError(w, httpStatusFromFailure(runErr.Code), string(runErr.Code), runErr.Message)
		return
	}

	var validation *domain.ValidationError
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, string(domain.FailUnknown), err.Error())
	}
}

// httpStatusFromFailure maps orchestrator failure codes to HTTP status codes.
func httpStatusFromFailure(code domain.FailureCode) int {
	switch code {
	case domain.FailNoModelFound:
		return http.StatusNotFound
	case domain.FailNoRelationName, domain.FailNoColumns:
		return http.StatusUnprocessableEntity
	case domain.FailSQLValidation:
		return http.StatusBadRequest
	case domain.FailExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intQueryParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
