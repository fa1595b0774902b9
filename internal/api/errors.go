package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"learncards/internal/util"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr always answers {error, code}. The message is the error text so a
// client can show provider failures as-is.
func writeErr(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  errorCode(status, err),
	})
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, util.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrMedia), errors.Is(err, util.ErrNoExtractableText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, util.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int, err error) string {
	switch {
	case errors.Is(err, util.ErrConfiguration):
		return "LC-CFG-5001"
	case errors.Is(err, util.ErrParse):
		return "LC-LLM-5002"
	case errors.Is(err, util.ErrNoExtractableText):
		return "LC-DOC-4221"
	}
	switch status {
	case http.StatusBadRequest:
		return "LC-API-4001"
	case http.StatusNotFound:
		return "LC-API-4004"
	case http.StatusMethodNotAllowed:
		return "LC-API-4005"
	case http.StatusRequestEntityTooLarge:
		return "LC-API-4013"
	case http.StatusUnprocessableEntity:
		return "LC-MEDIA-4220"
	case http.StatusBadGateway:
		return "LC-API-5020"
	default:
		if status >= 500 {
			return "LC-API-5000"
		}
		return "LC-API-4000"
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
