package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func ParseRequestBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dest)
	if err != nil {
		slog.Error("error parsing request body", "error", err)
		WriteError(w, CodedError(fmt.Errorf("error parsing request body: %w", err), http.StatusBadRequest))
		return false
	}
	return true
}

// ReadRequestBody returns the raw body for handlers that decode it later,
// such as partial updates merged inside a store transaction.
func ReadRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("error reading request body", "error", err)
		WriteError(w, CodedError(fmt.Errorf("error reading request body: %w", err), http.StatusBadRequest))
		return nil, false
	}
	return body, true
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	WriteJsonResponseCode(w, http.StatusOK, data)
}

func WriteJsonResponseCode(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
	}
}

func WriteSuccess(w http.ResponseWriter) {
	WriteJsonResponse(w, struct{}{})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// URLParamId parses a positive integer primary key from the url. Errors are
// already coded as not found so handlers can pass them straight to WriteError.
func URLParamId(r *http.Request, key string) (uint, error) {
	param := chi.URLParam(r, key)

	if len(param) == 0 {
		return 0, CodedError(fmt.Errorf("missing {%v} url parameter", key), http.StatusBadRequest)
	}

	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil || id == 0 {
		return 0, CodedError(fmt.Errorf("invalid id '%v' provided", param), http.StatusNotFound)
	}

	return uint(id), nil
}

// Scheme is the scheme the client used, honouring X-Forwarded-Proto.
func Scheme(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		return forwarded
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// BaseUrl is scheme://host of the incoming request, used when building
// navigation links in responses.
func BaseUrl(r *http.Request) string {
	return fmt.Sprintf("%s://%s", Scheme(r), r.Host)
}
