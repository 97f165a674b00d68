package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/example/ec-checkout/internal/apperr"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

var errInvalidID = errors.New("invalid id")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Error encoding response: %v", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondError maps a classified error onto a status code. Server-side
// faults are logged and replaced by a generic message.
func respondError(w http.ResponseWriter, err error) {
	status := apperr.KindOf(err).HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("[API] Request failed: %v", err)
	}
	respondMessage(w, status, apperr.PublicMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, answering 400 when it is
// malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, apperr.Validation(errInvalidID))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
