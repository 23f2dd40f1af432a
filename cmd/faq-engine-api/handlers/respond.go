// Package handlers provides HTTP handlers for the FAQ Engine API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, logger *observability.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a JSON error. Detail is only for client mistakes; server
// failures never echo internal errors.
func writeError(w http.ResponseWriter, logger *observability.Logger, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, logger, status, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// intParam parses a non-negative query parameter, falling back to def.
func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}
