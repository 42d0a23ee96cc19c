// Package handlers implements the portal's HTTP surface: login, route
// resolution, the doctor directory, the booking workflow, and the
// read-only appointment and record views.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// upstreamError maps a backend failure onto the portal's response
// taxonomy: 401 clears the caller back to login, everything else is a
// dismissible 502 banner. Returns false if err was nil.
func upstreamError(w http.ResponseWriter, err error, clearSession func()) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, upstream.ErrAuthExpired) {
		if clearSession != nil {
			clearSession()
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"redirect": "/login"})
		return true
	}
	var re *upstream.RemoteError
	if errors.As(err, &re) {
		jsonError(w, re.Message, http.StatusBadGateway)
		return true
	}
	jsonError(w, err.Error(), http.StatusBadGateway)
	return true
}
