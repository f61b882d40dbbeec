// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/i18n"
	"github.com/toeirei/proctor/internal/logging"
	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request body")

// errorResponse is the body of every failed request.
type errorResponse struct {
	Errors []string `json:"errors"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnf("api: encode response: %v", err)
	}
}

// writeMessages writes an error response with localized messages.
func writeMessages(w http.ResponseWriter, status int, messageIDs ...string) {
	msgs := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		msgs = append(msgs, i18n.T(id))
	}
	writeJSON(w, status, errorResponse{Errors: msgs})
}

// fail maps err to a status code and writes the error response. Unknown
// errors are logged and reported as 500 without details.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var validation model.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: validation.Messages()})
	case errors.Is(err, db.ErrNotFound):
		writeMessages(w, http.StatusNotFound, "http.not_found")
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrForbidden):
		s.authError(w, r, err)
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Errors: []string{
			fmt.Sprintf("request body exceeds maximum size of %d bytes", tooLarge.Limit),
		}})
	case errors.Is(err, errBadRequest):
		writeMessages(w, http.StatusBadRequest, "http.bad_request")
	case errors.Is(err, security.ErrPasswordTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: model.ValidationError{{Field: "password", Code: model.CodeTooLong}}.Messages()})
	default:
		logging.With("request_id", RequestIDFrom(r.Context())).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		writeMessages(w, http.StatusInternalServerError, "http.internal")
	}
}

// authError renders authentication and authorization failures. It is also
// handed to the Guard and RequireRole middlewares.
func (s *Server) authError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrForbidden) {
		writeMessages(w, http.StatusForbidden, "http.forbidden")
		return
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+auth.Realm+`"`)
	}
	writeMessages(w, http.StatusUnauthorized, "http.unauthorized")
}

// decodeBody reads a JSON object from the request body into dst. Bodies
// are capped at MaxRequestBodySize and unknown fields are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

// identity returns the identity the Guard attached to r.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}
