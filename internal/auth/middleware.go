// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"errors"
	"net/http"

	"github.com/toeirei/proctor/internal/logging"
	"github.com/toeirei/proctor/internal/model"
)

// Realm is announced in WWW-Authenticate challenges.
const Realm = "proctor"

// ErrorWriter renders an authentication or authorization failure. err is
// ErrUnauthenticated or ErrForbidden.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorWriter writes the status matching err with a plain text body.
func DefaultErrorWriter(w http.ResponseWriter, r *http.Request, err error) {
	http.Error(w, err.Error(), StatusFor(err))
}

// StatusFor maps auth errors to HTTP status codes.
func StatusFor(err error) int {
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func fail(w http.ResponseWriter, r *http.Request, onError ErrorWriter, err error) {
	if errors.Is(err, ErrUnauthenticated) {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	}
	if onError == nil {
		onError = DefaultErrorWriter
	}
	onError(w, r, err)
}

// Middleware authenticates every request with basic auth and attaches the
// resolved identity to the request context. Requests without valid
// credentials never reach next.
func (g *Guard) Middleware(onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				fail(w, r, onError, ErrUnauthenticated)
				return
			}
			id, err := g.Authenticate(r.Context(), username, password)
			if err != nil {
				logging.Debugf("auth: rejected credentials for %q on %s %s", username, r.Method, r.URL.Path)
				fail(w, r, onError, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets a request through only when the attached identity
// satisfies one of roles.
func RequireRole(onError ErrorWriter, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				fail(w, r, onError, ErrUnauthenticated)
				return
			}
			if !id.Satisfies(roles...) {
				logging.Infof("auth: %s (%s) denied %s %s", id.Name, id.Role, r.Method, r.URL.Path)
				fail(w, r, onError, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
