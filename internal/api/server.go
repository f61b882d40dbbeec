// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// package api serves the Proctor REST API.
//
// Endpoints (all require basic auth):
//   - GET /                                   - greeting
//   - GET|POST /users                         - list or create accounts
//   - GET|PATCH|DELETE /users/{name}          - one account
//   - GET|POST /users/{name}/pubkeys          - an account's public keys
//   - GET|PATCH|DELETE /users/{name}/pubkeys/{title}
//   - GET /users/{name}/teams                 - teams of an account
//   - GET /teams, GET|PATCH|DELETE /teams/{name}
//   - GET /teams/{name}/users, GET /teams/{name}/pubkeys
//   - POST|DELETE /memberships                - link or unlink account and team
//   - GET /whoami                             - the authenticated identity
package api // import "github.com/toeirei/proctor/internal/api"

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/logging"
)

const (
	// DefaultAddr is used when Config.Addr is empty.
	DefaultAddr = ":8080"

	// MaxRequestBodySize caps JSON request bodies (1MB).
	MaxRequestBodySize = 1 << 20
)

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 120 * time.Second
	}
	return c
}

// Server is the Proctor HTTP API server.
type Server struct {
	cfg    Config
	store  db.Store
	guard  *auth.Guard
	router *http.ServeMux
	server *http.Server
}

// NewServer wires the routes for store behind guard.
func NewServer(cfg Config, store db.Store, guard *auth.Guard) *Server {
	s := &Server{
		cfg:    cfg.withDefaults(),
		store:  store,
		guard:  guard,
		router: http.NewServeMux(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Handler returns the router wrapped in the middleware chain: recovery,
// request id, access log and authentication, in that order.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(),
		s.guard.Middleware(s.authError),
	)(s.router)
}

// Serve accepts connections on l until Shutdown is called. After Shutdown
// it returns nil immediately.
func (s *Server) Serve(l net.Listener) error {
	logging.Infof("api: listening on %s", l.Addr())
	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves requests.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Infof("api: shutting down")
	return s.server.Shutdown(ctx)
}
