// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"net/http"
	"net/url"

	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/i18n"
	"github.com/toeirei/proctor/internal/model"
)

// setupRoutes configures all HTTP routes. Routes given roles are gated by
// auth.RequireRole; ownership checks happen inside the handlers after the
// resource has been loaded.
func (s *Server) setupRoutes() {
	s.route("GET /{$}", s.handleRoot)
	s.route("GET /whoami", s.handleWhoami)

	s.route("GET /users", s.handleListUsers, model.RoleGuest)
	s.route("POST /users", s.handleCreateUser, model.RoleAdmin)
	s.route("GET /users/{name}", s.handleGetUser, model.RoleGuest)
	s.route("PATCH /users/{name}", s.handleUpdateUser)
	s.route("DELETE /users/{name}", s.handleDeleteUser)
	s.route("GET /users/{name}/teams", s.handleUserTeams, model.RoleGuest)

	s.route("GET /users/{name}/pubkeys", s.handleListPubkeys, model.RoleGuest)
	s.route("POST /users/{name}/pubkeys", s.handleCreatePubkey)
	s.route("GET /users/{name}/pubkeys/{title}", s.handleGetPubkey, model.RoleGuest)
	s.route("PATCH /users/{name}/pubkeys/{title}", s.handleUpdatePubkey)
	s.route("DELETE /users/{name}/pubkeys/{title}", s.handleDeletePubkey)

	s.route("GET /teams", s.handleListTeams, model.RoleGuest)
	s.route("GET /teams/{name}", s.handleGetTeam, model.RoleGuest)
	s.route("PATCH /teams/{name}", s.handleUpdateTeam, model.RoleAdmin)
	s.route("DELETE /teams/{name}", s.handleDeleteTeam, model.RoleAdmin)
	s.route("GET /teams/{name}/users", s.handleTeamUsers, model.RoleGuest)
	s.route("GET /teams/{name}/pubkeys", s.handleTeamPubkeys, model.RoleGuest)

	s.route("POST /memberships", s.handleLink, model.RoleAdmin)
	s.route("DELETE /memberships", s.handleUnlink, model.RoleAdmin)
}

func (s *Server) route(pattern string, h http.HandlerFunc, roles ...model.Role) {
	var handler http.Handler = h
	if len(roles) > 0 {
		handler = auth.RequireRole(s.authError, roles...)(handler)
	}
	s.router.Handle(pattern, handler)
}

// authorize writes 403 and returns false unless the requester may use
// target.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, target any) bool {
	if auth.CanUse(identity(r), target) {
		return true
	}
	s.fail(w, r, auth.ErrForbidden)
	return false
}

func userPath(name string) string {
	return "/users/" + url.PathEscape(name)
}

func pubkeyPath(user, title string) string {
	return userPath(user) + "/pubkeys/" + url.PathEscape(title)
}

func teamPath(name string) string {
	return "/teams/" + url.PathEscape(name)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(i18n.T("http.hello")))
}

type whoamiView struct {
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	System bool       `json:"system"`
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	writeJSON(w, http.StatusOK, whoamiView{Name: id.Name, Role: id.Role, System: id.IsSystem()})
}
