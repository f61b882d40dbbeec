// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/model"
)

type userView struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

func newUserView(a model.Account) userView {
	return userView{Name: a.Name, Role: a.Role}
}

func userViews(accs []model.Account) []userView {
	out := make([]userView, 0, len(accs))
	for _, a := range accs {
		out = append(out, newUserView(a))
	}
	return out
}

type createUserRequest struct {
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type updateUserRequest struct {
	Name     *string     `json:"name"`
	Password *string     `json:"password"`
	Role     *model.Role `json:"role"`
}

// loadUser resolves the {name} path segment. It writes the error response
// itself and returns nil when the account cannot be loaded.
func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) *model.Account {
	acc, err := s.store.FindAccountByName(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return nil
	}
	return acc
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	accs, err := s.store.ListAccounts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userViews(accs))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	acc := s.loadUser(w, r)
	if acc == nil {
		return
	}
	writeJSON(w, http.StatusOK, newUserView(*acc))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	acc := &model.Account{Name: req.Name, Role: req.Role}
	if err := s.store.CreateAccount(r.Context(), acc, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", userPath(acc.Name))
	writeJSON(w, http.StatusCreated, newUserView(*acc))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	acc := s.loadUser(w, r)
	if acc == nil || !s.authorize(w, r, *acc) {
		return
	}
	var req updateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Role != nil && *req.Role != acc.Role {
		if !identity(r).Satisfies(model.RoleAdmin) {
			s.fail(w, r, auth.ErrForbidden)
			return
		}
		acc.Role = *req.Role
	}
	if req.Name != nil {
		acc.Name = *req.Name
	}
	password := ""
	if req.Password != nil {
		password = *req.Password
	}

	if err := s.store.UpdateAccount(r.Context(), acc, password); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", userPath(acc.Name))
	writeJSON(w, http.StatusOK, newUserView(*acc))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	acc := s.loadUser(w, r)
	if acc == nil || !s.authorize(w, r, *acc) {
		return
	}
	if err := s.store.DeleteAccount(r.Context(), acc.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserTeams(w http.ResponseWriter, r *http.Request) {
	acc := s.loadUser(w, r)
	if acc == nil {
		return
	}
	groups, err := s.store.AccountGroups(r.Context(), acc.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]teamNameView, 0, len(groups))
	for _, g := range groups {
		out = append(out, teamNameView{Name: g.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
