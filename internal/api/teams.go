// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"context"
	"net/http"

	"github.com/toeirei/proctor/internal/model"
)

type teamNameView struct {
	Name string `json:"name"`
}

type teamView struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

type teamRequest struct {
	Name *string `json:"name"`
}

type membershipRequest struct {
	User string `json:"user"`
	Team string `json:"team"`
}

func (s *Server) newTeamView(ctx context.Context, g model.Group) (teamView, error) {
	members, err := s.store.GroupAccounts(ctx, g.ID)
	if err != nil {
		return teamView{}, err
	}
	v := teamView{Name: g.Name, Users: make([]string, 0, len(members))}
	for _, m := range members {
		v.Users = append(v.Users, m.Name)
	}
	return v, nil
}

func (s *Server) loadTeam(w http.ResponseWriter, r *http.Request) *model.Group {
	g, err := s.store.FindGroupByName(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return nil
	}
	return g
}

func (s *Server) writeTeam(w http.ResponseWriter, r *http.Request, status int, g model.Group) {
	v, err := s.newTeamView(r.Context(), g)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]teamView, 0, len(groups))
	for _, g := range groups {
		v, err := s.newTeamView(r.Context(), g)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	g := s.loadTeam(w, r)
	if g == nil {
		return
	}
	s.writeTeam(w, r, http.StatusOK, *g)
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	g := s.loadTeam(w, r)
	if g == nil {
		return
	}
	var req teamRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if err := s.store.UpdateGroup(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", teamPath(g.Name))
	s.writeTeam(w, r, http.StatusOK, *g)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	g := s.loadTeam(w, r)
	if g == nil {
		return
	}
	if err := s.store.DeleteGroup(r.Context(), g.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeamUsers(w http.ResponseWriter, r *http.Request) {
	g := s.loadTeam(w, r)
	if g == nil {
		return
	}
	members, err := s.store.GroupAccounts(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userViews(members))
}

func (s *Server) handleTeamPubkeys(w http.ResponseWriter, r *http.Request) {
	g := s.loadTeam(w, r)
	if g == nil {
		return
	}
	creds, err := s.store.GroupCredentials(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]pubkeyView, 0, len(creds))
	for _, c := range creds {
		out = append(out, newPubkeyView(c.Credential, c.Owner))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.store.Link(r.Context(), req.User, req.Team); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", teamPath(req.Team))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Unlink(r.Context(), req.User, req.Team); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
