// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/sshkey"
)

// pubkeyView is the API form of a credential. Algorithm and fingerprint
// are only present when the key parses as an OpenSSH public key.
type pubkeyView struct {
	Title       string `json:"title"`
	Key         string `json:"key"`
	Owner       string `json:"owner"`
	Algorithm   string `json:"algorithm,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

func newPubkeyView(c model.Credential, owner string) pubkeyView {
	v := pubkeyView{Title: c.Title, Key: c.Key, Owner: owner}
	if info, err := sshkey.Inspect(c.Key); err == nil {
		v.Algorithm = info.Algorithm
		v.Fingerprint = info.Fingerprint
	}
	return v
}

type pubkeyRequest struct {
	Title *string `json:"title"`
	Key   *string `json:"key"`
}

func (p pubkeyRequest) apply(c *model.Credential) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Key != nil {
		c.Key = *p.Key
	}
}

// loadPubkey resolves the {name} and {title} path segments.
func (s *Server) loadPubkey(w http.ResponseWriter, r *http.Request) (*model.Account, *model.Credential) {
	acc := s.loadUser(w, r)
	if acc == nil {
		return nil, nil
	}
	c, err := s.store.FindCredential(r.Context(), acc.ID, r.PathValue("title"))
	if err != nil {
		s.fail(w, r, err)
		return nil, nil
	}
	return acc, c
}

func (s *Server) handleListPubkeys(w http.ResponseWriter, r *http.Request) {
	acc := s.loadUser(w, r)
	if acc == nil {
		return
	}
	creds, err := s.store.ListCredentials(r.Context(), acc.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]pubkeyView, 0, len(creds))
	for _, c := range creds {
		out = append(out, newPubkeyView(c, acc.Name))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPubkey(w http.ResponseWriter, r *http.Request) {
	acc, c := s.loadPubkey(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, newPubkeyView(*c, acc.Name))
}

func (s *Server) handleCreatePubkey(w http.ResponseWriter, r *http.Request) {
	acc := s.loadUser(w, r)
	if acc == nil || !s.authorize(w, r, *acc) {
		return
	}
	var req pubkeyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c := &model.Credential{AccountID: acc.ID}
	req.apply(c)
	if err := s.store.CreateCredential(r.Context(), c); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", pubkeyPath(acc.Name, c.Title))
	writeJSON(w, http.StatusCreated, newPubkeyView(*c, acc.Name))
}

func (s *Server) handleUpdatePubkey(w http.ResponseWriter, r *http.Request) {
	acc, c := s.loadPubkey(w, r)
	if c == nil || !s.authorize(w, r, *c) {
		return
	}
	var req pubkeyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.apply(c)
	if err := s.store.UpdateCredential(r.Context(), c); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", pubkeyPath(acc.Name, c.Title))
	writeJSON(w, http.StatusOK, newPubkeyView(*c, acc.Name))
}

func (s *Server) handleDeletePubkey(w http.ResponseWriter, r *http.Request) {
	_, c := s.loadPubkey(w, r)
	if c == nil || !s.authorize(w, r, *c) {
		return
	}
	if err := s.store.DeleteCredential(r.Context(), c.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
