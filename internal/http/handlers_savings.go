package http

import (
	"net/http"

	"duobudget/internal/core"
	"duobudget/internal/log"
)

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	projects, err := s.data.Savings(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if projects == nil {
		projects = []core.SavingsProject{}
	}
	NewJSONResponse().Body(projects).Write(w)
}

func (s *Server) handleCreateSavings(w http.ResponseWriter, r *http.Request) {
	var p core.SavingsProject
	if err := DecodeJSON(w, r, &p); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	p.Name = sanitizeInput(p.Name)
	p.Memo = sanitizeInput(p.Memo)

	created, err := s.data.AddSavingsProject(r.Context(), p)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/savings/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleUpdateSavings(w http.ResponseWriter, r *http.Request) {
	var p core.SavingsProject
	if err := DecodeJSON(w, r, &p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	p.ID = r.PathValue("id")
	p.Name = sanitizeInput(p.Name)
	p.Memo = sanitizeInput(p.Memo)
	if p.Frequency == "" {
		p.Frequency = core.Monthly
	}

	if err := s.data.UpdateSavingsProject(r.Context(), p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Body(p).Write(w)
}

func (s *Server) handleDeleteSavings(w http.ResponseWriter, r *http.Request) {
	if err := s.data.DeleteSavingsProject(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
