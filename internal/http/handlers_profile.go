package http

import (
	"net/http"

	"duobudget/internal/core"
	"duobudget/internal/log"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.data.GetProfile(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(p).Write(w)
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	theme, err := core.ParseTheme(req.Theme)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	p, err := s.data.UpdateTheme(r.Context(), theme)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Body(p).Write(w)
}

type viewerRequest struct {
	Viewer string `json:"viewer"`
}

// handleAddViewer grants read access. Adding a present viewer succeeds
// without changing the profile.
func (s *Server) handleAddViewer(w http.ResponseWriter, r *http.Request) {
	var req viewerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	p, err := s.data.AddViewer(r.Context(), sanitizeInput(req.Viewer))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Body(p).Write(w)
}
