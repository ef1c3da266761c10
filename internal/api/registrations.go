package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

// RegistrationsResponse lists registry entries.
type RegistrationsResponse struct {
	Registrations []registry.Entry `json:"registrations"`
	Count         int              `json:"count"`
}

// handleListRegistrations returns registry entries in registration order.
// The optional kind parameter (user, channel) filters the list.
func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.List()

	if kind := registry.Kind(r.URL.Query().Get("kind")); kind != "" {
		if !kind.Valid() {
			writeBadRequest(w, "kind must be user or channel")
			return
		}
		entries = lo.Filter(entries, func(e registry.Entry, _ int) bool {
			return e.Kind == kind
		})
	}

	writeJSON(w, http.StatusOK, RegistrationsResponse{
		Registrations: entries,
		Count:         len(entries),
	})
}

// handleGetRegistration returns the entry for one name (exact match).
func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	entry, ok := s.registry.Lookup(name)
	if !ok {
		writeNotFound(w, "name not registered")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
