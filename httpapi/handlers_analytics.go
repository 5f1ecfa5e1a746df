package httpapi

import (
	"net/http"
)

// Analytics reads come from database views so aggregation stays in
// SQL; RLS on the underlying tables scopes the views per user.

type itemsByDateRow struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type itemsByStatusRow struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (s *Server) handleItemsByDate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rows []itemsByDateRow
	err = client.From("items_by_date").Select("*").
		Order("day", true).Limit(366).
		Execute(r.Context(), &rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (s *Server) handleItemsByStatus(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rows []itemsByStatusRow
	err = client.From("items_by_status").Select("*").Execute(r.Context(), &rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}
