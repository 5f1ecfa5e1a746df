package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	ideas "github.com/StackRunner1/my-ideas"
)

type ideaRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !ideas.ValidIdeaStatus(status) {
		writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid status filter")
		return
	}

	q := client.From("ideas").Select("*").Eq("user_id", user.ID)
	if status != "" {
		q = q.Eq("status", status)
	}
	var rows []ideas.Idea
	if err := q.Order("created_at", false).Limit(100).Execute(r.Context(), &rows); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": rows, "count": len(rows)})
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req ideaRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if err := ideas.ValidateIdeaTitle(title); err != nil {
		writeError(w, r, err)
		return
	}
	status := ideas.StatusDraft
	if req.Status != nil {
		status = *req.Status
		if !ideas.ValidIdeaStatus(status) {
			writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid status")
			return
		}
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		writeError(w, r, err)
		return
	}

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	row := ideas.Idea{UserID: user.ID, Title: title, Status: status, Tags: tags}
	if req.Description != nil {
		row.Description = strings.TrimSpace(*req.Description)
	}

	var created []ideas.Idea
	if err := client.From("ideas").Insert(row).Execute(r.Context(), &created); err != nil {
		writeError(w, r, err)
		return
	}
	if len(created) == 0 {
		writeErrorCode(w, r, http.StatusInternalServerError, "INTERNAL", "insert returned no row")
		return
	}
	writeJSON(w, http.StatusCreated, created[0])
}

func (s *Server) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	ideaID := chi.URLParam(r, "id")

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rows []ideas.Idea
	err = client.From("ideas").Select("*").
		Eq("id", ideaID).Eq("user_id", user.ID).
		Limit(1).Execute(r.Context(), &rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(rows) == 0 {
		writeError(w, r, fmt.Errorf("%w: idea %s", ideas.ErrNotFound, ideaID))
		return
	}
	writeJSON(w, http.StatusOK, rows[0])
}

func (s *Server) handleUpdateIdea(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	ideaID := chi.URLParam(r, "id")

	var req ideaRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	patch := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := ideas.ValidateIdeaTitle(title); err != nil {
			writeError(w, r, err)
			return
		}
		patch["title"] = title
	}
	if req.Description != nil {
		patch["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !ideas.ValidIdeaStatus(*req.Status) {
			writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid status")
			return
		}
		patch["status"] = *req.Status
	}
	if req.Tags != nil {
		tags, err := normalizeTags(req.Tags)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch["tags"] = tags
	}
	if len(patch) == 0 {
		writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "no fields to update")
		return
	}

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var updated []ideas.Idea
	err = client.From("ideas").Update(patch).
		Eq("id", ideaID).Eq("user_id", user.ID).
		Execute(r.Context(), &updated)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(updated) == 0 {
		writeError(w, r, fmt.Errorf("%w: idea %s", ideas.ErrNotFound, ideaID))
		return
	}
	writeJSON(w, http.StatusOK, updated[0])
}

func (s *Server) handleDeleteIdea(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	ideaID := chi.URLParam(r, "id")

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = client.From("ideas").Delete().
		Eq("id", ideaID).Eq("user_id", user.ID).
		Execute(r.Context(), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func normalizeTags(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		name, err := ideas.NormalizeTagName(tag)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}
