package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ideas "github.com/StackRunner1/my-ideas"
	"github.com/StackRunner1/my-ideas/supabase"
)

type tagRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := client.From("tags").Select("*").Eq("user_id", user.ID)
	if search := r.URL.Query().Get("q"); search != "" {
		q = q.Ilike("name", "%"+search+"%")
	}
	var rows []ideas.Tag
	if err := q.Order("name", true).Limit(200).Execute(r.Context(), &rows); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": rows, "count": len(rows)})
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req tagRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	name, err := ideas.NormalizeTagName(req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var created []ideas.Tag
	err = client.From("tags").Insert(ideas.Tag{UserID: user.ID, Name: name}).Execute(r.Context(), &created)
	if err != nil {
		if supabase.IsConflict(err) {
			writeErrorCode(w, r, http.StatusConflict, "TAG_EXISTS", "tag already exists")
			return
		}
		writeError(w, r, err)
		return
	}
	if len(created) == 0 {
		writeErrorCode(w, r, http.StatusInternalServerError, "INTERNAL", "insert returned no row")
		return
	}
	writeJSON(w, http.StatusCreated, created[0])
}

func (s *Server) handleLinkTag(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	tagID := chi.URLParam(r, "id")
	ideaID := chi.URLParam(r, "ideaID")

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	link := ideas.IdeaTag{IdeaID: ideaID, TagID: tagID}
	if err := client.From("idea_tags").Insert(link).Execute(r.Context(), nil); err != nil {
		if supabase.IsConflict(err) {
			writeJSON(w, http.StatusOK, map[string]any{"linked": true, "already_linked": true})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"linked": true})
}

func (s *Server) handleUnlinkTag(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	tagID := chi.URLParam(r, "id")
	ideaID := chi.URLParam(r, "ideaID")

	client, err := s.engine.AgentClient(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = client.From("idea_tags").Delete().
		Eq("idea_id", ideaID).Eq("tag_id", tagID).
		Execute(r.Context(), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
