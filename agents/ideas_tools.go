package agents

import (
	"context"
	"fmt"
	"strings"

	ideas "github.com/StackRunner1/my-ideas"
	"github.com/StackRunner1/my-ideas/supabase"
)

// Database tools share a scoped client and the owning user's ID. Row
// access is enforced by row level security on the agent identity; the
// user_id filter narrows writes as a second guard.

type createIdeaTool struct {
	client *supabase.Client
	userID string
}

func (t *createIdeaTool) Name() string { return "create_idea" }

func (t *createIdeaTool) Description() string {
	return "Create a new idea with a title and optional description, status, and tags."
}

func (t *createIdeaTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "description": "Idea title, up to 200 characters"},
			"description": map[string]any{"type": "string", "description": "Optional longer description"},
			"status":      map[string]any{"type": "string", "enum": []string{"draft", "published", "archived"}},
			"tags":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"title"},
	}
}

func (t *createIdeaTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	title := strings.TrimSpace(stringArg(args, "title"))
	if err := ideas.ValidateIdeaTitle(title); err != nil {
		return nil, err
	}
	status := stringArg(args, "status")
	if status == "" {
		status = ideas.StatusDraft
	}
	if !ideas.ValidIdeaStatus(status) {
		return nil, fmt.Errorf("status must be one of draft, published, archived")
	}

	tags := make([]string, 0)
	for _, raw := range stringSliceArg(args, "tags") {
		name, err := ideas.NormalizeTagName(raw)
		if err != nil {
			continue
		}
		tags = append(tags, name)
	}

	row := ideas.Idea{
		UserID:      t.userID,
		Title:       title,
		Description: strings.TrimSpace(stringArg(args, "description")),
		Status:      status,
	}
	if len(tags) > 0 {
		row.Tags = tags
	}

	var created []ideas.Idea
	if err := t.client.From("ideas").Insert(row).Execute(ctx, &created); err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create idea: no row returned")
	}
	return created[0], nil
}

type listIdeasTool struct {
	client *supabase.Client
	userID string
}

func (t *listIdeasTool) Name() string { return "list_ideas" }

func (t *listIdeasTool) Description() string {
	return "List the user's ideas, newest first, optionally filtered by status."
}

func (t *listIdeasTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{"type": "string", "enum": []string{"draft", "published", "archived"}},
			"limit":  map[string]any{"type": "integer", "description": "Maximum results, default 20, max 100"},
		},
	}
}

func (t *listIdeasTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	status := stringArg(args, "status")
	if status != "" && !ideas.ValidIdeaStatus(status) {
		return nil, fmt.Errorf("status must be one of draft, published, archived")
	}
	limit := clampLimit(intArg(args, "limit", 20), 100)

	q := t.client.From("ideas").Select("*").Eq("user_id", t.userID)
	if status != "" {
		q = q.Eq("status", status)
	}
	var rows []ideas.Idea
	if err := q.Order("created_at", false).Limit(limit).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return map[string]any{"ideas": rows, "count": len(rows)}, nil
}

type searchIdeasTool struct {
	client *supabase.Client
	userID string
}

func (t *searchIdeasTool) Name() string { return "search_ideas" }

func (t *searchIdeasTool) Description() string {
	return "Search the user's ideas by text in the title or description."
}

func (t *searchIdeasTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":  map[string]any{"type": "string", "description": "Text to match, case-insensitive"},
			"status": map[string]any{"type": "string", "enum": []string{"draft", "published", "archived"}},
			"limit":  map[string]any{"type": "integer", "description": "Maximum results, default 10, max 50"},
		},
		"required": []string{"query"},
	}
}

func (t *searchIdeasTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	status := stringArg(args, "status")
	if status != "" && !ideas.ValidIdeaStatus(status) {
		return nil, fmt.Errorf("status must be one of draft, published, archived")
	}
	limit := clampLimit(intArg(args, "limit", 10), 50)

	pattern := "%" + query + "%"
	q := t.client.From("ideas").Select("*").
		Or(fmt.Sprintf("title.ilike.%s,description.ilike.%s", pattern, pattern)).
		Eq("user_id", t.userID)
	if status != "" {
		q = q.Eq("status", status)
	}
	var rows []ideas.Idea
	if err := q.Order("created_at", false).Limit(limit).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("search ideas: %w", err)
	}
	return map[string]any{"ideas": rows, "count": len(rows)}, nil
}

type editIdeaTool struct {
	client *supabase.Client
	userID string
}

func (t *editIdeaTool) Name() string { return "edit_idea" }

func (t *editIdeaTool) Description() string {
	return "Update an existing idea's title, description, or status by its ID."
}

func (t *editIdeaTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"idea_id":     map[string]any{"type": "string", "description": "UUID of the idea to update"},
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"status":      map[string]any{"type": "string", "enum": []string{"draft", "published", "archived"}},
		},
		"required": []string{"idea_id"},
	}
}

func (t *editIdeaTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	ideaID := strings.TrimSpace(stringArg(args, "idea_id"))
	if ideaID == "" {
		return nil, fmt.Errorf("idea_id is required")
	}

	patch := map[string]any{}
	if raw, ok := args["title"]; ok {
		title := strings.TrimSpace(fmt.Sprint(raw))
		if err := ideas.ValidateIdeaTitle(title); err != nil {
			return nil, err
		}
		patch["title"] = title
	}
	if raw, ok := args["description"]; ok {
		patch["description"] = strings.TrimSpace(fmt.Sprint(raw))
	}
	if raw, ok := args["status"]; ok {
		status := fmt.Sprint(raw)
		if !ideas.ValidIdeaStatus(status) {
			return nil, fmt.Errorf("status must be one of draft, published, archived")
		}
		patch["status"] = status
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("provide at least one of title, description, status")
	}

	var updated []ideas.Idea
	err := t.client.From("ideas").Update(patch).
		Eq("id", ideaID).Eq("user_id", t.userID).
		Execute(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("edit idea: %w", err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("idea %s not found or not owned by the user", ideaID)
	}
	return updated[0], nil
}

func clampLimit(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}
