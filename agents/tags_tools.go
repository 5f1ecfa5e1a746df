package agents

import (
	"context"
	"fmt"
	"strings"

	ideas "github.com/StackRunner1/my-ideas"
	"github.com/StackRunner1/my-ideas/supabase"
)

type createTagTool struct {
	client *supabase.Client
	userID string
}

func (t *createTagTool) Name() string { return "create_tag" }

func (t *createTagTool) Description() string {
	return "Create a new tag, optionally linking it to an idea by ID."
}

func (t *createTagTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string", "description": "Tag name: lowercase letters, digits, hyphens, underscores"},
			"idea_id": map[string]any{"type": "string", "description": "Optional UUID of an idea to link the tag to"},
		},
		"required": []string{"name"},
	}
}

func (t *createTagTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	name, err := ideas.NormalizeTagName(stringArg(args, "name"))
	if err != nil {
		return nil, err
	}
	ideaID := strings.TrimSpace(stringArg(args, "idea_id"))

	if ideaID != "" {
		// Verify the idea is visible before creating the tag so a bad
		// ID does not leave an orphan tag behind.
		var found []ideas.Idea
		err := t.client.From("ideas").Select("id").
			Eq("id", ideaID).Eq("user_id", t.userID).
			Execute(ctx, &found)
		if err != nil {
			return nil, fmt.Errorf("verify idea: %w", err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("idea %s not found or not owned by the user", ideaID)
		}
	}

	var created []ideas.Tag
	err = t.client.From("tags").Insert(ideas.Tag{UserID: t.userID, Name: name}).Execute(ctx, &created)
	if err != nil {
		if supabase.IsConflict(err) {
			return nil, fmt.Errorf("tag %q already exists", name)
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create tag: no row returned")
	}
	tag := created[0]

	result := map[string]any{"tag": tag, "linked": false}
	if ideaID != "" {
		link := ideas.IdeaTag{IdeaID: ideaID, TagID: tag.ID}
		if err := t.client.From("idea_tags").Insert(link).Execute(ctx, nil); err != nil {
			result["warning"] = fmt.Sprintf("tag created but could not be linked to idea %s", ideaID)
		} else {
			result["linked"] = true
			result["idea_id"] = ideaID
		}
	}
	return result, nil
}

type searchTagsTool struct {
	client *supabase.Client
	userID string
}

func (t *searchTagsTool) Name() string { return "search_tags" }

func (t *searchTagsTool) Description() string {
	return "Search the user's tags by name. An empty query lists all tags."
}

func (t *searchTagsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Name fragment to match, case-insensitive"},
			"limit": map[string]any{"type": "integer", "description": "Maximum results, default 20, max 100"},
		},
	}
}

func (t *searchTagsTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	limit := clampLimit(intArg(args, "limit", 20), 100)

	q := t.client.From("tags").Select("*").Eq("user_id", t.userID)
	if query != "" {
		q = q.Ilike("name", "%"+query+"%")
	}
	var rows []ideas.Tag
	if err := q.Order("name", true).Limit(limit).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return map[string]any{"tags": rows, "count": len(rows)}, nil
}

type linkTagTool struct {
	client *supabase.Client
	userID string
}

func (t *linkTagTool) Name() string { return "link_tag" }

func (t *linkTagTool) Description() string {
	return "Link an existing tag to an existing idea by their IDs."
}

func (t *linkTagTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"idea_id": map[string]any{"type": "string"},
			"tag_id":  map[string]any{"type": "string"},
		},
		"required": []string{"idea_id", "tag_id"},
	}
}

func (t *linkTagTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	ideaID := strings.TrimSpace(stringArg(args, "idea_id"))
	tagID := strings.TrimSpace(stringArg(args, "tag_id"))
	if ideaID == "" || tagID == "" {
		return nil, fmt.Errorf("idea_id and tag_id are required")
	}

	link := ideas.IdeaTag{IdeaID: ideaID, TagID: tagID}
	if err := t.client.From("idea_tags").Insert(link).Execute(ctx, nil); err != nil {
		if supabase.IsConflict(err) {
			return map[string]any{"idea_id": ideaID, "tag_id": tagID, "already_linked": true}, nil
		}
		return nil, fmt.Errorf("link tag: %w", err)
	}
	return map[string]any{"idea_id": ideaID, "tag_id": tagID, "linked": true}, nil
}
