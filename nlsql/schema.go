package nlsql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/StackRunner1/my-ideas/llm"
)

// schemaContext documents the queryable tables for the model. Kept
// static and in sync with the migrations; row access is enforced by
// RLS regardless of what the model generates.
const schemaContext = `Tables:

ideas (the user's ideas)
  id          uuid primary key
  user_id     uuid, owner (rows are filtered by row level security)
  title       text
  description text
  status      text, one of: draft, published, archived
  tags        text[], denormalized tag names
  created_at  timestamptz
  updated_at  timestamptz

tags (the user's tags)
  id         uuid primary key
  user_id    uuid, owner
  name       text, unique per user
  created_at timestamptz

idea_tags (link table)
  idea_id uuid references ideas(id)
  tag_id  uuid references tags(id)

Notes:
- Row level security scopes every query to the authenticated user; do
  not add user_id filters yourself.
- Use PostgreSQL syntax and functions.`

const generationSystemPrompt = `You convert natural-language questions about a personal ideas database into SQL.

%s

Rules:
1. Generate exactly one SELECT statement. Never INSERT, UPDATE, DELETE, DROP, ALTER, or CREATE.
2. Always include a LIMIT clause, at most %d rows.
3. No comments, no semicolons, no UNION.
4. If the question asks for anything unsafe or impossible with this schema, set "safety_check" to false and explain why.

Answer with a JSON object:
{"generated_sql": "...", "explanation": "...", "safety_check": true}`

// Generation is the model's parsed answer.
type Generation struct {
	SQL         string `json:"generated_sql"`
	Explanation string `json:"explanation"`
	SafetyCheck bool   `json:"safety_check"`
}

// GenerationMessages builds the prompt for one question. maxRows is
// the row cap the model is told to respect.
func GenerationMessages(question string, maxRows int) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: fmt.Sprintf(generationSystemPrompt, schemaContext, maxRows)},
		{Role: "user", Content: question},
	}
}

// ParseGeneration decodes the model's JSON answer, tolerating a
// markdown code fence around it.
func ParseGeneration(content string) (*Generation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var gen Generation
	if err := json.Unmarshal([]byte(content), &gen); err != nil {
		return nil, fmt.Errorf("decode generation: %w", err)
	}
	if strings.TrimSpace(gen.SQL) == "" && gen.SafetyCheck {
		return nil, fmt.Errorf("generation missing sql")
	}
	return &gen, nil
}
