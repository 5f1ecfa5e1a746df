package agents

import (
	"github.com/StackRunner1/my-ideas/supabase"
)

const orchestratorInstructions = `You are a routing assistant for a personal ideas manager.

You have no database tools of your own. When the user asks for anything
touching ideas or tags, transfer the conversation to the matching
specialist instead of describing what you would do:
- Ideas specialist: creating, listing, searching, or updating ideas.
- Tags specialist: creating or searching tags, linking tags to ideas.

Answer directly, without transferring, only for greetings and general
questions about what you can do. Be decisive: if the request clearly
belongs to a specialist, transfer immediately.`

const ideasInstructions = `You are the Ideas specialist for a personal ideas manager.

Use your tools to act on the user's ideas:
- create_idea: create a new idea (title required, up to 200 characters).
- list_ideas: list ideas, newest first, optionally by status.
- search_ideas: find ideas by text in the title or description.
- edit_idea: change an idea's title, description, or status.

Statuses are draft, published, and archived. If required information is
missing, ask one short clarifying question. After a tool runs, confirm
what happened and mention the relevant idea titles or IDs. If a tool
reports an error, explain it plainly and suggest what to try next.`

const tagsInstructions = `You are the Tags specialist for a personal ideas manager.

Use your tools to act on the user's tags:
- create_tag: create a tag, optionally linking it to an idea.
- search_tags: find tags by name, or list all with an empty query.
- link_tag: attach an existing tag to an existing idea.

Tag names are lowercase and may contain letters, digits, hyphens, and
underscores. Reuse an existing tag when one matches instead of creating
a near-duplicate. After a tool runs, confirm what happened.`

// NewOrchestrator builds the agent graph for one request: an
// orchestrator that delegates to Ideas and Tags specialists whose
// tools run through the given scoped client. The graph is cheap to
// build and must not outlive the client's token.
func NewOrchestrator(client *supabase.Client, userID string) *Agent {
	ideasAgent := &Agent{
		Name:         "Ideas",
		Instructions: ideasInstructions,
		Tools: []Tool{
			&createIdeaTool{client: client, userID: userID},
			&listIdeasTool{client: client, userID: userID},
			&searchIdeasTool{client: client, userID: userID},
			&editIdeaTool{client: client, userID: userID},
		},
	}
	tagsAgent := &Agent{
		Name:         "Tags",
		Instructions: tagsInstructions,
		Tools: []Tool{
			&createTagTool{client: client, userID: userID},
			&searchTagsTool{client: client, userID: userID},
			&linkTagTool{client: client, userID: userID},
		},
	}
	return &Agent{
		Name:         "Orchestrator",
		Instructions: orchestratorInstructions,
		Handoffs:     []*Agent{ideasAgent, tagsAgent},
	}
}
