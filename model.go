package ideas

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Idea statuses accepted by the API and the agent tools.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

const (
	maxTitleLength   = 200
	maxTagNameLength = 50
)

// Idea defines a public type used by the ideas engine APIs.
//
// Idea instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type Idea struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Tag defines a public type used by the ideas engine APIs.
//
// Tag instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type Tag struct {
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// IdeaTag defines a public type used by the ideas engine APIs.
//
// IdeaTag instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type IdeaTag struct {
	IdeaID string `json:"idea_id"`
	TagID  string `json:"tag_id"`
}

// ValidIdeaStatus describes the valid idea status operation and its observable behavior.
//
// ValidIdeaStatus may return an error when input validation, dependency calls, or security checks fail.
// ValidIdeaStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ValidIdeaStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// ValidateIdeaTitle describes the validate idea title operation and its observable behavior.
//
// ValidateIdeaTitle may return an error when input validation, dependency calls, or security checks fail.
// ValidateIdeaTitle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ValidateIdeaTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be %d characters or less", ErrValidation, maxTitleLength)
	}
	return nil
}

var tagNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeTagName describes the normalize tag name operation and its observable behavior.
//
// NormalizeTagName may return an error when input validation, dependency calls, or security checks fail.
// NormalizeTagName does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeTagName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: tag name is required", ErrValidation)
	}
	if len(name) > maxTagNameLength {
		return "", fmt.Errorf("%w: tag name must be %d characters or less", ErrValidation, maxTagNameLength)
	}
	if !tagNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: tag name may only contain lowercase letters, digits, hyphens, and underscores", ErrValidation)
	}
	return name, nil
}
