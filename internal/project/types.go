// Package project defines the persisted shape of a PRD project: the wizard's
// accumulated state snapshotted to the store.
package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prdforge/prdforge/internal/gateway/prompt"
)

// QuestionType classifies how a clarification question is answered.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionOpen     QuestionType = "open"
)

// Question is one clarification question generated during requirement analysis.
type Question struct {
	ID       string       `json:"id"`
	Category string       `json:"category,omitempty"` // background/feature/interaction/output
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options"` // empty for open-ended questions
}

// Answer holds the user's response to a question: a single value or a
// multi-select set. On the wire a single answer is a JSON string and a
// multi-select answer is a JSON array.
type Answer struct {
	Value  string
	Values []string
	Multi  bool
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Multi {
		if a.Values == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Answer{Value: s}
		return nil
	}
	var vs []string
	if err := json.Unmarshal(data, &vs); err == nil {
		*a = Answer{Values: vs, Multi: true}
		return nil
	}
	return fmt.Errorf("answer must be a string or an array of strings")
}

// Empty reports whether the answer carries no content.
func (a Answer) Empty() bool {
	if a.Multi {
		return len(a.Values) == 0
	}
	return a.Value == ""
}

// PageFeature is one feature planned for a page.
type PageFeature struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Page is one planned application page. Pages are never physically removed
// once generated; Deleted marks them out of the active plan while keeping
// the record for the final document's narrative.
type Page struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	URLPath      string        `json:"urlPath"`
	Description  string        `json:"description,omitempty"`
	Features     []PageFeature `json:"features"`
	Layout       string        `json:"layout"`
	Notes        string        `json:"notes,omitempty"`
	Deleted      bool          `json:"deleted,omitempty"`
	DeleteReason string        `json:"deleteReason,omitempty"`
}

// ChatMessage is one turn of a document-adjustment conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Project is the persisted snapshot of a wizard session.
type Project struct {
	ID          string            `json:"id"`
	OwnerKey    string            `json:"-"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Requirement string            `json:"requirement"`
	InitialPRD  string            `json:"initialPRD"`
	RefinedPRD  string            `json:"refinedPRD"`
	FinalPRD    string            `json:"finalPRD"`
	Pages       []Page            `json:"pages"`
	Questions   []Question        `json:"questions"`
	Answers     map[string]Answer `json:"answers"`

	// ChatHistories keys adjustment conversations by document
	// ("initial", "refined", "final").
	ChatHistories map[string][]ChatMessage `json:"chatHistories"`

	TechStack *prompt.TechStack `json:"techStack,omitempty"`
	Mode      prompt.PRDMode    `json:"mode"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Patch carries the updatable fields of a project; nil fields are left
// unchanged.
type Patch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Requirement *string            `json:"requirement,omitempty"`
	InitialPRD  *string            `json:"initialPRD,omitempty"`
	RefinedPRD  *string            `json:"refinedPRD,omitempty"`
	FinalPRD    *string            `json:"finalPRD,omitempty"`
	Pages       *[]Page            `json:"pages,omitempty"`
	Questions   *[]Question        `json:"questions,omitempty"`
	Answers     *map[string]Answer `json:"answers,omitempty"`

	ChatHistories *map[string][]ChatMessage `json:"chatHistories,omitempty"`

	TechStack *prompt.TechStack `json:"techStack,omitempty"`
	Mode      *prompt.PRDMode   `json:"mode,omitempty"`
}

// Apply copies the patch's non-nil fields onto p.
func (patch Patch) Apply(p *Project) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Requirement != nil {
		p.Requirement = *patch.Requirement
	}
	if patch.InitialPRD != nil {
		p.InitialPRD = *patch.InitialPRD
	}
	if patch.RefinedPRD != nil {
		p.RefinedPRD = *patch.RefinedPRD
	}
	if patch.FinalPRD != nil {
		p.FinalPRD = *patch.FinalPRD
	}
	if patch.Pages != nil {
		p.Pages = *patch.Pages
	}
	if patch.Questions != nil {
		p.Questions = *patch.Questions
	}
	if patch.Answers != nil {
		p.Answers = *patch.Answers
	}
	if patch.ChatHistories != nil {
		p.ChatHistories = *patch.ChatHistories
	}
	if patch.TechStack != nil {
		p.TechStack = patch.TechStack
	}
	if patch.Mode != nil {
		p.Mode = *patch.Mode
	}
}

// ActivePages returns the pages not marked deleted.
func (p *Project) ActivePages() []Page {
	active := make([]Page, 0, len(p.Pages))
	for _, page := range p.Pages {
		if !page.Deleted {
			active = append(active, page)
		}
	}
	return active
}

// DeletedPages returns the soft-deleted pages.
func (p *Project) DeletedPages() []Page {
	deleted := make([]Page, 0)
	for _, page := range p.Pages {
		if page.Deleted {
			deleted = append(deleted, page)
		}
	}
	return deleted
}

// DefaultTechStack is the locked stack preselected for new sessions.
var DefaultTechStack = prompt.TechStack{
	Name:         "Next.js + Firebase Admin",
	Stack:        []string{"Next.js", "Firebase Admin SDK", "Auth.js", "Google OAuth"},
	ExcludedTech: []string{"Firebase Client SDK", "Firebase Auth", "Firebase Security Rules"},
	Locked:       true,
}
