package wizard

import (
	"fmt"
	"time"

	"github.com/prdforge/prdforge/internal/gateway/prompt"
	"github.com/prdforge/prdforge/internal/project"
)

// Document identifies one of the three PRD documents a session accumulates.
type Document string

const (
	DocInitial Document = "initial"
	DocRefined Document = "refined"
	DocFinal   Document = "final"
)

// Session is the in-memory state of one wizard run: the user's requirement,
// every generated artifact, and the position in the pipeline.
type Session struct {
	ProjectID   string
	Name        string
	Requirement string

	Stage          Stage
	MaxReachedStep Step

	InitialPRD string
	RefinedPRD string
	FinalPRD   string

	Questions []project.Question
	Answers   map[string]project.Answer
	Pages     []project.Page

	TechStack *prompt.TechStack
	PRDMode   prompt.PRDMode

	ChatHistories map[Document][]project.ChatMessage

	LastSavedAt time.Time
}

// NewSession returns a fresh session with the default tech stack selected.
func NewSession() *Session {
	stack := project.DefaultTechStack
	return &Session{
		Stage:         StageInitial,
		Answers:       make(map[string]project.Answer),
		ChatHistories: make(map[Document][]project.ChatMessage),
		TechStack:     &stack,
		PRDMode:       prompt.PRDModeNormal,
	}
}

// Document returns the named document's current content.
func (s *Session) Document(doc Document) string {
	switch doc {
	case DocInitial:
		return s.InitialPRD
	case DocRefined:
		return s.RefinedPRD
	default:
		return s.FinalPRD
	}
}

// SetDocument replaces the named document's content.
func (s *Session) SetDocument(doc Document, content string) {
	switch doc {
	case DocInitial:
		s.InitialPRD = content
	case DocRefined:
		s.RefinedPRD = content
	default:
		s.FinalPRD = content
	}
}

// Snapshot produces the persistable form of the session.
func (s *Session) Snapshot() *project.Project {
	return &project.Project{
		ID:            s.ProjectID,
		Name:          s.Name,
		Requirement:   s.Requirement,
		InitialPRD:    s.InitialPRD,
		RefinedPRD:    s.RefinedPRD,
		FinalPRD:      s.FinalPRD,
		Pages:         s.Pages,
		Questions:     s.Questions,
		Answers:       s.Answers,
		ChatHistories: s.storedHistories(),
		TechStack:     s.TechStack,
		Mode:          s.PRDMode,
	}
}

// storedHistories converts the chat histories to their persisted keying.
func (s *Session) storedHistories() map[string][]project.ChatMessage {
	histories := make(map[string][]project.ChatMessage, len(s.ChatHistories))
	for doc, turns := range s.ChatHistories {
		histories[string(doc)] = turns
	}
	return histories
}

// patch returns the updatable fields of the session as a store patch.
func (s *Session) patch() *project.Patch {
	name := s.Name
	requirement := s.Requirement
	initial := s.InitialPRD
	refined := s.RefinedPRD
	final := s.FinalPRD
	pages := s.Pages
	questions := s.Questions
	answers := s.Answers
	histories := s.storedHistories()
	mode := s.PRDMode
	return &project.Patch{
		Name:          &name,
		Requirement:   &requirement,
		InitialPRD:    &initial,
		RefinedPRD:    &refined,
		FinalPRD:      &final,
		Pages:         &pages,
		Questions:     &questions,
		Answers:       &answers,
		ChatHistories: &histories,
		TechStack:     s.TechStack,
		Mode:          &mode,
	}
}

// LoadProject replaces the session state with a stored project, deriving the
// stage from which documents are populated.
func (s *Session) LoadProject(p *project.Project) {
	s.ProjectID = p.ID
	s.Name = p.Name
	s.Requirement = p.Requirement
	s.InitialPRD = p.InitialPRD
	s.RefinedPRD = p.RefinedPRD
	s.FinalPRD = p.FinalPRD
	s.Pages = p.Pages
	s.Questions = p.Questions
	s.Answers = p.Answers
	if s.Answers == nil {
		s.Answers = make(map[string]project.Answer)
	}
	s.ChatHistories = make(map[Document][]project.ChatMessage, len(p.ChatHistories))
	for doc, turns := range p.ChatHistories {
		s.ChatHistories[Document(doc)] = turns
	}
	if p.TechStack != nil {
		s.TechStack = p.TechStack
	}
	if p.Mode != "" {
		s.PRDMode = p.Mode
	}
	s.Stage = StageForProject(p)
	s.MaxReachedStep = StepOf(s.Stage)
}

// SavedAgo formats how long ago the session was last persisted, or an empty
// string if it never was.
func (s *Session) SavedAgo(now time.Time) string {
	if s.LastSavedAt.IsZero() {
		return ""
	}
	elapsed := now.Sub(s.LastSavedAt)
	switch {
	case elapsed < time.Minute:
		return "saved just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("saved %d minutes ago", int(elapsed.Minutes()))
	default:
		return fmt.Sprintf("saved %d hours ago", int(elapsed.Hours()))
	}
}
