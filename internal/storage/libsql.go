package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prdforge/prdforge/internal/gateway/prompt"
	"github.com/prdforge/prdforge/internal/project"
	_ "github.com/tursodatabase/go-libsql"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	owner_key TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	requirement TEXT NOT NULL DEFAULT '',
	initial_prd TEXT NOT NULL DEFAULT '',
	refined_prd TEXT NOT NULL DEFAULT '',
	final_prd TEXT NOT NULL DEFAULT '',
	pages TEXT NOT NULL DEFAULT '[]',
	questions TEXT NOT NULL DEFAULT '[]',
	answers TEXT NOT NULL DEFAULT '{}',
	chat_histories TEXT NOT NULL DEFAULT '{}',
	tech_stack TEXT,
	mode TEXT NOT NULL DEFAULT 'normal',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_key, updated_at);
`

// LibsqlProjectStore implements ProjectStore using SQLite/libsql.
type LibsqlProjectStore struct {
	db *sql.DB
}

// NewLibsqlProjectStore opens (creating if needed) the project database at dbPath.
func NewLibsqlProjectStore(dbPath string) (*LibsqlProjectStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &LibsqlProjectStore{db: db}, nil
}

// Create stores a new project and assigns its id.
func (s *LibsqlProjectStore) Create(ctx context.Context, p *project.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	pages, questions, answers, chatHistories, techStack, err := marshalDocumentFields(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO projects
		(id, owner_key, name, description, requirement, initial_prd, refined_prd, final_prd,
		 pages, questions, answers, chat_histories, tech_stack, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.OwnerKey, p.Name, p.Description, p.Requirement,
		p.InitialPRD, p.RefinedPRD, p.FinalPRD,
		pages, questions, answers, chatHistories, techStack, string(p.Mode),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get returns the project if it exists and is owned by ownerKey.
func (s *LibsqlProjectStore) Get(ctx context.Context, id, ownerKey string) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_key, name, description, requirement, initial_prd, refined_prd, final_prd,
		        pages, questions, answers, chat_histories, tech_stack, mode, created_at, updated_at
		 FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	if p.OwnerKey != ownerKey {
		return nil, ErrForbidden
	}
	return p, nil
}

// Update applies the patch to the project and stamps UpdatedAt.
func (s *LibsqlProjectStore) Update(ctx context.Context, id, ownerKey string, patch project.Patch) (*project.Project, error) {
	p, err := s.Get(ctx, id, ownerKey)
	if err != nil {
		return nil, err
	}

	patch.Apply(p)
	p.UpdatedAt = time.Now().UTC()

	pages, questions, answers, chatHistories, techStack, err := marshalDocumentFields(p)
	if err != nil {
		return nil, err
	}

	query := `UPDATE projects SET
		name = ?, description = ?, requirement = ?, initial_prd = ?, refined_prd = ?, final_prd = ?,
		pages = ?, questions = ?, answers = ?, chat_histories = ?, tech_stack = ?, mode = ?, updated_at = ?
		WHERE id = ?`

	_, err = s.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Requirement, p.InitialPRD, p.RefinedPRD, p.FinalPRD,
		pages, questions, answers, chatHistories, techStack, string(p.Mode), p.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// Delete removes the project.
func (s *LibsqlProjectStore) Delete(ctx context.Context, id, ownerKey string) error {
	if _, err := s.Get(ctx, id, ownerKey); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// List returns the caller's projects, most recently updated first.
func (s *LibsqlProjectStore) List(ctx context.Context, ownerKey string) ([]*project.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_key, name, description, requirement, initial_prd, refined_prd, final_prd,
		        pages, questions, answers, chat_histories, tech_stack, mode, created_at, updated_at
		 FROM projects WHERE owner_key = ? ORDER BY updated_at DESC`, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Close closes the underlying database.
func (s *LibsqlProjectStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var p project.Project
	var pages, questions, answers, chatHistories string
	var techStack sql.NullString
	var mode string

	err := row.Scan(&p.ID, &p.OwnerKey, &p.Name, &p.Description, &p.Requirement,
		&p.InitialPRD, &p.RefinedPRD, &p.FinalPRD,
		&pages, &questions, &answers, &chatHistories, &techStack, &mode,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	if err := json.Unmarshal([]byte(pages), &p.Pages); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &p.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &p.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	if err := json.Unmarshal([]byte(chatHistories), &p.ChatHistories); err != nil {
		return nil, fmt.Errorf("failed to decode chat histories: %w", err)
	}
	if techStack.Valid && techStack.String != "" {
		var stack prompt.TechStack
		if err := json.Unmarshal([]byte(techStack.String), &stack); err != nil {
			return nil, fmt.Errorf("failed to decode tech stack: %w", err)
		}
		p.TechStack = &stack
	}
	p.Mode = prompt.PRDMode(mode)
	return &p, nil
}

func marshalDocumentFields(p *project.Project) (pages, questions, answers, chatHistories string, techStack any, err error) {
	if p.Pages == nil {
		p.Pages = []project.Page{}
	}
	if p.Questions == nil {
		p.Questions = []project.Question{}
	}
	if p.Answers == nil {
		p.Answers = map[string]project.Answer{}
	}
	if p.ChatHistories == nil {
		p.ChatHistories = map[string][]project.ChatMessage{}
	}
	if p.Mode == "" {
		p.Mode = prompt.PRDModeNormal
	}

	pagesBytes, err := json.Marshal(p.Pages)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to marshal pages: %w", err)
	}
	questionsBytes, err := json.Marshal(p.Questions)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	answersBytes, err := json.Marshal(p.Answers)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to marshal answers: %w", err)
	}
	historyBytes, err := json.Marshal(p.ChatHistories)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to marshal chat histories: %w", err)
	}

	var stackValue any
	if p.TechStack != nil {
		stackBytes, err := json.Marshal(p.TechStack)
		if err != nil {
			return "", "", "", "", nil, fmt.Errorf("failed to marshal tech stack: %w", err)
		}
		stackValue = string(stackBytes)
	}

	return string(pagesBytes), string(questionsBytes), string(answersBytes), string(historyBytes), stackValue, nil
}
