// Package wizard drives the staged PRD generation pipeline: a session-owned
// state machine that walks a product idea through drafting, clarification,
// refinement, page planning, and final assembly.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prdforge/prdforge/internal/extract"
	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/gateway/prompt"
	"github.com/prdforge/prdforge/internal/llm"
	"github.com/prdforge/prdforge/internal/project"
	"github.com/prdforge/prdforge/internal/storage"
)

// Generator runs generation calls. Implemented in-process by the gateway and
// remotely by the HTTP client.
type Generator interface {
	Complete(ctx context.Context, req gateway.Request) (string, error)
	Stream(ctx context.Context, req gateway.Request) (<-chan gateway.Fragment, error)
}

// ProjectAPI persists project snapshots on behalf of the session.
type ProjectAPI interface {
	Create(ctx context.Context, p *project.Project) (*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	Update(ctx context.Context, id string, patch *project.Patch) (*project.Project, error)
	Delete(ctx context.Context, id string) error
}

// Progress reports completion of a multi-item generation pass.
type Progress struct {
	Current int
	Total   int
	Message string
}

// Sink receives the full accumulated document text after every streamed
// chunk. Content is replaced wholesale, never appended, so redelivered
// chunks cannot duplicate text downstream.
type Sink func(full string)

// Workflow owns a session and executes its stage transitions. All methods
// are safe for use from a single goroutine; concurrent generation of the
// same kind is prevented by the transient generating stages themselves.
type Workflow struct {
	session  *Session
	gen      Generator
	projects ProjectAPI
	saver    *Autosaver
	logger   *log.Logger

	// persistence is disabled once the store rejects the caller; the
	// wizard keeps working in-memory only.
	persistDisabled bool
}

// Options configures a Workflow.
type Options struct {
	Generator Generator
	Projects  ProjectAPI
	Logger    *log.Logger
	Autosave  AutosaveConfig
}

// New creates a workflow over a fresh session.
func New(opts Options) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	w := &Workflow{
		session:  NewSession(),
		gen:      opts.Generator,
		projects: opts.Projects,
		logger:   logger,
	}
	w.saver = NewAutosaver(opts.Autosave, w.save, logger)
	return w
}

// Session exposes the current session state for rendering.
func (w *Workflow) Session() *Session {
	return w.session
}

// Close stops the autosave scheduler.
func (w *Workflow) Close() {
	w.saver.Stop()
}

// Start records the product requirement. It is the only input needed to
// begin the pipeline.
func (w *Workflow) Start(requirement string) error {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return fmt.Errorf("requirement must not be empty")
	}
	w.session.Requirement = requirement
	return nil
}

// NavigateTo moves the session backward to a previously-reached step.
// Forward navigation past the high-water mark is rejected.
func (w *Workflow) NavigateTo(step Step) error {
	if step > w.session.MaxReachedStep {
		return ErrForwardNavigation
	}
	w.session.Stage = stableStageFor(step)
	return nil
}

// Reset discards the session and starts over.
func (w *Workflow) Reset() {
	w.session = NewSession()
}

// Load replaces the session with a stored project.
func (w *Workflow) Load(ctx context.Context, id string) error {
	if w.projects == nil {
		return fmt.Errorf("no project store configured")
	}
	p, err := w.projects.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	w.session = NewSession()
	w.session.LoadProject(p)
	return nil
}

// GenerateInitialPRD streams a first draft from the requirement. On success
// the session advances; on failure it reverts to where it was.
func (w *Workflow) GenerateInitialPRD(ctx context.Context, sink Sink) error {
	if w.session.Requirement == "" {
		return fmt.Errorf("requirement must be set before generating")
	}
	return w.streamDocument(ctx, streamOp{
		generating: StageGeneratingInitial,
		success:    StageInitialPRD,
		doc:        DocInitial,
		mode:       prompt.ModeGenerateInitialPRD,
		messages: []llm.Message{
			{Role: "user", Content: w.session.Requirement},
		},
		sink:      sink,
		afterSave: true,
	})
}

// GenerateQuestions asks the model to analyze the draft and produce
// clarification questions.
func (w *Workflow) GenerateQuestions(ctx context.Context) error {
	prior := w.session.Stage
	w.session.Stage = StageGeneratingQuestions

	questions, err := w.fetchQuestions(ctx)
	if err != nil {
		w.session.Stage = prior
		return err
	}

	w.session.Questions = reindexQuestions(questions)
	w.advance(StageQuestioning)
	return nil
}

// GenerateMoreQuestions appends additional questions without changing
// stage. Ids are re-indexed across the whole list to avoid collisions.
func (w *Workflow) GenerateMoreQuestions(ctx context.Context) error {
	if w.session.Stage != StageQuestioning {
		return fmt.Errorf("more questions can only be requested while questioning")
	}

	questions, err := w.fetchQuestions(ctx)
	if err != nil {
		return err
	}

	w.session.Questions = reindexQuestions(append(w.session.Questions, questions...))
	w.saver.NoteEdit()
	return nil
}

func (w *Workflow) fetchQuestions(ctx context.Context) ([]project.Question, error) {
	text, err := w.gen.Complete(ctx, w.request(prompt.ModeAnalyze, []llm.Message{
		{Role: "user", Content: "Requirement:\n" + w.session.Requirement +
			"\n\nDraft PRD:\n" + w.session.InitialPRD},
	}))
	if err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}

	var payload struct {
		Questions []project.Question `json:"questions"`
	}
	outcome, err := extract.JSON(text, &payload)
	if outcome == extract.Failed {
		return nil, fmt.Errorf("question list unparseable: %w", err)
	}
	if outcome == extract.RecoveredPartial {
		w.logger.Warn("question list recovered from truncated output",
			"questions", len(payload.Questions))
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("model returned no questions")
	}
	return payload.Questions, nil
}

// reindexQuestions rewrites question ids to q1..qN so appended batches never
// collide with earlier ones. Answers are keyed by id, so callers reindex
// before any answers exist for the new batch.
func reindexQuestions(questions []project.Question) []project.Question {
	for i := range questions {
		questions[i].ID = fmt.Sprintf("q%d", i+1)
	}
	return questions
}

// SetAnswer records the user's answer to a question.
func (w *Workflow) SetAnswer(questionID string, answer project.Answer) error {
	if !w.hasQuestion(questionID) {
		return fmt.Errorf("unknown question id: %q", questionID)
	}
	w.session.Answers[questionID] = answer
	w.saver.NoteEdit()
	return nil
}

func (w *Workflow) hasQuestion(id string) bool {
	for _, q := range w.session.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// GenerateRefinedPRD folds the question answers back into the draft.
func (w *Workflow) GenerateRefinedPRD(ctx context.Context, sink Sink) error {
	return w.streamDocument(ctx, streamOp{
		generating: StageGeneratingRefined,
		success:    StageRefinedPRD,
		doc:        DocRefined,
		mode:       prompt.ModeGenerateRefinedPRD,
		messages: []llm.Message{
			{Role: "user", Content: "Requirement:\n" + w.session.Requirement +
				"\n\nDraft PRD:\n" + w.session.InitialPRD +
				"\n\nClarifications:\n" + w.answersDigest()},
		},
		sink: sink,
	})
}

// answersDigest renders the answered questions as a readable Q/A list.
func (w *Workflow) answersDigest() string {
	var sb strings.Builder
	for _, q := range w.session.Questions {
		answer, ok := w.session.Answers[q.ID]
		if !ok || answer.Empty() {
			continue
		}
		sb.WriteString("Q: ")
		sb.WriteString(q.Question)
		sb.WriteString("\nA: ")
		if answer.Multi {
			sb.WriteString(strings.Join(answer.Values, ", "))
		} else {
			sb.WriteString(answer.Value)
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(no clarifications provided)"
	}
	return sb.String()
}

// GeneratePagesList derives the application's page plan from the refined
// document.
func (w *Workflow) GeneratePagesList(ctx context.Context) error {
	prior := w.session.Stage
	w.session.Stage = StageGeneratingPages

	text, err := w.gen.Complete(ctx, w.request(prompt.ModeGeneratePagesList, []llm.Message{
		{Role: "user", Content: w.session.RefinedPRD},
	}))
	if err != nil {
		w.session.Stage = prior
		return fmt.Errorf("page list generation failed: %w", err)
	}

	var payload struct {
		Pages []project.Page `json:"pages"`
	}
	outcome, perr := extract.JSON(text, &payload)
	if outcome == extract.Failed {
		w.session.Stage = prior
		return fmt.Errorf("page list unparseable: %w", perr)
	}
	if outcome == extract.RecoveredPartial {
		w.logger.Warn("page list recovered from truncated output", "pages", len(payload.Pages))
	}
	if len(payload.Pages) == 0 {
		w.session.Stage = prior
		return fmt.Errorf("model returned no pages")
	}

	for i := range payload.Pages {
		if payload.Pages[i].ID == "" {
			payload.Pages[i].ID = uuid.NewString()
		}
	}
	w.session.Pages = payload.Pages
	w.advance(StageEditingPages)
	return nil
}

// AddPage appends a user-authored page to the plan.
func (w *Workflow) AddPage(page project.Page) string {
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	w.session.Pages = append(w.session.Pages, page)
	w.saver.NoteEdit()
	return page.ID
}

// UpdatePage replaces a page's editable fields.
func (w *Workflow) UpdatePage(id string, update project.Page) error {
	for i := range w.session.Pages {
		if w.session.Pages[i].ID != id {
			continue
		}
		update.ID = id
		update.Deleted = w.session.Pages[i].Deleted
		update.DeleteReason = w.session.Pages[i].DeleteReason
		w.session.Pages[i] = update
		w.saver.NoteEdit()
		return nil
	}
	return fmt.Errorf("unknown page id: %q", id)
}

// SoftDeletePage marks a page removed with a reason the final document will
// cite. The record itself is kept.
func (w *Workflow) SoftDeletePage(id, reason string) error {
	for i := range w.session.Pages {
		if w.session.Pages[i].ID != id {
			continue
		}
		w.session.Pages[i].Deleted = true
		w.session.Pages[i].DeleteReason = reason
		w.saver.NoteEdit()
		return nil
	}
	return fmt.Errorf("unknown page id: %q", id)
}

// RestorePage clears a page's deleted mark.
func (w *Workflow) RestorePage(id string) error {
	for i := range w.session.Pages {
		if w.session.Pages[i].ID != id {
			continue
		}
		w.session.Pages[i].Deleted = false
		w.session.Pages[i].DeleteReason = ""
		w.saver.NoteEdit()
		return nil
	}
	return fmt.Errorf("unknown page id: %q", id)
}

// ConfirmPages locks the page plan and generates details for each active
// page, strictly one at a time. Each page is updated as soon as its details
// arrive so partial completion is visible; onProgress is invoked before each
// page's request.
func (w *Workflow) ConfirmPages(ctx context.Context, onProgress func(Progress)) error {
	active := w.activePageIndexes()
	if len(active) == 0 {
		return fmt.Errorf("no active pages to detail")
	}

	prior := w.session.Stage
	w.session.Stage = StageGeneratingDetails

	for i, idx := range active {
		page := w.session.Pages[idx]
		if onProgress != nil {
			onProgress(Progress{
				Current: i + 1,
				Total:   len(active),
				Message: fmt.Sprintf("Generating details for %s", page.Name),
			})
		}

		details, err := w.fetchPageDetails(ctx, page)
		if err != nil {
			w.session.Stage = prior
			return fmt.Errorf("details for page %q: %w", page.Name, err)
		}
		w.session.Pages[idx].Features = details.Features
		w.session.Pages[idx].Layout = details.Layout
	}

	w.advance(StagePagesComplete)
	return nil
}

func (w *Workflow) activePageIndexes() []int {
	var idxs []int
	for i, page := range w.session.Pages {
		if !page.Deleted {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

type pageDetails struct {
	Features []project.PageFeature `json:"features"`
	Layout   string                `json:"layout"`
}

func (w *Workflow) fetchPageDetails(ctx context.Context, page project.Page) (*pageDetails, error) {
	var sb strings.Builder
	sb.WriteString("Page: ")
	sb.WriteString(page.Name)
	sb.WriteString(" (")
	sb.WriteString(page.URLPath)
	sb.WriteString(")\n")
	if page.Description != "" {
		sb.WriteString("Description: ")
		sb.WriteString(page.Description)
		sb.WriteString("\n")
	}
	if page.Notes != "" {
		sb.WriteString("Notes: ")
		sb.WriteString(page.Notes)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProduct context:\n")
	sb.WriteString(w.session.RefinedPRD)

	text, err := w.gen.Complete(ctx, w.request(prompt.ModeGeneratePageDetails, []llm.Message{
		{Role: "user", Content: sb.String()},
	}))
	if err != nil {
		return nil, err
	}

	var details pageDetails
	outcome, perr := extract.JSON(text, &details)
	if outcome == extract.Failed {
		return nil, fmt.Errorf("page details unparseable: %w", perr)
	}
	for i := range details.Features {
		if details.Features[i].ID == "" {
			details.Features[i].ID = uuid.NewString()
		}
	}
	return &details, nil
}

// GenerateFinalPRD assembles the complete document from the refined PRD and
// the detailed page plan. Soft-deleted pages are cited in a closing section
// with their removal reasons.
func (w *Workflow) GenerateFinalPRD(ctx context.Context, sink Sink) error {
	return w.streamDocument(ctx, streamOp{
		generating: StageGeneratingFinal,
		success:    StageDone,
		doc:        DocFinal,
		mode:       prompt.ModeGenerateFinalPRD,
		messages: []llm.Message{
			{Role: "user", Content: "Refined PRD:\n" + w.session.RefinedPRD +
				"\n\n" + w.pagesDigest()},
		},
		sink: sink,
	})
}

// pagesDigest renders the page plan as markdown for the assembly prompt,
// active pages in full and removed pages by name and reason.
func (w *Workflow) pagesDigest() string {
	var sb strings.Builder
	sb.WriteString("Planned pages:\n")
	for _, page := range w.session.Pages {
		if page.Deleted {
			continue
		}
		sb.WriteString("## ")
		sb.WriteString(page.Name)
		sb.WriteString(" (")
		sb.WriteString(page.URLPath)
		sb.WriteString(")\n")
		if page.Description != "" {
			sb.WriteString(page.Description)
			sb.WriteString("\n")
		}
		for _, feature := range page.Features {
			sb.WriteString("- ")
			sb.WriteString(feature.Name)
			if feature.Description != "" {
				sb.WriteString(": ")
				sb.WriteString(feature.Description)
			}
			sb.WriteString("\n")
		}
		if page.Layout != "" {
			sb.WriteString("Layout: ")
			sb.WriteString(page.Layout)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	removed := false
	for _, page := range w.session.Pages {
		if !page.Deleted {
			continue
		}
		if !removed {
			sb.WriteString("Removed pages (cite these in the closing section):\n")
			removed = true
		}
		sb.WriteString("- ")
		sb.WriteString(page.Name)
		if page.DeleteReason != "" {
			sb.WriteString(": ")
			sb.WriteString(page.DeleteReason)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RefineDocument runs one turn of the free-form adjustment chat for a
// document and replaces the document with the streamed result.
func (w *Workflow) RefineDocument(ctx context.Context, doc Document, userMessage string, sink Sink) error {
	current := w.session.Document(doc)
	if current == "" {
		return fmt.Errorf("document %q is empty; nothing to refine", doc)
	}

	history := w.session.ChatHistories[doc]
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Current document:\n" + current,
	})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	accumulated, err := w.streamText(ctx, w.request(prompt.ModeRefineChat, messages), sink)
	if err != nil {
		return err
	}

	w.session.ChatHistories[doc] = append(history,
		project.ChatMessage{Role: "user", Content: userMessage},
		project.ChatMessage{Role: "assistant", Content: accumulated},
	)
	w.session.SetDocument(doc, accumulated)
	w.saver.NoteEdit()
	return nil
}

// NameProject asks the model for a short project name based on the
// requirement.
func (w *Workflow) NameProject(ctx context.Context) (string, error) {
	name, err := w.gen.Complete(ctx, w.request(prompt.ModeGenerateProjectName, []llm.Message{
		{Role: "user", Content: w.session.Requirement},
	}))
	if err != nil {
		return "", fmt.Errorf("project naming failed: %w", err)
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(name), `"`)), nil
}

// ExportMarkdown renders the furthest-progressed document as a standalone
// markdown file.
func (w *Workflow) ExportMarkdown() string {
	title := w.session.Name
	if title == "" {
		title = "Product Requirements Document"
	}

	doc := w.session.FinalPRD
	if doc == "" {
		doc = w.session.RefinedPRD
	}
	if doc == "" {
		doc = w.session.InitialPRD
	}
	return fmt.Sprintf("# %s\n\n%s\n", title, doc)
}

// streamOp describes one streamed document-generation transition.
type streamOp struct {
	generating Stage
	success    Stage
	doc        Document
	mode       prompt.Mode
	messages   []llm.Message
	sink       Sink
	afterSave  bool // ensure a project exists once the document lands
}

func (w *Workflow) streamDocument(ctx context.Context, op streamOp) error {
	prior := w.session.Stage
	w.session.Stage = op.generating

	accumulated, err := w.streamText(ctx, w.request(op.mode, op.messages), op.sink)
	if err != nil {
		w.session.Stage = prior
		return err
	}

	w.session.SetDocument(op.doc, accumulated)
	if op.afterSave {
		w.ensureProject(ctx)
	}
	w.advance(op.success)
	return nil
}

// streamText consumes the gateway's fragment stream, replacing the
// accumulator wholesale after every chunk. A stream that cannot be opened is
// fatal for the operation.
func (w *Workflow) streamText(ctx context.Context, req gateway.Request, sink Sink) (string, error) {
	fragments, err := w.gen.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generation stream unavailable: %w", err)
	}

	var sb strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			return "", fmt.Errorf("generation stream failed: %w", frag.Err)
		}
		sb.WriteString(frag.Text)
		if sink != nil {
			sink(sb.String())
		}
	}
	return sb.String(), nil
}

// request builds a gateway request carrying the session's constraint inputs.
func (w *Workflow) request(mode prompt.Mode, messages []llm.Message) gateway.Request {
	return gateway.Request{
		Messages:  messages,
		Mode:      mode,
		TechStack: w.session.TechStack,
		PRDMode:   w.session.PRDMode,
	}
}

// advance moves to a stable stage, raises the high-water mark, and schedules
// a save.
func (w *Workflow) advance(stage Stage) {
	w.session.Stage = stage
	if step := StepOf(stage); step > w.session.MaxReachedStep {
		w.session.MaxReachedStep = step
	}
	w.saver.NoteTransition()
}

// ensureProject creates the backing project on first generation. A store
// that rejects the caller disables persistence for the session instead of
// failing the generation.
func (w *Workflow) ensureProject(ctx context.Context) {
	if w.projects == nil || w.persistDisabled || w.session.ProjectID != "" {
		return
	}

	if w.session.Name == "" {
		if name, err := w.NameProject(ctx); err == nil {
			w.session.Name = name
		} else {
			w.logger.Warn("project naming failed, using fallback", "err", err)
			w.session.Name = "Untitled project"
		}
	}

	created, err := w.projects.Create(ctx, w.session.Snapshot())
	if err != nil {
		if errors.Is(err, storage.ErrForbidden) {
			w.logger.Info("not signed in, continuing without persistence")
			w.persistDisabled = true
			return
		}
		w.logger.Error("project creation failed", "err", err)
		return
	}
	w.session.ProjectID = created.ID
}

// save persists the current session snapshot. Used as the autosaver's save
// function; failures are logged by the caller, never surfaced to the user.
func (w *Workflow) save(ctx context.Context) error {
	if w.projects == nil || w.persistDisabled {
		return nil
	}
	if w.session.ProjectID == "" || w.session.Stage == StageInitial {
		return nil
	}
	if _, err := w.projects.Update(ctx, w.session.ProjectID, w.session.patch()); err != nil {
		return err
	}
	w.session.LastSavedAt = time.Now()
	return nil
}
