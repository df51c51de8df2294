package questionnaire

import (
	"context"
	"errors"
	"sync"
	"time"

	"mobiq/internal/catalog"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound   = errors.New("questionnaire session not found")
	ErrSessionForbidden  = errors.New("questionnaire session forbidden")
	ErrNoCurrentStep     = errors.New("no current step")
	ErrSessionIncomplete = errors.New("questionnaire session not complete")
)

// session is one user's in-flight wizard. State lives only in memory: it is
// discarded on reset or expiry and rebuilt from scratch on reload, never
// persisted as a server-side draft.
type session struct {
	id       string
	userID   int64
	homeID   string
	lang     string
	selected []CategoryQuantity
	seq      *Sequence
	answers  *AnswerStore
	wizard   *Wizard
	lastSeen time.Time
}

// Manager owns all active wizard sessions. A single mutex serializes every
// operation; sessions are single-user and the work per call is in-memory.
type Manager struct {
	mu       sync.Mutex
	expander *Expander
	sessions map[string]*session
	idleTTL  time.Duration
}

type StartInput struct {
	HomeID     string
	Lang       string
	Categories []CategoryQuantity
}

// StepView is the current step as shown to the caller.
type StepView struct {
	Question   catalog.Question `json:"question"`
	CategoryID string           `json:"category_id"`
	InstanceID string           `json:"instance_id"`
	Answer     *AnswerValue     `json:"answer,omitempty"`
}

type SessionView struct {
	ID         string            `json:"id"`
	State      State             `json:"state"`
	Cursor     int               `json:"cursor"`
	TotalSteps int               `json:"total_steps"`
	Progress   float64           `json:"progress"`
	Warnings   []CategoryWarning `json:"warnings,omitempty"`
	Step       *StepView         `json:"step,omitempty"`
}

// ExportedAnswer is one persisted answer row candidate.
type ExportedAnswer struct {
	InstanceID string
	QuestionID string
	CategoryID string
	Value      AnswerValue
}

// Export is the completed session payload the request module persists.
type Export struct {
	HomeID     string
	Lang       string
	Categories []CategoryQuantity
	Answers    []ExportedAnswer
}

func NewManager(expander *Expander, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &Manager{
		expander: expander,
		sessions: make(map[string]*session),
		idleTTL:  idleTTL,
	}
}

// Start expands the full sequence, then creates the wizard over it. The
// expansion completes before the wizard exists, so the step count is fixed
// from the first progress report.
func (m *Manager) Start(ctx context.Context, userID int64, in StartInput) (*SessionView, error) {
	lang := in.Lang
	if lang == "" {
		lang = "ro"
	}

	seq, err := m.expander.Expand(ctx, in.Categories, lang, nil)
	if err != nil {
		return nil, err
	}

	answers := NewAnswerStore()
	s := &session{
		id:       uuid.NewString(),
		userID:   userID,
		homeID:   in.HomeID,
		lang:     lang,
		selected: append([]CategoryQuantity(nil), in.Categories...),
		seq:      seq,
		answers:  answers,
		wizard:   NewWizard(seq, answers),
		lastSeen: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	m.sessions[s.id] = s
	return s.view(), nil
}

func (m *Manager) View(userID int64, id string) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	return s.view(), nil
}

// SubmitAnswer stores the answer for the current step.
func (m *Manager) SubmitAnswer(userID int64, id string, value AnswerValue) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	step, ok := s.wizard.Current()
	if !ok {
		return nil, ErrNoCurrentStep
	}
	s.answers.Set(step.InstanceID, step.Question, value)
	return s.view(), nil
}

// ToggleAddon flips one addon value on the current step's answer, subject to
// the main/addon compatibility rule.
func (m *Manager) ToggleAddon(userID int64, id, addonValue string) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	step, ok := s.wizard.Current()
	if !ok {
		return nil, ErrNoCurrentStep
	}
	s.answers.ToggleAddon(step.InstanceID, step.Question, addonValue)
	return s.view(), nil
}

func (m *Manager) Advance(userID int64, id string) (Signal, *SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return "", nil, err
	}
	sig := s.wizard.Advance()
	return sig, s.view(), nil
}

func (m *Manager) Retreat(userID int64, id string) (Signal, *SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return "", nil, err
	}
	sig := s.wizard.Retreat()
	return sig, s.view(), nil
}

// Rebuild is the one visibility re-resolution point: the sequence is
// re-expanded against the current answer snapshot and the cursor clamped to
// the new length. Answers keep their instance keys, so entries for questions
// that remain visible survive the rebuild.
func (m *Manager) Rebuild(ctx context.Context, userID int64, id string) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}

	snapshot := s.answers.Snapshot(s.seq)
	seq, err := m.expander.Expand(ctx, s.selected, s.lang, snapshot)
	if err != nil {
		return nil, err
	}

	cursor := s.wizard.Cursor()
	s.seq = seq
	s.wizard = NewWizard(seq, s.answers)
	s.wizard.clampCursor(cursor)
	return s.view(), nil
}

func (m *Manager) Discard(userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup(userID, id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// ExportAnswers hands the finished session to the persistence layer. Only a
// complete (or empty) wizard may be exported.
func (m *Manager) ExportAnswers(userID int64, id string) (*Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	if s.wizard.State() == StateActive {
		return nil, ErrSessionIncomplete
	}

	out := &Export{
		HomeID:     s.homeID,
		Lang:       s.lang,
		Categories: append([]CategoryQuantity(nil), s.selected...),
	}
	for _, step := range s.seq.Steps {
		if v, ok := s.answers.Get(step.InstanceID, step.Question.ID); ok {
			out.Answers = append(out.Answers, ExportedAnswer{
				InstanceID: step.InstanceID,
				QuestionID: step.Question.ID,
				CategoryID: step.CategoryID,
				Value:      v,
			})
		}
	}
	return out, nil
}

// lookup must be called with m.mu held.
func (m *Manager) lookup(userID int64, id string) (*session, error) {
	m.prune()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.userID != userID {
		return nil, ErrSessionForbidden
	}
	s.lastSeen = time.Now()
	return s, nil
}

// prune drops idle sessions; called under m.mu on every access instead of a
// background sweeper.
func (m *Manager) prune() {
	cutoff := time.Now().Add(-m.idleTTL)
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

func (s *session) view() *SessionView {
	v := &SessionView{
		ID:         s.id,
		State:      s.wizard.State(),
		Cursor:     s.wizard.Cursor(),
		TotalSteps: s.wizard.Len(),
		Progress:   s.wizard.Progress(),
		Warnings:   s.seq.Warnings,
	}
	if step, ok := s.wizard.Current(); ok {
		sv := &StepView{
			Question:   step.Question,
			CategoryID: step.CategoryID,
			InstanceID: step.InstanceID,
		}
		if answer, ok := s.answers.Get(step.InstanceID, step.Question.ID); ok {
			sv.Answer = &answer
		}
		v.Step = sv
	}
	return v
}
