package questionnaire

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobiq/internal/catalog"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	questions := []catalog.Question{
		{ID: "q-style", CategoryID: "sofa", Kind: catalog.KindCards, Required: true,
			SelectionMode: catalog.SelectionSingleWithAddon,
			Options: []catalog.Option{
				{Value: "modern"},
				{Value: "classic"},
				{Value: "usb", IsAddon: true, AddonParentValue: strPtr("modern")},
			}},
		{ID: "q-fabric", CategoryID: "sofa", Kind: catalog.KindCards, Required: true,
			Options: []catalog.Option{{Value: "cotton"}, {Value: "leather"}},
			VisibilityRules: []catalog.VisibilityRule{
				{ParentQuestionID: "q-style", OptionValue: "modern", ChildQuestionID: "q-fabric"},
			}},
		{ID: "q-notes", CategoryID: "sofa", Kind: catalog.KindText, Required: false},
	}
	src := &stubSource{questions: map[string][]catalog.Question{"sofa": questions}}
	return NewManager(NewExpander(src), time.Hour)
}

func startTestSession(t *testing.T, m *Manager, userID int64) *SessionView {
	t.Helper()
	view, err := m.Start(context.Background(), userID, StartInput{
		HomeID:     "h1",
		Categories: []CategoryQuantity{{CategoryID: "sofa", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return view
}

func TestManagerWalkthrough(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	// The hidden q-fabric is excluded until rebuilt with a matching answer.
	if view.TotalSteps != 2 {
		t.Fatalf("total steps = %d, want 2", view.TotalSteps)
	}
	if view.Step == nil || view.Step.Question.ID != "q-style" {
		t.Fatalf("unexpected first step: %+v", view.Step)
	}

	view, err := m.SubmitAnswer(9, view.ID, ScalarAnswer("modern"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Step.Answer == nil || !view.Step.Answer.Contains("modern") {
		t.Fatalf("answer not echoed: %+v", view.Step.Answer)
	}

	view, err = m.ToggleAddon(9, view.ID, "usb")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !view.Step.Answer.Contains("usb") {
		t.Fatalf("addon not attached: %+v", view.Step.Answer)
	}

	sig, view, err := m.Advance(9, view.ID)
	if err != nil || sig != SignalMoved {
		t.Fatalf("advance = %s, %v", sig, err)
	}
	if view.Step.Question.ID != "q-notes" {
		t.Fatalf("second step = %s", view.Step.Question.ID)
	}

	sig, view, err = m.Advance(9, view.ID)
	if err != nil || sig != SignalFinished {
		t.Fatalf("final advance = %s, %v", sig, err)
	}
	if view.State != StateComplete || view.Progress != 1 {
		t.Fatalf("state %s progress %v", view.State, view.Progress)
	}
}

func TestManagerRebuildRevealsDependentQuestion(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	if _, err := m.SubmitAnswer(9, view.ID, ScalarAnswer("modern")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err := m.Rebuild(context.Background(), 9, view.ID)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if view.TotalSteps != 3 {
		t.Fatalf("total steps after rebuild = %d, want 3", view.TotalSteps)
	}
	// The style answer survives the rebuild under its instance key.
	if view.Step.Answer == nil || !view.Step.Answer.Contains("modern") {
		t.Fatalf("answer lost on rebuild: %+v", view.Step.Answer)
	}
}

func TestManagerRebuildClampsCursorOnShrink(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	if _, err := m.SubmitAnswer(9, view.ID, ScalarAnswer("modern")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.Rebuild(context.Background(), 9, view.ID); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if _, _, err := m.Advance(9, view.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := m.SubmitAnswer(9, view.ID, ScalarAnswer("cotton")); err != nil {
		t.Fatalf("submit fabric: %v", err)
	}
	if _, _, err := m.Advance(9, view.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Flip the style answer under the cursor parked on the last step. The
	// rebuilt sequence loses q-fabric and the cursor must clamp into it.
	m.mu.Lock()
	s := m.sessions[view.ID]
	s.answers.Set("sofa-1", s.seq.Steps[0].Question, ScalarAnswer("classic"))
	m.mu.Unlock()

	view, err := m.Rebuild(context.Background(), 9, view.ID)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if view.TotalSteps != 2 {
		t.Fatalf("total steps = %d, want 2", view.TotalSteps)
	}
	if view.Cursor != 1 {
		t.Fatalf("cursor = %d, want clamped to 1", view.Cursor)
	}
}

func TestManagerOwnershipAndLifetime(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	if _, err := m.View(10, view.ID); !errors.Is(err, ErrSessionForbidden) {
		t.Fatalf("foreign view err = %v", err)
	}
	if _, err := m.View(9, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing view err = %v", err)
	}

	if err := m.Discard(9, view.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := m.View(9, view.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("discarded view err = %v", err)
	}
}

func TestManagerPrunesIdleSessions(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	m.mu.Lock()
	m.sessions[view.ID].lastSeen = time.Now().Add(-2 * time.Hour)
	m.mu.Unlock()

	if _, err := m.View(9, view.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle session err = %v", err)
	}
}

func TestManagerExportRefusesActiveSession(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	if _, err := m.ExportAnswers(9, view.ID); !errors.Is(err, ErrSessionIncomplete) {
		t.Fatalf("export err = %v", err)
	}
}

func TestManagerExportAfterCompletion(t *testing.T) {
	m := newTestManager(t)
	view := startTestSession(t, m, 9)

	if _, err := m.SubmitAnswer(9, view.ID, ScalarAnswer("modern")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := m.Advance(9, view.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if sig, _, err := m.Advance(9, view.ID); err != nil || sig != SignalFinished {
		t.Fatalf("finish = %v, %v", sig, err)
	}

	export, err := m.ExportAnswers(9, view.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.HomeID != "h1" || export.Lang != "ro" {
		t.Fatalf("export header %+v", export)
	}
	if len(export.Answers) != 1 {
		t.Fatalf("expected 1 answered row, got %d", len(export.Answers))
	}
	a := export.Answers[0]
	if a.InstanceID != "sofa-1" || a.QuestionID != "q-style" || !a.Value.Contains("modern") {
		t.Fatalf("unexpected exported answer %+v", a)
	}
}
