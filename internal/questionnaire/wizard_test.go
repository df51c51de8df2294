package questionnaire

import (
	"fmt"
	"testing"

	"mobiq/internal/catalog"
)

func wizardSequence(n int, required bool) *Sequence {
	seq := &Sequence{Lang: "ro"}
	for i := 1; i <= n; i++ {
		seq.Steps = append(seq.Steps, Step{
			Question: catalog.Question{
				ID:       fmt.Sprintf("q-%d", i),
				Kind:     catalog.KindCards,
				Required: required,
			},
			CategoryID: "sofa",
			InstanceID: "sofa-1",
		})
	}
	return seq
}

func TestWizardBlocksOnRequiredStep(t *testing.T) {
	seq := wizardSequence(3, true)
	answers := NewAnswerStore()
	w := NewWizard(seq, answers)

	if got := w.Advance(); got != SignalBlocked {
		t.Fatalf("advance without answer = %s, want blocked", got)
	}
	if w.Cursor() != 0 {
		t.Fatalf("blocked advance must not move, cursor = %d", w.Cursor())
	}

	answers.Set("sofa-1", seq.Steps[0].Question, MultiAnswer("modern"))
	if got := w.Advance(); got != SignalMoved {
		t.Fatalf("advance with answer = %s, want moved", got)
	}
	if w.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", w.Cursor())
	}
}

func TestWizardFinishesPastLastStep(t *testing.T) {
	seq := wizardSequence(2, false)
	w := NewWizard(seq, NewAnswerStore())

	if got := w.Advance(); got != SignalMoved {
		t.Fatalf("first advance = %s", got)
	}
	if got := w.Advance(); got != SignalFinished {
		t.Fatalf("last advance = %s, want finished", got)
	}
	if w.State() != StateComplete {
		t.Fatalf("state = %s, want complete", w.State())
	}
	// Advancing a finished wizard stays finished.
	if got := w.Advance(); got != SignalFinished {
		t.Fatalf("advance after finish = %s", got)
	}
	if got := w.Progress(); got != 1 {
		t.Fatalf("progress after finish = %v, want 1", got)
	}
}

func TestWizardRetreat(t *testing.T) {
	seq := wizardSequence(3, false)
	w := NewWizard(seq, NewAnswerStore())

	if got := w.Retreat(); got != SignalExit {
		t.Fatalf("retreat from first step = %s, want exit", got)
	}

	w.Advance()
	if got := w.Retreat(); got != SignalMoved {
		t.Fatalf("retreat = %s, want moved", got)
	}
	if w.Cursor() != 0 {
		t.Fatalf("cursor = %d, want 0", w.Cursor())
	}

	// Retreating from the completed state reopens the last step.
	w.Advance()
	w.Advance()
	w.Advance()
	if w.State() != StateComplete {
		t.Fatalf("state = %s, want complete", w.State())
	}
	if got := w.Retreat(); got != SignalMoved {
		t.Fatalf("retreat from complete = %s, want moved", got)
	}
	if w.State() != StateActive || w.Cursor() != 2 {
		t.Fatalf("reopened at state %s cursor %d", w.State(), w.Cursor())
	}
}

func TestWizardEmptySequence(t *testing.T) {
	w := NewWizard(&Sequence{}, NewAnswerStore())
	if w.State() != StateEmpty {
		t.Fatalf("state = %s, want empty", w.State())
	}
	if _, ok := w.Current(); ok {
		t.Fatal("empty wizard has no current step")
	}
	if got := w.Advance(); got != SignalBlocked {
		t.Fatalf("advance on empty = %s", got)
	}
	if got := w.Retreat(); got != SignalExit {
		t.Fatalf("retreat on empty = %s", got)
	}
	if got := w.Progress(); got != 0 {
		t.Fatalf("progress on empty = %v", got)
	}
}

func TestWizardProgress(t *testing.T) {
	seq := wizardSequence(4, false)
	w := NewWizard(seq, NewAnswerStore())

	if got := w.Progress(); got != 0.25 {
		t.Fatalf("initial progress = %v, want 0.25", got)
	}
	w.Advance()
	if got := w.Progress(); got != 0.5 {
		t.Fatalf("progress = %v, want 0.5", got)
	}
}

func TestClampCursorAfterShrink(t *testing.T) {
	w := NewWizard(wizardSequence(5, false), NewAnswerStore())
	w.Advance()
	w.Advance()
	w.Advance()
	w.Advance()

	w.seq = wizardSequence(2, false)
	w.clampCursor(w.cursor)
	if w.Cursor() != 1 {
		t.Fatalf("cursor = %d, want last valid step", w.Cursor())
	}

	w.seq = &Sequence{}
	w.clampCursor(w.cursor)
	if w.State() != StateEmpty || w.Cursor() != 0 {
		t.Fatalf("shrink to empty gave state %s cursor %d", w.State(), w.Cursor())
	}
}
