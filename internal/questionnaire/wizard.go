package questionnaire

// State of the wizard over its sequence.
type State string

const (
	StateEmpty    State = "empty"
	StateActive   State = "active"
	StateComplete State = "complete"
)

// Signal is what a navigation call hands back to the caller.
type Signal string

const (
	// SignalMoved: the cursor changed.
	SignalMoved Signal = "moved"
	// SignalBlocked: advance refused because the current required answer is
	// incomplete.
	SignalBlocked Signal = "blocked"
	// SignalFinished: advance ran past the last step; the sequence is done.
	SignalFinished Signal = "finished"
	// SignalExit: retreat from the first step; control returns to category
	// selection.
	SignalExit Signal = "exit"
)

// Wizard is a linear cursor over an expanded sequence. It is pure and
// synchronous: transitions happen only on explicit Advance/Retreat calls, and
// the sequence must be fully built before the wizard starts so the step
// count stays stable for progress reporting.
type Wizard struct {
	seq     *Sequence
	answers *AnswerStore
	cursor  int
	state   State
}

func NewWizard(seq *Sequence, answers *AnswerStore) *Wizard {
	w := &Wizard{seq: seq, answers: answers, state: StateActive}
	if seq == nil || len(seq.Steps) == 0 {
		w.state = StateEmpty
	}
	return w
}

func (w *Wizard) State() State { return w.state }
func (w *Wizard) Cursor() int  { return w.cursor }
func (w *Wizard) Len() int {
	if w.seq == nil {
		return 0
	}
	return len(w.seq.Steps)
}

// Current returns the step under the cursor.
func (w *Wizard) Current() (Step, bool) {
	if w.state == StateEmpty || w.cursor >= w.Len() {
		return Step{}, false
	}
	return w.seq.Steps[w.cursor], true
}

// CanAdvance reports whether the current step's answer satisfies its
// required-field rule.
func (w *Wizard) CanAdvance() bool {
	step, ok := w.Current()
	if !ok {
		return false
	}
	answer, _ := w.answers.Get(step.InstanceID, step.Question.ID)
	return IsComplete(step.Question, answer)
}

// Advance moves forward one step when the current answer is complete. Past
// the last step the wizard transitions to Complete instead of moving.
func (w *Wizard) Advance() Signal {
	if w.state != StateActive {
		if w.state == StateComplete {
			return SignalFinished
		}
		return SignalBlocked
	}
	if !w.CanAdvance() {
		return SignalBlocked
	}
	if w.cursor < w.Len()-1 {
		w.cursor++
		return SignalMoved
	}
	w.state = StateComplete
	return SignalFinished
}

// Retreat moves back one step; from the first step it signals an exit back
// to category selection instead of moving.
func (w *Wizard) Retreat() Signal {
	switch w.state {
	case StateComplete:
		w.state = StateActive
		return SignalMoved
	case StateActive:
		if w.cursor > 0 {
			w.cursor--
			return SignalMoved
		}
		return SignalExit
	default:
		return SignalExit
	}
}

// Progress is (cursor+1)/N in [0,1]; 0 for an empty sequence, 1 once
// complete.
func (w *Wizard) Progress() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	if w.state == StateComplete {
		return 1
	}
	return float64(w.cursor+1) / float64(n)
}

// clampCursor keeps the cursor valid after a rebuild shrinks the sequence.
func (w *Wizard) clampCursor(cursor int) {
	n := w.Len()
	if n == 0 {
		w.state = StateEmpty
		w.cursor = 0
		return
	}
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	w.cursor = cursor
}
