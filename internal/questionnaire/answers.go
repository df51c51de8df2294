package questionnaire

import (
	"strings"

	"mobiq/internal/catalog"
)

// AnswerKey scopes an answer to one instance of one question, so two
// instances of the same category never share state.
type AnswerKey struct {
	InstanceID string
	QuestionID string
}

// AnswerStore holds the wizard session's answers. It is owned by exactly one
// session and mutated only through its methods; the main/addon coupling rule
// for single-with-addon questions lives here.
type AnswerStore struct {
	answers map[AnswerKey]AnswerValue
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[AnswerKey]AnswerValue)}
}

func (s *AnswerStore) Get(instanceID, questionID string) (AnswerValue, bool) {
	v, ok := s.answers[AnswerKey{InstanceID: instanceID, QuestionID: questionID}]
	return v, ok
}

func (s *AnswerStore) Len() int {
	return len(s.answers)
}

// Set stores or overwrites one answer. The only cross-value side effect:
// submitting a main option value to a single-with-addon question resets the
// stored answer to just that value, dropping previously chosen addons, since
// addon compatibility depends on the main choice.
func (s *AnswerStore) Set(instanceID string, q catalog.Question, value AnswerValue) {
	key := AnswerKey{InstanceID: instanceID, QuestionID: q.ID}

	if q.SelectionMode == catalog.SelectionSingleWithAddon {
		if value.Kind == AnswerScalar && q.IsMainValue(value.Scalar) {
			s.answers[key] = MultiAnswer(value.Scalar)
			return
		}
		if value.Kind == AnswerMulti {
			if main, ok := firstMainValue(q, value.Values); ok {
				if prevMain, hadMain := s.SelectedMain(instanceID, q); !hadMain || prevMain != main {
					s.answers[key] = MultiAnswer(main)
					return
				}
			}
		}
	}

	if value.IsZero() {
		delete(s.answers, key)
		return
	}
	s.answers[key] = value
}

// ToggleAddon adds or removes an addon value on a single-with-addon answer.
// It is a no-op unless a main option is selected and the addon is enabled
// under it; the main selection is never disturbed.
func (s *AnswerStore) ToggleAddon(instanceID string, q catalog.Question, addonValue string) {
	main, ok := s.SelectedMain(instanceID, q)
	if !ok {
		return
	}
	addon, ok := q.FindAddon(addonValue)
	if !ok || !IsAddonEnabled(q, main, addon) {
		return
	}

	key := AnswerKey{InstanceID: instanceID, QuestionID: q.ID}
	current := s.answers[key].ValueList()
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, v := range current {
		if v == addonValue {
			removed = true
			continue
		}
		next = append(next, v)
	}
	if !removed {
		next = append(next, addonValue)
	}
	s.answers[key] = MultiAnswer(next...)
}

// SelectedMain returns the main option value inside the stored selection for
// a single-with-addon question.
func (s *AnswerStore) SelectedMain(instanceID string, q catalog.Question) (string, bool) {
	answer, ok := s.Get(instanceID, q.ID)
	if !ok {
		return "", false
	}
	return firstMainValue(q, answer.ValueList())
}

// Snapshot collapses the store to a per-question view for visibility
// re-resolution at rebuild time. Later instances win on collision, matching
// how the sequence reload has always read the answer map.
func (s *AnswerStore) Snapshot(seq *Sequence) map[string]AnswerValue {
	out := make(map[string]AnswerValue, len(s.answers))
	if seq != nil {
		for _, step := range seq.Steps {
			if v, ok := s.Get(step.InstanceID, step.Question.ID); ok {
				out[step.Question.ID] = v
			}
		}
		return out
	}
	for key, v := range s.answers {
		out[key.QuestionID] = v
	}
	return out
}

// IsAddonEnabled reports whether an addon is selectable under the given main
// option. An addon without a parent restriction is compatible with every
// main; with no main selected nothing is enabled.
func IsAddonEnabled(q catalog.Question, selectedMain string, addon catalog.Option) bool {
	if selectedMain == "" {
		return false
	}
	if addon.AddonParentValue == nil || *addon.AddonParentValue == "" {
		return true
	}
	return *addon.AddonParentValue == selectedMain
}

// IsComplete decides whether the answer satisfies the question's
// required-field rule. Optional questions are always complete.
func IsComplete(q catalog.Question, answer AnswerValue) bool {
	if !q.Required {
		return true
	}
	if answer.IsZero() {
		return false
	}

	switch q.Kind {
	case catalog.KindCards:
		return len(answer.ValueList()) > 0
	case catalog.KindMeasurements:
		for _, v := range answer.Fields {
			if strings.TrimSpace(v) != "" {
				return true
			}
		}
		return false
	case catalog.KindFileUpload:
		return len(answer.Files) > 0
	default:
		return !answer.IsZero()
	}
}

func firstMainValue(q catalog.Question, values []string) (string, bool) {
	for _, v := range values {
		if q.IsMainValue(v) {
			return v, true
		}
	}
	return "", false
}
