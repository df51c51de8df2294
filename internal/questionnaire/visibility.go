package questionnaire

import "mobiq/internal/catalog"

// IsVisible decides whether a question belongs in the active sequence given
// the answers known when the sequence is built. A question with no rules is
// always included; otherwise any satisfied rule includes it.
//
// Visibility is deliberately not re-resolved after every answer edit mid
// sequence; it is recomputed only at an explicit rebuild, so the step count
// stays stable while the wizard runs.
func IsVisible(q catalog.Question, answers map[string]AnswerValue) bool {
	if len(q.VisibilityRules) == 0 {
		return true
	}
	for _, rule := range q.VisibilityRules {
		parent, ok := answers[rule.ParentQuestionID]
		if !ok || parent.IsZero() {
			continue
		}
		if parent.Contains(rule.OptionValue) {
			return true
		}
	}
	return false
}
