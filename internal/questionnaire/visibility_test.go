package questionnaire

import (
	"testing"

	"mobiq/internal/catalog"
)

func TestIsVisibleWithoutRules(t *testing.T) {
	q := catalog.Question{ID: "q-child"}
	if !IsVisible(q, nil) {
		t.Fatal("a question without rules is always visible")
	}
}

func TestIsVisibleRuleMatrix(t *testing.T) {
	q := catalog.Question{
		ID: "q-fabric",
		VisibilityRules: []catalog.VisibilityRule{
			{ParentQuestionID: "q-style", OptionValue: "modern", ChildQuestionID: "q-fabric"},
			{ParentQuestionID: "q-style", OptionValue: "scandi", ChildQuestionID: "q-fabric"},
		},
	}

	cases := []struct {
		name    string
		answers map[string]AnswerValue
		want    bool
	}{
		{"no parent answer hides", map[string]AnswerValue{}, false},
		{"scalar match shows", map[string]AnswerValue{"q-style": ScalarAnswer("modern")}, true},
		{"second rule match shows", map[string]AnswerValue{"q-style": ScalarAnswer("scandi")}, true},
		{"scalar mismatch hides", map[string]AnswerValue{"q-style": ScalarAnswer("classic")}, false},
		{"multi containing value shows", map[string]AnswerValue{"q-style": MultiAnswer("classic", "modern")}, true},
		{"multi without value hides", map[string]AnswerValue{"q-style": MultiAnswer("classic")}, false},
		{"empty answer hides", map[string]AnswerValue{"q-style": {}}, false},
		{"unrelated answer hides", map[string]AnswerValue{"q-size": ScalarAnswer("modern")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsVisible(q, tc.answers); got != tc.want {
				t.Fatalf("IsVisible = %v, want %v", got, tc.want)
			}
		})
	}
}
