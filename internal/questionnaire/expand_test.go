package questionnaire

import (
	"context"
	"errors"
	"testing"

	"mobiq/internal/catalog"
)

// stubSource serves canned questions per category.
type stubSource struct {
	questions map[string][]catalog.Question
	fail      map[string]bool
}

func (s *stubSource) ListCategories(ctx context.Context, lang string) ([]catalog.Category, error) {
	return nil, nil
}

func (s *stubSource) ListQuestions(ctx context.Context, categoryID, lang string) ([]catalog.Question, error) {
	if s.fail[categoryID] {
		return nil, errors.New("boom")
	}
	return s.questions[categoryID], nil
}

func sofaQuestions() []catalog.Question {
	return []catalog.Question{
		{ID: "q-style", CategoryID: "sofa", Kind: catalog.KindCards},
		{ID: "q-size", CategoryID: "sofa", Kind: catalog.KindMeasurements},
		{ID: "q-photos", CategoryID: "sofa", Kind: catalog.KindFileUpload},
	}
}

func TestExpandInstanceFanOut(t *testing.T) {
	src := &stubSource{questions: map[string][]catalog.Question{
		"sofa":  sofaQuestions(),
		"table": {{ID: "q-shape", CategoryID: "table"}},
	}}
	e := NewExpander(src)

	seq, err := e.Expand(context.Background(), []CategoryQuantity{
		{CategoryID: "sofa", Quantity: 2},
		{CategoryID: "table", Quantity: 1},
	}, "ro", nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	if len(seq.Steps) != 7 {
		t.Fatalf("expected 7 steps (3*2 + 1), got %d", len(seq.Steps))
	}

	// First instance's full set precedes the second instance.
	wantInstances := []string{"sofa-1", "sofa-1", "sofa-1", "sofa-2", "sofa-2", "sofa-2", "table-1"}
	for i, step := range seq.Steps {
		if step.InstanceID != wantInstances[i] {
			t.Fatalf("step %d instance = %s, want %s", i, step.InstanceID, wantInstances[i])
		}
	}
	if seq.Steps[0].Question.ID != "q-style" || seq.Steps[3].Question.ID != "q-style" {
		t.Fatal("each instance must repeat the question set in order")
	}
}

func TestExpandSkipsZeroQuantityAndBlankIDs(t *testing.T) {
	src := &stubSource{questions: map[string][]catalog.Question{"sofa": sofaQuestions()}}
	e := NewExpander(src)

	seq, err := e.Expand(context.Background(), []CategoryQuantity{
		{CategoryID: "sofa", Quantity: 0},
		{CategoryID: "", Quantity: 3},
		{CategoryID: "sofa", Quantity: -1},
	}, "ro", nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(seq.Steps) != 0 {
		t.Fatalf("expected empty sequence, got %d steps", len(seq.Steps))
	}
}

func TestExpandIsolatesCategoryFailures(t *testing.T) {
	src := &stubSource{
		questions: map[string][]catalog.Question{"sofa": sofaQuestions()},
		fail:      map[string]bool{"wardrobe": true},
	}
	e := NewExpander(src)

	seq, err := e.Expand(context.Background(), []CategoryQuantity{
		{CategoryID: "wardrobe", Quantity: 1},
		{CategoryID: "sofa", Quantity: 1},
	}, "ro", nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	if len(seq.Steps) != 3 {
		t.Fatalf("expected sofa steps to survive, got %d", len(seq.Steps))
	}
	if len(seq.Warnings) != 1 || seq.Warnings[0].CategoryID != "wardrobe" {
		t.Fatalf("expected warning for wardrobe, got %+v", seq.Warnings)
	}
}

func TestExpandFiltersByVisibility(t *testing.T) {
	questions := sofaQuestions()
	questions[1].VisibilityRules = []catalog.VisibilityRule{
		{ParentQuestionID: "q-style", OptionValue: "modern", ChildQuestionID: "q-size"},
	}
	src := &stubSource{questions: map[string][]catalog.Question{"sofa": questions}}
	e := NewExpander(src)

	seq, err := e.Expand(context.Background(), []CategoryQuantity{{CategoryID: "sofa", Quantity: 1}}, "ro", nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(seq.Steps) != 2 {
		t.Fatalf("hidden question must be excluded, got %d steps", len(seq.Steps))
	}

	seq, err = e.Expand(context.Background(), []CategoryQuantity{{CategoryID: "sofa", Quantity: 1}}, "ro",
		map[string]AnswerValue{"q-style": MultiAnswer("modern")})
	if err != nil {
		t.Fatalf("expand with answers: %v", err)
	}
	if len(seq.Steps) != 3 {
		t.Fatalf("satisfied rule must include question, got %d steps", len(seq.Steps))
	}
}

func TestExpandHonorsContextCancellation(t *testing.T) {
	src := &stubSource{questions: map[string][]catalog.Question{"sofa": sofaQuestions()}}
	e := NewExpander(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Expand(ctx, []CategoryQuantity{{CategoryID: "sofa", Quantity: 1}}, "ro", nil); err == nil {
		t.Fatal("expected context error")
	}
}
