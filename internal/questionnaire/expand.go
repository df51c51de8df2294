package questionnaire

import (
	"context"
	"fmt"

	"mobiq/internal/catalog"
)

// CategoryQuantity pairs a category with how many instances of it the
// homeowner requested. Slice order is the expansion order.
type CategoryQuantity struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

// Step is one entry of the flat question sequence: a question asked for one
// concrete instance of a category.
type Step struct {
	Question   catalog.Question `json:"question"`
	CategoryID string           `json:"category_id"`
	InstanceID string           `json:"instance_id"`
}

// CategoryWarning records a category whose questions could not be loaded.
// The category degrades to an empty question set instead of failing the
// whole sequence.
type CategoryWarning struct {
	CategoryID string `json:"category_id"`
	Reason     string `json:"reason"`
}

type Sequence struct {
	Lang     string
	Steps    []Step
	Warnings []CategoryWarning
}

// Expander builds flat question sequences from category selections.
type Expander struct {
	catalog catalog.Source
}

func NewExpander(src catalog.Source) *Expander {
	return &Expander{catalog: src}
}

// Expand produces the ordered sequence: for each selected category in slice
// order, each instance 1..quantity gets the category's full visible question
// set, preserving question sort order. Instance ids take the form
// "<categoryID>-<n>". Repository failures are isolated per category.
func (e *Expander) Expand(ctx context.Context, selected []CategoryQuantity, lang string, answers map[string]AnswerValue) (*Sequence, error) {
	seq := &Sequence{Lang: lang, Steps: make([]Step, 0)}
	if answers == nil {
		answers = map[string]AnswerValue{}
	}

	for _, sel := range selected {
		if sel.Quantity <= 0 || sel.CategoryID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		questions, err := e.catalog.ListQuestions(ctx, sel.CategoryID, lang)
		if err != nil {
			seq.Warnings = append(seq.Warnings, CategoryWarning{
				CategoryID: sel.CategoryID,
				Reason:     "questions unavailable",
			})
			continue
		}

		visible := make([]catalog.Question, 0, len(questions))
		for _, q := range questions {
			if IsVisible(q, answers) {
				visible = append(visible, q)
			}
		}

		for i := 1; i <= sel.Quantity; i++ {
			instanceID := fmt.Sprintf("%s-%d", sel.CategoryID, i)
			for _, q := range visible {
				seq.Steps = append(seq.Steps, Step{
					Question:   q,
					CategoryID: sel.CategoryID,
					InstanceID: instanceID,
				})
			}
		}
	}

	return seq, nil
}
