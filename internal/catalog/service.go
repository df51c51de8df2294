package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnavailable wraps any storage or transport failure. Callers treat it as
// "no data for this scope" and may degrade to an empty question set; retry
// policy belongs to them, not to this service.
var ErrUnavailable = errors.New("catalog unavailable")

// Source is the read contract the questionnaire core consumes. Implemented
// by Service and by the redis-backed Cache wrapping it.
type Source interface {
	ListCategories(ctx context.Context, lang string) ([]Category, error)
	ListQuestions(ctx context.Context, categoryID, lang string) ([]Question, error)
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) ListCategories(ctx context.Context, lang string) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(description, ''),
			COALESCE(icon, ''), COALESCE(image_ref, ''), lang
		FROM request_categories
		WHERE lang = $1
		ORDER BY sort_order, name
	`, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: query categories: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	items := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.ImageURL, &c.LangCode); err != nil {
			return nil, fmt.Errorf("%w: scan category: %v", ErrUnavailable, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate categories: %v", ErrUnavailable, err)
	}
	return items, nil
}

// ListQuestions returns the category's normalized questions with options and
// visibility rules attached, ordered by sort_order.
func (s *Service) ListQuestions(ctx context.Context, categoryID, lang string) ([]Question, error) {
	qrows, err := s.loadQuestionRows(ctx, categoryID, lang)
	if err != nil {
		return nil, err
	}
	if len(qrows) == 0 {
		return []Question{}, nil
	}

	optionsByQuestion, err := s.loadOptions(ctx, categoryID, lang)
	if err != nil {
		return nil, err
	}
	rulesByChild, err := s.loadVisibilityRules(ctx, categoryID, lang)
	if err != nil {
		return nil, err
	}

	out := make([]Question, 0, len(qrows))
	for _, row := range qrows {
		out = append(out, normalizeQuestion(row, optionsByQuestion[row.ID], rulesByChild[row.ID]))
	}
	return out, nil
}

func (s *Service) loadQuestionRows(ctx context.Context, categoryID, lang string) ([]questionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(category_id, ''), COALESCE(title, ''),
			COALESCE(description, ''), COALESCE(kind, ''),
			COALESCE(selection_mode, ''), required,
			COALESCE(sort_order, 0),
			measurements_spec, file_upload_spec
		FROM request_questions
		WHERE category_id = $1 AND lang = $2
		ORDER BY sort_order, id
	`, categoryID, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: query questions: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]questionRow, 0)
	for rows.Next() {
		var r questionRow
		var required sql.NullBool
		if err := rows.Scan(
			&r.ID,
			&r.CategoryID,
			&r.Title,
			&r.Description,
			&r.Kind,
			&r.SelectionMode,
			&required,
			&r.SortOrder,
			&r.MeasurementsSpec,
			&r.FileUploadSpec,
		); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", ErrUnavailable, err)
		}
		if required.Valid {
			v := required.Bool
			r.Required = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate questions: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *Service) loadOptions(ctx context.Context, categoryID, lang string) (map[string][]Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.question_id, o.id, COALESCE(o.text, ''),
			COALESCE(o.value, ''), COALESCE(o.sort_order, 0),
			COALESCE(o.icon, ''), COALESCE(o.description, ''),
			COALESCE(o.is_addon, FALSE), o.addon_parent_value
		FROM request_question_options o
		JOIN request_questions q ON q.id = o.question_id AND q.lang = o.lang
		WHERE q.category_id = $1 AND o.lang = $2
		ORDER BY o.question_id, o.sort_order, o.id
	`, categoryID, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: query options: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	byQuestion := make(map[string][]Option)
	for rows.Next() {
		var questionID string
		var opt Option
		var parent sql.NullString
		if err := rows.Scan(
			&questionID,
			&opt.ID,
			&opt.Text,
			&opt.Value,
			&opt.SortOrder,
			&opt.Icon,
			&opt.Description,
			&opt.IsAddon,
			&parent,
		); err != nil {
			return nil, fmt.Errorf("%w: scan option: %v", ErrUnavailable, err)
		}
		if parent.Valid && parent.String != "" {
			v := parent.String
			opt.AddonParentValue = &v
		}
		byQuestion[questionID] = append(byQuestion[questionID], opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate options: %v", ErrUnavailable, err)
	}
	return byQuestion, nil
}

func (s *Service) loadVisibilityRules(ctx context.Context, categoryID, lang string) (map[string][]VisibilityRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.parent_question_id, r.option_value, r.question_id
		FROM question_visibility_rules r
		JOIN request_questions q ON q.id = r.question_id AND q.lang = r.lang
		WHERE q.category_id = $1 AND r.lang = $2
	`, categoryID, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: query visibility rules: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	byChild := make(map[string][]VisibilityRule)
	for rows.Next() {
		var r VisibilityRule
		if err := rows.Scan(&r.ParentQuestionID, &r.OptionValue, &r.ChildQuestionID); err != nil {
			return nil, fmt.Errorf("%w: scan visibility rule: %v", ErrUnavailable, err)
		}
		byChild[r.ChildQuestionID] = append(byChild[r.ChildQuestionID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate visibility rules: %v", ErrUnavailable, err)
	}
	return byChild, nil
}
