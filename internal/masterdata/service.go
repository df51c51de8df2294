package masterdata

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mobiq/internal/catalog"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidInput = errors.New("invalid input")

type ImportReport struct {
	Categories int        `json:"categories"`
	Questions  int        `json:"questions"`
	Options    int        `json:"options"`
	Rules      int        `json:"rules"`
	Errors     []RowError `json:"errors"`
}

// invalidator lets the import drop stale cached catalog data after a commit.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	db    *sql.DB
	cache invalidator
}

func NewService(db *sql.DB, cache invalidator) *Service {
	return &Service{db: db, cache: cache}
}

// ImportCatalog parses the workbook, then upserts everything for one
// language in a single transaction. Rows that failed validation are reported
// but never block the valid remainder.
func (s *Service) ImportCatalog(ctx context.Context, actorID int64, lang string, r io.Reader) (*ImportReport, error) {
	if lang == "" {
		return nil, fmt.Errorf("%w: lang is required", ErrInvalidInput)
	}

	parsed, err := parseCatalogWorkbook(r)
	if err != nil {
		return nil, err
	}
	if len(parsed.Categories) == 0 {
		return nil, errNoValidRows
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range parsed.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_categories (id, lang, name, description, icon, image_ref, sort_order, created_at, updated_at)
			VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7, now(), now())
			ON CONFLICT (id, lang) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				icon = EXCLUDED.icon,
				image_ref = EXCLUDED.image_ref,
				sort_order = EXCLUDED.sort_order,
				updated_at = now()
		`, c.ID, lang, c.Name, c.Description, c.Icon, c.ImageRef, c.SortOrder); err != nil {
			return nil, fmt.Errorf("upsert category %s: %w", c.ID, err)
		}
	}

	for _, q := range parsed.Questions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_questions (
				id, category_id, lang, title, description, kind, selection_mode,
				required, sort_order, measurements_spec, file_upload_spec, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, NULLIF($5,''), $6, NULLIF($7,''),
				$8, $9, NULLIF($10,'')::jsonb, NULLIF($11,'')::jsonb, now(), now()
			)
			ON CONFLICT (id, lang) DO UPDATE SET
				category_id = EXCLUDED.category_id,
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				kind = EXCLUDED.kind,
				selection_mode = EXCLUDED.selection_mode,
				required = EXCLUDED.required,
				sort_order = EXCLUDED.sort_order,
				measurements_spec = EXCLUDED.measurements_spec,
				file_upload_spec = EXCLUDED.file_upload_spec,
				updated_at = now()
		`, q.ID, q.CategoryID, lang, q.Title, q.Description, q.Kind, q.SelectionMode,
			q.Required, q.SortOrder, q.MeasurementsSpec, q.FileUploadSpec); err != nil {
			return nil, fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}

	// Options and rules are replaced wholesale per imported question so
	// removed rows disappear.
	for _, q := range parsed.Questions {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM request_question_options WHERE question_id = $1 AND lang = $2
		`, q.ID, lang); err != nil {
			return nil, fmt.Errorf("clear options for %s: %w", q.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM question_visibility_rules WHERE question_id = $1 AND lang = $2
		`, q.ID, lang); err != nil {
			return nil, fmt.Errorf("clear rules for %s: %w", q.ID, err)
		}
	}

	for _, o := range parsed.Options {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_question_options (
				id, question_id, lang, text, value, sort_order, icon, description,
				is_addon, addon_parent_value, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, NULLIF($7,''), NULLIF($8,''),
				$9, NULLIF($10,''), now()
			)
		`, o.ID, o.QuestionID, lang, o.Text, o.Value, o.SortOrder, o.Icon, o.Description,
			o.IsAddon, o.AddonParentValue); err != nil {
			return nil, fmt.Errorf("insert option %s: %w", o.ID, err)
		}
	}

	for _, rule := range parsed.Rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO question_visibility_rules (question_id, parent_question_id, option_value, lang, created_at)
			VALUES ($1, $2, $3, $4, now())
		`, rule.QuestionID, rule.ParentQuestionID, rule.OptionValue, lang); err != nil {
			return nil, fmt.Errorf("insert rule for %s: %w", rule.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	report := &ImportReport{
		Categories: len(parsed.Categories),
		Questions:  len(parsed.Questions),
		Options:    len(parsed.Options),
		Rules:      len(parsed.Rules),
		Errors:     parsed.Errors,
	}

	_ = s.writeAudit(ctx, actorID, "catalog_imported", "catalog", lang, map[string]any{
		"categories": report.Categories,
		"questions":  report.Questions,
		"options":    report.Options,
		"rules":      report.Rules,
		"row_errors": len(report.Errors),
	})

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			return report, fmt.Errorf("invalidate catalog cache: %w", err)
		}
	}
	return report, nil
}

// ExportCatalogExcel renders the current catalog for one language back into
// the import workbook layout.
func (s *Service) ExportCatalogExcel(ctx context.Context, src catalog.Source, lang string) ([]byte, error) {
	categories, err := src.ListCategories(ctx, lang)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	catSheet := f.GetSheetName(0)
	_ = f.SetSheetName(catSheet, sheetCategories)
	writeHeader(f, sheetCategories, []string{"id", "name", "description", "icon", "image_ref", "sort_order"})
	for i, c := range categories {
		writeRow(f, sheetCategories, i+2, []any{c.ID, c.Name, c.Description, c.Icon, c.ImageURL, i})
	}

	_, _ = f.NewSheet(sheetQuestions)
	writeHeader(f, sheetQuestions, []string{"id", "category_id", "title", "description", "kind", "selection_mode", "required", "sort_order", "measurements_spec", "file_upload_spec"})
	_, _ = f.NewSheet(sheetOptions)
	writeHeader(f, sheetOptions, []string{"id", "question_id", "text", "value", "sort_order", "icon", "description", "is_addon", "addon_parent_value"})
	_, _ = f.NewSheet(sheetVisibility)
	writeHeader(f, sheetVisibility, []string{"question_id", "parent_question_id", "option_value"})

	qRow, oRow, vRow := 2, 2, 2
	for _, c := range categories {
		questions, err := src.ListQuestions(ctx, c.ID, lang)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			writeRow(f, sheetQuestions, qRow, []any{
				q.ID, q.CategoryID, q.Title, q.Description, string(q.Kind), string(q.SelectionMode),
				q.Required, q.SortOrder, marshalSpec(q.Measurements), marshalSpec(q.FileUpload),
			})
			qRow++
			for _, o := range q.Options {
				parent := ""
				if o.AddonParentValue != nil {
					parent = *o.AddonParentValue
				}
				writeRow(f, sheetOptions, oRow, []any{
					o.ID, q.ID, o.Text, o.Value, o.SortOrder, o.Icon, o.Description, o.IsAddon, parent,
				})
				oRow++
			}
			for _, rule := range q.VisibilityRules {
				writeRow(f, sheetVisibility, vRow, []any{q.ID, rule.ParentQuestionID, rule.OptionValue})
				vRow++
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func marshalSpec(v any) string {
	switch spec := v.(type) {
	case nil:
		return ""
	case *catalog.MeasurementsSpec:
		if spec == nil {
			return ""
		}
	case *catalog.FileUploadSpec:
		if spec == nil {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *Service) writeAudit(ctx context.Context, userID int64, action, entityType, entityID string, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
	`, userID, action, entityType, entityID, string(b))
	return err
}
