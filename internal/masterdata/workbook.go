package masterdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names the catalog workbook must carry. Visibility is optional.
const (
	sheetCategories = "Categories"
	sheetQuestions  = "Questions"
	sheetOptions    = "Options"
	sheetVisibility = "Visibility"
)

var validKinds = map[string]bool{
	"cards":        true,
	"measurements": true,
	"file-upload":  true,
	"text":         true,
	"number":       true,
}

var validSelectionModes = map[string]bool{
	"":                  true,
	"single":            true,
	"multiple":          true,
	"single-with-addon": true,
}

type ImportCategory struct {
	ID          string
	Name        string
	Description string
	Icon        string
	ImageRef    string
	SortOrder   int
}

type ImportQuestion struct {
	ID               string
	CategoryID       string
	Title            string
	Description      string
	Kind             string
	SelectionMode    string
	Required         bool
	SortOrder        int
	MeasurementsSpec string
	FileUploadSpec   string
}

type ImportOption struct {
	ID               string
	QuestionID       string
	Text             string
	Value            string
	SortOrder        int
	Icon             string
	Description      string
	IsAddon          bool
	AddonParentValue string
}

type ImportRule struct {
	QuestionID       string
	ParentQuestionID string
	OptionValue      string
}

type RowError struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// CatalogImport is the parsed, validated workbook content. Parsing never
// touches the database so it is testable in isolation.
type CatalogImport struct {
	Categories []ImportCategory
	Questions  []ImportQuestion
	Options    []ImportOption
	Rules      []ImportRule
	Errors     []RowError
}

func parseCatalogWorkbook(r io.Reader) (*CatalogImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := &CatalogImport{Errors: make([]RowError, 0)}

	catRows, err := sheetRows(f, sheetCategories)
	if err != nil {
		return nil, err
	}
	parseCategories(catRows, out)

	qRows, err := sheetRows(f, sheetQuestions)
	if err != nil {
		return nil, err
	}
	parseQuestions(qRows, out)

	optRows, err := sheetRows(f, sheetOptions)
	if err != nil {
		return nil, err
	}
	parseOptions(optRows, out)

	if hasSheet(f, sheetVisibility) {
		visRows, err := sheetRows(f, sheetVisibility)
		if err != nil {
			return nil, err
		}
		parseRules(visRows, out)
	}

	crossValidate(out)
	return out, nil
}

func hasSheet(f *excelize.File, name string) bool {
	for _, s := range f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

func sheetRows(f *excelize.File, name string) ([][]string, error) {
	if !hasSheet(f, name) {
		return nil, fmt.Errorf("missing required sheet: %s", name)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", name)
	}
	return rows, nil
}

type sheetReader struct {
	header map[string]int
	row    []string
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, " ", "_")
		if h != "" {
			idx[h] = i
		}
	}
	return idx
}

func (s sheetReader) get(key string) string {
	i, ok := s.header[key]
	if !ok || i >= len(s.row) {
		return ""
	}
	return strings.TrimSpace(s.row[i])
}

func (s sheetReader) getInt(key string) (int, error) {
	v := s.get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s is not a number: %q", key, v)
	}
	return n, nil
}

// getBool treats blank as the default: required defaults true, is_addon
// defaults false.
func (s sheetReader) getBool(key string, def bool) (bool, error) {
	v := strings.ToLower(s.get(key))
	switch v {
	case "":
		return def, nil
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return def, fmt.Errorf("%s is not a boolean: %q", key, v)
	}
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseCategories(rows [][]string, out *CatalogImport) {
	header := headerIndex(rows[0])
	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		r := sheetReader{header: header, row: rows[i]}
		c := ImportCategory{
			ID:          r.get("id"),
			Name:        r.get("name"),
			Description: r.get("description"),
			Icon:        r.get("icon"),
			ImageRef:    r.get("image_ref"),
		}
		sortOrder, err := r.getInt("sort_order")
		if err != nil {
			out.Errors = append(out.Errors, RowError{Sheet: sheetCategories, Row: i + 1, Error: err.Error()})
			continue
		}
		c.SortOrder = sortOrder
		if c.ID == "" || c.Name == "" {
			out.Errors = append(out.Errors, RowError{Sheet: sheetCategories, Row: i + 1, Error: "id and name are required"})
			continue
		}
		out.Categories = append(out.Categories, c)
	}
}

func parseQuestions(rows [][]string, out *CatalogImport) {
	header := headerIndex(rows[0])
	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		r := sheetReader{header: header, row: rows[i]}
		q := ImportQuestion{
			ID:               r.get("id"),
			CategoryID:       r.get("category_id"),
			Title:            r.get("title"),
			Description:      r.get("description"),
			Kind:             strings.ToLower(r.get("kind")),
			SelectionMode:    strings.ToLower(r.get("selection_mode")),
			MeasurementsSpec: r.get("measurements_spec"),
			FileUploadSpec:   r.get("file_upload_spec"),
		}
		if q.ID == "" || q.CategoryID == "" {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: "id and category_id are required"})
			continue
		}
		if q.Kind == "" {
			q.Kind = "cards"
		}
		if !validKinds[q.Kind] {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: fmt.Sprintf("unknown kind: %q", q.Kind)})
			continue
		}
		if !validSelectionModes[q.SelectionMode] {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: fmt.Sprintf("unknown selection_mode: %q", q.SelectionMode)})
			continue
		}
		required, err := r.getBool("required", true)
		if err != nil {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: err.Error()})
			continue
		}
		q.Required = required
		sortOrder, err := r.getInt("sort_order")
		if err != nil {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: err.Error()})
			continue
		}
		q.SortOrder = sortOrder
		if q.MeasurementsSpec != "" && !json.Valid([]byte(q.MeasurementsSpec)) {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: "measurements_spec is not valid JSON"})
			continue
		}
		if q.FileUploadSpec != "" && !json.Valid([]byte(q.FileUploadSpec)) {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: i + 1, Error: "file_upload_spec is not valid JSON"})
			continue
		}
		out.Questions = append(out.Questions, q)
	}
}

func parseOptions(rows [][]string, out *CatalogImport) {
	header := headerIndex(rows[0])
	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		r := sheetReader{header: header, row: rows[i]}
		o := ImportOption{
			ID:               r.get("id"),
			QuestionID:       r.get("question_id"),
			Text:             r.get("text"),
			Value:            r.get("value"),
			Icon:             r.get("icon"),
			Description:      r.get("description"),
			AddonParentValue: r.get("addon_parent_value"),
		}
		if o.ID == "" || o.QuestionID == "" || o.Value == "" {
			out.Errors = append(out.Errors, RowError{Sheet: sheetOptions, Row: i + 1, Error: "id, question_id and value are required"})
			continue
		}
		isAddon, err := r.getBool("is_addon", false)
		if err != nil {
			out.Errors = append(out.Errors, RowError{Sheet: sheetOptions, Row: i + 1, Error: err.Error()})
			continue
		}
		o.IsAddon = isAddon
		if o.AddonParentValue != "" && !o.IsAddon {
			out.Errors = append(out.Errors, RowError{Sheet: sheetOptions, Row: i + 1, Error: "addon_parent_value set on a non-addon option"})
			continue
		}
		sortOrder, err := r.getInt("sort_order")
		if err != nil {
			out.Errors = append(out.Errors, RowError{Sheet: sheetOptions, Row: i + 1, Error: err.Error()})
			continue
		}
		o.SortOrder = sortOrder
		out.Options = append(out.Options, o)
	}
}

func parseRules(rows [][]string, out *CatalogImport) {
	header := headerIndex(rows[0])
	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		r := sheetReader{header: header, row: rows[i]}
		rule := ImportRule{
			QuestionID:       r.get("question_id"),
			ParentQuestionID: r.get("parent_question_id"),
			OptionValue:      r.get("option_value"),
		}
		if rule.QuestionID == "" || rule.ParentQuestionID == "" || rule.OptionValue == "" {
			out.Errors = append(out.Errors, RowError{Sheet: sheetVisibility, Row: i + 1, Error: "question_id, parent_question_id and option_value are required"})
			continue
		}
		out.Rules = append(out.Rules, rule)
	}
}

// crossValidate drops rows whose foreign references never made it through
// parsing, so the apply step only sees a consistent set.
func crossValidate(out *CatalogImport) {
	categories := make(map[string]bool, len(out.Categories))
	for _, c := range out.Categories {
		categories[c.ID] = true
	}

	questions := make(map[string]bool, len(out.Questions))
	kept := out.Questions[:0]
	for _, q := range out.Questions {
		if !categories[q.CategoryID] {
			out.Errors = append(out.Errors, RowError{Sheet: sheetQuestions, Row: 0, Error: fmt.Sprintf("question %s references unknown category %s", q.ID, q.CategoryID)})
			continue
		}
		questions[q.ID] = true
		kept = append(kept, q)
	}
	out.Questions = kept

	keptOpts := out.Options[:0]
	for _, o := range out.Options {
		if !questions[o.QuestionID] {
			out.Errors = append(out.Errors, RowError{Sheet: sheetOptions, Row: 0, Error: fmt.Sprintf("option %s references unknown question %s", o.ID, o.QuestionID)})
			continue
		}
		keptOpts = append(keptOpts, o)
	}
	out.Options = keptOpts

	keptRules := out.Rules[:0]
	for _, rule := range out.Rules {
		if !questions[rule.QuestionID] || !questions[rule.ParentQuestionID] {
			out.Errors = append(out.Errors, RowError{Sheet: sheetVisibility, Row: 0, Error: fmt.Sprintf("rule on %s references unknown question", rule.QuestionID)})
			continue
		}
		keptRules = append(keptRules, rule)
	}
	out.Rules = keptRules

	if len(out.Categories) == 0 {
		out.Errors = append(out.Errors, RowError{Sheet: sheetCategories, Row: 0, Error: "no valid categories"})
	}
}

var errNoValidRows = errors.New("workbook has no valid rows")
