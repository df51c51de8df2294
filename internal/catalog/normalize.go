package catalog

import (
	"encoding/json"
	"log"
	"strings"
)

// questionRow mirrors a raw request_questions record before normalization.
// All fields are as stored, nullable columns already collapsed to zero values.
type questionRow struct {
	ID               string
	CategoryID       string
	Title            string
	Description      string
	Kind             string
	SelectionMode    string
	Required         *bool
	SortOrder        int
	MeasurementsSpec []byte
	FileUploadSpec   []byte
}

// normalizeQuestion converts a stored question row plus its option and rule
// rows into the uniform Question model.
func normalizeQuestion(row questionRow, opts []Option, rules []VisibilityRule) Question {
	q := Question{
		ID:              row.ID,
		CategoryID:      row.CategoryID,
		Title:           strings.TrimSpace(row.Title),
		Description:     strings.TrimSpace(row.Description),
		Kind:            normalizeKind(row.Kind),
		SelectionMode:   inferSelectionMode(row.SelectionMode, opts),
		Required:        row.Required == nil || *row.Required,
		SortOrder:       row.SortOrder,
		Options:         opts,
		VisibilityRules: rules,
	}
	if q.Title == "" {
		q.Title = "Untitled Question"
	}
	q.Measurements = parseMeasurementsSpec(row.ID, row.MeasurementsSpec)
	q.FileUpload = parseFileUploadSpec(row.ID, row.FileUploadSpec)
	return q
}

func normalizeKind(v string) QuestionKind {
	switch QuestionKind(strings.TrimSpace(strings.ToLower(v))) {
	case KindCards, KindMeasurements, KindFileUpload, KindText, KindNumber:
		return QuestionKind(strings.TrimSpace(strings.ToLower(v)))
	default:
		return KindCards
	}
}

// inferSelectionMode resolves the selection semantics of a cards question.
// An explicit stored mode wins; otherwise the presence of any addon option
// implies single-with-addon, and plain single is the default.
func inferSelectionMode(stored string, opts []Option) SelectionMode {
	switch SelectionMode(strings.TrimSpace(strings.ToLower(stored))) {
	case SelectionSingle, SelectionMultiple, SelectionSingleWithAddon:
		return SelectionMode(strings.TrimSpace(strings.ToLower(stored)))
	}
	for _, opt := range opts {
		if opt.IsAddon {
			return SelectionSingleWithAddon
		}
	}
	return SelectionSingle
}

// parseMeasurementsSpec decodes a measurements_spec payload. A malformed
// payload yields nil so the question still renders without the feature.
func parseMeasurementsSpec(questionID string, raw []byte) *MeasurementsSpec {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var spec MeasurementsSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		log.Printf("catalog: question %s has malformed measurements config, ignoring: %v", questionID, err)
		return nil
	}
	if len(spec.Fields) == 0 {
		return nil
	}
	if spec.DefaultUnit == "" && len(spec.Units) > 0 {
		spec.DefaultUnit = spec.Units[0]
	}
	return &spec
}

// parseFileUploadSpec decodes a file_upload_spec payload, same degradation
// rule as measurements.
func parseFileUploadSpec(questionID string, raw []byte) *FileUploadSpec {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var spec FileUploadSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		log.Printf("catalog: question %s has malformed file upload config, ignoring: %v", questionID, err)
		return nil
	}
	if spec.MaxFiles <= 0 {
		spec.MaxFiles = 5
	}
	if spec.MaxSizeMB <= 0 {
		spec.MaxSizeMB = 10
	}
	return &spec
}
