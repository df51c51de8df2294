package catalog

// Category is a furniture type homeowners can request. Rows are reference
// data maintained by admin tooling; the application only reads them.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	ImageURL    string `json:"image_url,omitempty"`
	LangCode    string `json:"lang_code"`
}

type QuestionKind string

const (
	KindCards        QuestionKind = "cards"
	KindMeasurements QuestionKind = "measurements"
	KindFileUpload   QuestionKind = "file-upload"
	KindText         QuestionKind = "text"
	KindNumber       QuestionKind = "number"
)

type SelectionMode string

const (
	SelectionSingle          SelectionMode = "single"
	SelectionMultiple        SelectionMode = "multiple"
	SelectionSingleWithAddon SelectionMode = "single-with-addon"
)

// Option is one selectable choice of a cards question. Value is the stable
// identifier stored in answers; ID is the row id and may differ.
type Option struct {
	ID               string  `json:"id"`
	Text             string  `json:"text"`
	Value            string  `json:"value"`
	SortOrder        int     `json:"sort_order"`
	Icon             string  `json:"icon,omitempty"`
	Description      string  `json:"description,omitempty"`
	IsAddon          bool    `json:"is_addon"`
	AddonParentValue *string `json:"addon_parent_value,omitempty"`
}

type MeasurementField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

type MeasurementsSpec struct {
	Fields      []MeasurementField `json:"fields"`
	Units       []string           `json:"units"`
	DefaultUnit string             `json:"defaultUnit"`
}

type FileUploadSpec struct {
	AcceptedTypes []string `json:"acceptedTypes"`
	MaxSizeMB     int      `json:"maxSize"`
	MaxFiles      int      `json:"maxFiles"`
	Description   string   `json:"description"`
	HelpGif       string   `json:"helpGif,omitempty"`
}

// VisibilityRule makes a child question's inclusion depend on a prior answer.
// A child with no rules is always visible; with rules, any satisfied rule
// makes it visible.
type VisibilityRule struct {
	ParentQuestionID string `json:"parent_question_id"`
	OptionValue      string `json:"option_value"`
	ChildQuestionID  string `json:"child_question_id"`
}

type Question struct {
	ID              string            `json:"id"`
	CategoryID      string            `json:"category_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Kind            QuestionKind      `json:"kind"`
	SelectionMode   SelectionMode     `json:"selection_mode"`
	Required        bool              `json:"required"`
	SortOrder       int               `json:"sort_order"`
	Options         []Option          `json:"options,omitempty"`
	Measurements    *MeasurementsSpec `json:"measurements,omitempty"`
	FileUpload      *FileUploadSpec   `json:"file_upload,omitempty"`
	VisibilityRules []VisibilityRule  `json:"visibility_rules,omitempty"`
}

// MainOptions returns the non-addon options in stored order.
func (q *Question) MainOptions() []Option {
	out := make([]Option, 0, len(q.Options))
	for _, opt := range q.Options {
		if !opt.IsAddon {
			out = append(out, opt)
		}
	}
	return out
}

// AddonOptions returns the addon-flagged options in stored order.
func (q *Question) AddonOptions() []Option {
	out := make([]Option, 0)
	for _, opt := range q.Options {
		if opt.IsAddon {
			out = append(out, opt)
		}
	}
	return out
}

func (q *Question) IsMainValue(value string) bool {
	for _, opt := range q.Options {
		if !opt.IsAddon && opt.Value == value {
			return true
		}
	}
	return false
}

func (q *Question) FindAddon(value string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsAddon && opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}
