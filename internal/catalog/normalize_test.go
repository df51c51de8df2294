package catalog

import "testing"

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

func TestNormalizeQuestionDefaults(t *testing.T) {
	q := normalizeQuestion(questionRow{
		ID:         "q1",
		CategoryID: "sofa",
	}, nil, nil)

	if q.Title != "Untitled Question" {
		t.Fatalf("expected fallback title, got %q", q.Title)
	}
	if q.Kind != KindCards {
		t.Fatalf("expected cards kind, got %s", q.Kind)
	}
	if q.SelectionMode != SelectionSingle {
		t.Fatalf("expected single mode, got %s", q.SelectionMode)
	}
	if !q.Required {
		t.Fatal("expected required by default")
	}
}

func TestNormalizeQuestionRequired(t *testing.T) {
	cases := []struct {
		name     string
		required *bool
		want     bool
	}{
		{"nil means required", nil, true},
		{"explicit true", boolPtr(true), true},
		{"explicit false", boolPtr(false), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := normalizeQuestion(questionRow{ID: "q1", Required: tc.required}, nil, nil)
			if q.Required != tc.want {
				t.Fatalf("required = %v, want %v", q.Required, tc.want)
			}
		})
	}
}

func TestInferSelectionMode(t *testing.T) {
	addon := Option{Value: "usb", IsAddon: true}
	main := Option{Value: "modern"}

	cases := []struct {
		name   string
		stored string
		opts   []Option
		want   SelectionMode
	}{
		{"explicit multiple wins over addon presence", "multiple", []Option{main, addon}, SelectionMultiple},
		{"addon presence implies single-with-addon", "", []Option{main, addon}, SelectionSingleWithAddon},
		{"no addons defaults to single", "", []Option{main}, SelectionSingle},
		{"unknown stored value falls through to inference", "carousel", []Option{main, addon}, SelectionSingleWithAddon},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := inferSelectionMode(tc.stored, tc.opts); got != tc.want {
				t.Fatalf("inferSelectionMode = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNormalizeKindUnknownFallsBackToCards(t *testing.T) {
	if got := normalizeKind("hologram"); got != KindCards {
		t.Fatalf("expected cards, got %s", got)
	}
	if got := normalizeKind(" File-Upload "); got != KindFileUpload {
		t.Fatalf("expected file-upload, got %s", got)
	}
}

func TestParseMeasurementsSpec(t *testing.T) {
	spec := parseMeasurementsSpec("q1", []byte(`{"fields":[{"id":"width","label":"Latime"}],"units":["cm","mm"]}`))
	if spec == nil {
		t.Fatal("expected spec")
	}
	if spec.DefaultUnit != "cm" {
		t.Fatalf("expected default unit from first entry, got %q", spec.DefaultUnit)
	}

	if parseMeasurementsSpec("q1", []byte(`{broken`)) != nil {
		t.Fatal("malformed config must degrade to nil")
	}
	if parseMeasurementsSpec("q1", nil) != nil {
		t.Fatal("empty config must be nil")
	}
	if parseMeasurementsSpec("q1", []byte(`null`)) != nil {
		t.Fatal("null config must be nil")
	}
	if parseMeasurementsSpec("q1", []byte(`{"fields":[]}`)) != nil {
		t.Fatal("config without fields must be nil")
	}
}

func TestParseFileUploadSpecDefaults(t *testing.T) {
	spec := parseFileUploadSpec("q1", []byte(`{"acceptedTypes":["image/png"]}`))
	if spec == nil {
		t.Fatal("expected spec")
	}
	if spec.MaxFiles != 5 || spec.MaxSizeMB != 10 {
		t.Fatalf("expected defaults 5 files / 10 MB, got %d / %d", spec.MaxFiles, spec.MaxSizeMB)
	}

	if parseFileUploadSpec("q1", []byte(`not json`)) != nil {
		t.Fatal("malformed config must degrade to nil")
	}
}

func TestQuestionOptionPartition(t *testing.T) {
	q := Question{
		SelectionMode: SelectionSingleWithAddon,
		Options: []Option{
			{Value: "modern"},
			{Value: "classic"},
			{Value: "usb", IsAddon: true, AddonParentValue: strPtr("modern")},
			{Value: "led", IsAddon: true},
		},
	}

	if got := len(q.MainOptions()); got != 2 {
		t.Fatalf("expected 2 main options, got %d", got)
	}
	if got := len(q.AddonOptions()); got != 2 {
		t.Fatalf("expected 2 addon options, got %d", got)
	}
	if !q.IsMainValue("classic") || q.IsMainValue("usb") {
		t.Fatal("IsMainValue must only match non-addon values")
	}
	if _, ok := q.FindAddon("usb"); !ok {
		t.Fatal("expected to find usb addon")
	}
	if _, ok := q.FindAddon("modern"); ok {
		t.Fatal("main options must not match FindAddon")
	}
}
