package masterdata

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, categories, questions, options, rules [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	_ = f.SetSheetName(f.GetSheetName(0), sheetCategories)
	fillSheet(t, f, sheetCategories, []string{"id", "name", "description", "icon", "image_ref", "sort_order"}, categories)

	_, _ = f.NewSheet(sheetQuestions)
	fillSheet(t, f, sheetQuestions, []string{"id", "category_id", "title", "kind", "selection_mode", "required", "sort_order", "measurements_spec", "file_upload_spec"}, questions)

	_, _ = f.NewSheet(sheetOptions)
	fillSheet(t, f, sheetOptions, []string{"id", "question_id", "text", "value", "sort_order", "is_addon", "addon_parent_value"}, options)

	if rules != nil {
		_, _ = f.NewSheet(sheetVisibility)
		fillSheet(t, f, sheetVisibility, []string{"question_id", "parent_question_id", "option_value"}, rules)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func fillSheet(t *testing.T, f *excelize.File, sheet string, headers []string, rows [][]any) {
	t.Helper()
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
}

func TestParseCatalogWorkbookOK(t *testing.T) {
	wb := buildWorkbook(t,
		[][]any{
			{"sofa", "Canapea", "Canapele la comanda", "sofa-icon", "", 1},
			{"table", "Masa", "", "", "", 2},
		},
		[][]any{
			{"q-style", "sofa", "Ce stil preferi?", "cards", "single", "true", 1, "", ""},
			{"q-size", "sofa", "Dimensiuni", "measurements", "", "true", 2, `{"fields":[{"id":"width","label":"Latime"}],"units":["cm"]}`, ""},
			{"q-photos", "table", "Poze de inspiratie", "file-upload", "", "false", 1, "", `{"acceptedTypes":["image/png"],"maxSize":10}`},
		},
		[][]any{
			{"opt-modern", "q-style", "Modern", "modern", 1, "false", ""},
			{"opt-classic", "q-style", "Clasic", "classic", 2, "false", ""},
			{"opt-usb", "q-style", "Port USB", "usb", 3, "true", "modern"},
		},
		[][]any{
			{"q-size", "q-style", "modern"},
		},
	)

	parsed, err := parseCatalogWorkbook(wb)
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if len(parsed.Errors) != 0 {
		t.Fatalf("unexpected row errors: %+v", parsed.Errors)
	}
	if len(parsed.Categories) != 2 || len(parsed.Questions) != 3 || len(parsed.Options) != 3 || len(parsed.Rules) != 1 {
		t.Fatalf("unexpected counts: %d categories, %d questions, %d options, %d rules",
			len(parsed.Categories), len(parsed.Questions), len(parsed.Options), len(parsed.Rules))
	}

	q := parsed.Questions[2]
	if q.ID != "q-photos" || q.Required {
		t.Fatalf("expected q-photos optional, got %+v", q)
	}
	o := parsed.Options[2]
	if !o.IsAddon || o.AddonParentValue != "modern" {
		t.Fatalf("expected usb addon bound to modern, got %+v", o)
	}
}

func TestParseCatalogWorkbookRequiredDefaultsTrue(t *testing.T) {
	wb := buildWorkbook(t,
		[][]any{{"sofa", "Canapea", "", "", "", 1}},
		[][]any{{"q-style", "sofa", "Stil", "cards", "", "", 1, "", ""}},
		[][]any{{"opt-a", "q-style", "A", "a", 1, "", ""}},
		nil,
	)

	parsed, err := parseCatalogWorkbook(wb)
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if len(parsed.Questions) != 1 || !parsed.Questions[0].Required {
		t.Fatalf("expected required=true by default, got %+v", parsed.Questions)
	}
}

func TestParseCatalogWorkbookCollectsRowErrors(t *testing.T) {
	wb := buildWorkbook(t,
		[][]any{
			{"sofa", "Canapea", "", "", "", 1},
			{"", "No ID", "", "", "", 2},
		},
		[][]any{
			{"q-style", "sofa", "Stil", "holograms", "", "true", 1, "", ""},
			{"q-size", "sofa", "Dimensiuni", "measurements", "", "true", 2, "{not json", ""},
			{"q-ok", "sofa", "OK", "cards", "", "true", 3, "", ""},
		},
		[][]any{
			{"opt-a", "q-ok", "A", "a", 1, "", ""},
			{"opt-ghost", "q-style", "Ghost", "g", 2, "", ""},
			{"opt-bad", "q-ok", "Bad", "b", 3, "false", "a"},
		},
		nil,
	)

	parsed, err := parseCatalogWorkbook(wb)
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}

	// bad category row, unknown kind, bad JSON, option for a dropped
	// question, addon parent on a non-addon
	if len(parsed.Errors) != 5 {
		t.Fatalf("expected 5 row errors, got %+v", parsed.Errors)
	}
	if len(parsed.Categories) != 1 || len(parsed.Questions) != 1 || len(parsed.Options) != 1 {
		t.Fatalf("unexpected surviving counts: %d categories, %d questions, %d options",
			len(parsed.Categories), len(parsed.Questions), len(parsed.Options))
	}
	if parsed.Questions[0].ID != "q-ok" || parsed.Options[0].ID != "opt-a" {
		t.Fatalf("wrong survivors: %+v / %+v", parsed.Questions, parsed.Options)
	}
}

func TestParseCatalogWorkbookMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetName(f.GetSheetName(0), sheetCategories)
	fillSheet(t, f, sheetCategories, []string{"id", "name"}, [][]any{{"sofa", "Canapea"}})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	_ = f.Close()

	if _, err := parseCatalogWorkbook(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected error for missing Questions sheet")
	}
}
