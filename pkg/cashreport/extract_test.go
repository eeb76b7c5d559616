package cashreport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
	"github.com/xuri/excelize/v2"
)

func saveWorkbook(t *testing.T, fill func(f *excelize.File, sheet string)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	fill(f, "Sheet1")

	tmpFile := filepath.Join(t.TempDir(), "relatorio.xlsx")
	if err := f.SaveAs(tmpFile); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
	return tmpFile
}

func TestResolveEndToEnd(t *testing.T) {
	path := saveWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetCellValue(sheet, "A1", 10)
		f.SetCellFormula(sheet, "B1", "SUM(A1:A1)")
	})

	got, err := Resolve(path, "B1", DefaultOptions())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != 10.0 {
		t.Errorf("B1 = %v, expected 10", got)
	}
}

func TestExtract(t *testing.T) {
	path := saveWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetCellValue(sheet, "A2", "data_movimento")
		f.SetCellValue(sheet, "A3", 46024)
		f.SetCellValue(sheet, "B3", 1500.25)
		f.SetCellFormula(sheet, "C3", "SUM(H1:H2)")
		f.SetCellValue(sheet, "F3", "1.000,00")
		f.SetCellValue(sheet, "H1", 300)
		f.SetCellValue(sheet, "H2", 200)
	})

	rep, err := Extract(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rep.BookName != "relatorio.xlsx" {
		t.Errorf("BookName = %q", rep.BookName)
	}
	if len(rep.Summaries) != 1 {
		t.Fatalf("got %d summaries, expected 1", len(rep.Summaries))
	}

	s := rep.Summaries[0]
	if s.Label != "02/01/2026" {
		t.Errorf("label = %q, expected 02/01/2026", s.Label)
	}
	if s.Entries == nil || *s.Entries != 1500.25 {
		t.Errorf("entries = %v", s.Entries)
	}
	if s.Payments == nil || *s.Payments != 500 {
		t.Errorf("payments = %v", s.Payments)
	}
	if s.Vouchers == nil || *s.Vouchers != 1000 {
		t.Errorf("vouchers = %v", s.Vouchers)
	}
	if s.DineIn != nil || s.Delivery != nil {
		t.Errorf("dine-in/delivery should be unavailable: %v %v", s.DineIn, s.Delivery)
	}
	if len(rep.Issues) != 0 {
		t.Errorf("unexpected issues: %v", rep.Issues)
	}
}

func TestExtractWithLayout(t *testing.T) {
	path := saveWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetCellValue(sheet, "B2", "sexta")
		f.SetCellValue(sheet, "B4", 10)
		f.SetCellValue(sheet, "B18", 5)
	})

	layout := report.Layout{
		Label: "B2", Entries: "B4", Payments: "B5", DineIn: "B6", Delivery: "B7", Vouchers: "B8",
		SlotOffset: 10, Slots: 2,
	}
	rep, err := Extract(path, Options{Layout: &layout})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rep.Summaries) != 2 {
		t.Fatalf("got %d summaries, expected 2", len(rep.Summaries))
	}
	if rep.Summaries[1].Vouchers == nil || *rep.Summaries[1].Vouchers != 5 {
		t.Errorf("slot 2 vouchers = %v, expected 5", rep.Summaries[1].Vouchers)
	}
}

func TestExtractErrors(t *testing.T) {
	tmpDir := t.TempDir()

	var extErr *ExtractionError
	_, err := Extract(filepath.Join(tmpDir, "missing.xlsx"), DefaultOptions())
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing file error = %v, expected ErrFileNotFound", err)
	}
	if !errors.As(err, &extErr) || extErr.Stage != "read" || extErr.Document != "missing.xlsx" {
		t.Errorf("missing file error = %#v", err)
	}

	notZip := filepath.Join(tmpDir, "notes.xlsx")
	if err := os.WriteFile(notZip, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := Extract(notZip, DefaultOptions()); !errors.Is(err, ErrNotAnArchive) {
		t.Errorf("non-zip error = %v, expected ErrNotAnArchive", err)
	}

	path := saveWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetCellValue(sheet, "A1", 1)
	})
	bad := report.DefaultLayout()
	bad.Slots = 0
	_, err = Extract(path, Options{Layout: &bad})
	if !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("layout error = %v, expected ErrInvalidLayout", err)
	}
	if !errors.As(err, &extErr) || extErr.Stage != "extract" {
		t.Errorf("layout error = %#v", err)
	}
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.EffectiveLayout() != report.DefaultLayout() {
		t.Error("default options should use the default layout")
	}
	if opts.FormulaOptions().PreferFormula {
		t.Error("default options should prefer cached values")
	}

	prefer := true
	opts.PreferFormula = &prefer
	if !opts.FormulaOptions().PreferFormula {
		t.Error("PreferFormula not applied")
	}
}
