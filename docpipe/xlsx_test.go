package docpipe

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractXLSX_SingleSheet(t *testing.T) {
	// WHAT: Rows [["A","B"],[nil,"C"]] give "Sheet: Sheet1\nA | B\nC".
	// WHY: Empty cells are dropped but row order and the sheet header stay.
	data := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "A")
		f.SetCellValue("Sheet1", "B1", "B")
		f.SetCellValue("Sheet1", "B2", "C")
	})

	pipe := New(Config{})
	doc, err := pipe.Extract(context.Background(), "book.xlsx", data)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected one page per workbook, got %d", len(doc.Pages))
	}
	if want := "Sheet: Sheet1\nA | B\nC"; doc.Pages[0] != want {
		t.Errorf("Pages[0] = %q, want %q", doc.Pages[0], want)
	}
	if doc.Format != FormatXLSX {
		t.Errorf("Format = %q", doc.Format)
	}
}

func TestExtractXLSX_MultipleSheetsAndEmptyRows(t *testing.T) {
	data := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "first")
		f.SetCellValue("Sheet1", "A3", "third")
		f.NewSheet("Totals")
		f.SetCellValue("Totals", "A1", "sum")
		f.SetCellValue("Totals", "B1", 42)
	})

	got, err := extractXLSX(data)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Sheet: Sheet1\nfirst\nthird\nSheet: Totals\nsum | 42"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractXLSX_NotAWorkbook(t *testing.T) {
	pipe := New(Config{})
	_, err := pipe.Extract(context.Background(), "broken.xlsx", []byte("plain text, not a workbook"))
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}
