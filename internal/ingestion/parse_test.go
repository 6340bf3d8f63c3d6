package ingestion

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	payload := []byte("name,age\nAlice,30\nBob,25\n")

	table, err := parseTable("people.csv", payload)
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}

	if len(table.headers) != 2 || table.headers[0] != "name" || table.headers[1] != "age" {
		t.Fatalf("unexpected headers: %v", table.headers)
	}
	if len(table.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.rows))
	}
	if table.rows[1][0] != "Bob" {
		t.Errorf("unexpected cell: %q", table.rows[1][0])
	}
}

func TestParseCSVStripsBOM(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,value\n1,x\n")...)

	table, err := parseTable("bom.csv", payload)
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if table.headers[0] != "id" {
		t.Errorf("BOM leaked into first header: %q", table.headers[0])
	}
}

func TestParseCSVPadsRaggedRows(t *testing.T) {
	payload := []byte("a,b,c\n1,2\n\n4,5,6,7\n")

	table, err := parseTable("ragged.csv", payload)
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if len(table.rows) != 2 {
		t.Fatalf("expected empty row dropped, got %d rows", len(table.rows))
	}
	if len(table.rows[0]) != 3 || table.rows[0][2] != "" {
		t.Errorf("short row not padded: %v", table.rows[0])
	}
	if len(table.rows[1]) != 3 {
		t.Errorf("long row not truncated to header width: %v", table.rows[1])
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	table, err := parseTable("empty.csv", []byte("col_a,col_b\n"))
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if len(table.rows) != 0 {
		t.Fatalf("expected 0 data rows, got %d", len(table.rows))
	}
}

func TestParseExcelFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Product", "Qty"},
		{"widget", 3},
		{"gadget", 5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set sheet row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	table, err := parseTable("inventory.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if len(table.headers) != 2 || table.headers[0] != "Product" {
		t.Fatalf("unexpected headers: %v", table.headers)
	}
	if len(table.rows) != 2 || table.rows[0][1] != "3" {
		t.Fatalf("unexpected rows: %v", table.rows)
	}
}

func TestParseExcelRejectsGarbage(t *testing.T) {
	if _, err := parseTable("broken.xlsx", []byte("this is not a workbook")); err == nil {
		t.Fatal("expected error for malformed workbook")
	}
	// Same decoding path covers the legacy extension.
	if _, err := parseTable("legacy.xls", []byte{0xD0, 0xCF, 0x11, 0xE0}); err == nil {
		t.Fatal("expected error for BIFF payload")
	}
}
