package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// rawTable is the parser output before column sanitization and typing:
// the header row as found in the file plus the data rows padded to its width.
type rawTable struct {
	headers []string
	rows    [][]string
}

// parseTable decodes the payload according to the filename's extension.
// The extension must already have passed ValidateFileName; a format the
// decoder cannot read is a processing error, never a silent empty table.
func parseTable(fileName string, payload []byte) (rawTable, error) {
	switch FileExtension(fileName) {
	case "csv":
		return parseCSV(payload)
	case "xlsx", "xls":
		return parseExcel(payload)
	default:
		return rawTable{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, FileExtension(fileName))
	}
}

func parseCSV(payload []byte) (rawTable, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return rawTable{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records)
}

// parseExcel reads the first sheet of an OOXML workbook. Legacy BIFF .xls
// content that the decoder cannot open surfaces here as a processing error.
func parseExcel(payload []byte) (rawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return rawTable{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return rawTable{}, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return rawTable{}, fmt.Errorf("failed to read rows from sheet %q: %w", sheets[0], err)
	}

	return normalizeTable(rows)
}

// normalizeTable picks the first non-empty row as the header, pads ragged
// data rows to the header width, and drops rows that are entirely blank.
func normalizeTable(records [][]string) (rawTable, error) {
	if len(records) == 0 {
		return rawTable{}, errors.New("no rows found in file")
	}

	var headers []string
	var dataRows [][]string
	for _, row := range records {
		if rowIsEmpty(row) {
			continue
		}
		if headers == nil {
			headers = row
			continue
		}
		dataRows = append(dataRows, row)
	}

	if len(headers) == 0 {
		return rawTable{}, errors.New("header row could not be detected")
	}

	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return rawTable{headers: headers, rows: dataRows}, nil
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
