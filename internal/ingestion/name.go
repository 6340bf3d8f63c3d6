package ingestion

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned when an uploaded file is not csv/xlsx/xls.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrMissingFileName is returned when an ingestion request carries no filename.
var ErrMissingFileName = errors.New("file name is required")

// ErrEmptyFile is returned when an uploaded file has no bytes at all.
var ErrEmptyFile = errors.New("file is empty")

// supported extensions, keyed by the lowercased text after the last dot.
var supportedExtensions = map[string]bool{
	"csv":  true,
	"xlsx": true,
	"xls":  true,
}

// FileExtension extracts the lowercased extension (text after the last dot).
// Returns an empty string when the filename has no dot.
func FileExtension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

// ValidateFileName checks that a filename is present and carries a supported
// extension. Failures here are client errors, not processing errors.
func ValidateFileName(fileName string) error {
	if strings.TrimSpace(fileName) == "" {
		return ErrMissingFileName
	}
	ext := FileExtension(fileName)
	if !supportedExtensions[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}

// DeriveTableName builds the target table name for one ingested file:
// raw_{sanitized filename}_{unix seconds}. The full filename including its
// extension is sanitized, so "Sales Report.xlsx" lands in
// raw_sales_report_xlsx_<ts>.
func DeriveTableName(fileName string, at time.Time) string {
	name := SanitizeIdentifier(fileName)
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("raw_%s_%d", name, at.Unix())
}
