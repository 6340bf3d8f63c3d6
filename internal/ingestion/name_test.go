package ingestion

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestValidateFileName(t *testing.T) {
	accepted := []string{"data.csv", "data.CSV", "Report.XLSX", "legacy.xls", "a.b.csv"}
	for _, name := range accepted {
		if err := ValidateFileName(name); err != nil {
			t.Errorf("ValidateFileName(%q) = %v, want nil", name, err)
		}
	}

	rejected := []string{"report.pdf", "noextension", "archive.tar.gz", "csv"}
	for _, name := range rejected {
		if err := ValidateFileName(name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ValidateFileName(%q) = %v, want ErrUnsupportedFormat", name, err)
		}
	}

	if err := ValidateFileName("  "); !errors.Is(err, ErrMissingFileName) {
		t.Errorf("ValidateFileName(blank) = %v, want ErrMissingFileName", err)
	}
}

func TestDeriveTableName(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := DeriveTableName("Sales Report.xlsx", at)
	want := fmt.Sprintf("raw_sales_report_xlsx_%d", at.Unix())
	if got != want {
		t.Errorf("DeriveTableName = %q, want %q", got, want)
	}

	if got := DeriveTableName("???", at); got != fmt.Sprintf("raw_file_%d", at.Unix()) {
		t.Errorf("unexpected fallback name %q", got)
	}
}
