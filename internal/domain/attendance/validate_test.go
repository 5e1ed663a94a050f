package attendance

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validRow() map[string]string {
	return map[string]string{
		"EP Number":    "EMP001",
		"Name":         "John Michael Doe",
		"Company Name": "ABC Company",
		"Plant":        "Plant 1",
		"Department":   "Production",
		"Trade":        "Welder",
		"Skill":        "Skilled",
		"Shift":        "Day",
		"Date":         "01-01-2024",
		"IN1":          "08:00",
		"OUT1":         "17:00",
		"Hours Worked": "8:00",
		"Overtime":     "1:30",
		"Status":       "P",
	}
}

func TestValidateRowAccepted(t *testing.T) {
	rec, rowErr := ValidateRow(2, validRow())
	if rowErr != nil {
		t.Fatalf("unexpected row error: %v", rowErr)
	}
	if rec.EPNumber != "EMP001" {
		t.Fatalf("ep number = %q", rec.EPNumber)
	}
	if rec.Date.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("date = %v", rec.Date)
	}
	if rec.In1 == nil || rec.In1.String() != "08:00" {
		t.Fatalf("in1 = %v", rec.In1)
	}
	if rec.In2 != nil {
		t.Fatalf("in2 should be absent, got %v", rec.In2)
	}
	if !rec.HoursWorked.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("hours worked = %s", rec.HoursWorked)
	}
	if !rec.Overtime.Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("overtime = %s", rec.Overtime)
	}
}

func TestValidateRowMissingEPNumberShortCircuits(t *testing.T) {
	row := validRow()
	row["EP Number"] = "  "
	row["Date"] = "not a date"

	_, rowErr := ValidateRow(4, row)
	if rowErr == nil {
		t.Fatal("expected row error")
	}
	if rowErr.Kind != FailureMissingField {
		t.Fatalf("kind = %s, want %s", rowErr.Kind, FailureMissingField)
	}
	if rowErr.Number != 4 {
		t.Fatalf("row number = %d, want 4", rowErr.Number)
	}
	if !strings.Contains(rowErr.Message, "EP Number") {
		t.Fatalf("message %q does not name the field", rowErr.Message)
	}
}

func TestValidateRowBadDate(t *testing.T) {
	row := validRow()
	row["Date"] = "2024-01-01"

	_, rowErr := ValidateRow(3, row)
	if rowErr == nil || rowErr.Kind != FailureInvalidFormat {
		t.Fatalf("expected invalid_format error, got %v", rowErr)
	}
	if !strings.Contains(rowErr.Message, "DD-MM-YYYY") {
		t.Fatalf("message %q does not name the expected format", rowErr.Message)
	}
}

func TestValidateRowBadPunchTime(t *testing.T) {
	row := validRow()
	row["OUT1"] = "25:99"

	_, rowErr := ValidateRow(3, row)
	if rowErr == nil || rowErr.Kind != FailureInvalidFormat {
		t.Fatalf("expected invalid_format error, got %v", rowErr)
	}
}

func TestValidateRowLenientHours(t *testing.T) {
	row := validRow()
	row["Hours Worked"] = "garbage"
	row["Overtime"] = ""

	rec, rowErr := ValidateRow(2, row)
	if rowErr != nil {
		t.Fatalf("lenient hour parsing must not reject the row: %v", rowErr)
	}
	if !rec.HoursWorked.IsZero() || !rec.Overtime.IsZero() {
		t.Fatalf("expected zero hours, got %s / %s", rec.HoursWorked, rec.Overtime)
	}
}

func TestValidateRowDefaultsStatus(t *testing.T) {
	row := validRow()
	row["Status"] = ""

	rec, rowErr := ValidateRow(2, row)
	if rowErr != nil {
		t.Fatalf("unexpected row error: %v", rowErr)
	}
	if rec.Status != StatusPresent {
		t.Fatalf("status = %q, want %q", rec.Status, StatusPresent)
	}
}
