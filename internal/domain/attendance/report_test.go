package attendance

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func TestErrorReportBytes(t *testing.T) {
	report := NewErrorReport([]string{"EP Number", "Name", "Date"})
	if !report.Empty() {
		t.Fatal("fresh report should be empty")
	}

	report.Add(FailedRow{
		Number:  4,
		Message: "EP Number is required",
		Fields:  map[string]string{"Name": "John Doe", "Date": "01-01-2024"},
	})
	report.Add(FailedRow{
		Number:  7,
		Message: "invalid date format: 2024/01/01. Expected DD-MM-YYYY",
		Fields:  map[string]string{"EP Number": "EMP002", "Name": "Jane Smith", "Date": "2024/01/01"},
	})

	data, err := report.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	wantHeader := []string{"Row_Number", "Error_Message", "EP Number", "Name", "Date"}
	for i, column := range wantHeader {
		if records[0][i] != column {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], column)
		}
	}
	if records[1][0] != "4" || records[1][1] != "EP Number is required" {
		t.Fatalf("first failure row = %v", records[1])
	}
	if records[1][2] != "" || records[1][3] != "John Doe" {
		t.Fatalf("original fields out of order: %v", records[1])
	}
	if records[2][0] != "7" || records[2][2] != "EMP002" {
		t.Fatalf("second failure row = %v", records[2])
	}
}

func TestErrorReportFilename(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 30, 9, 0, time.UTC)
	got := ErrorReportFilename("attendance.csv", at)
	want := "errors_attendance.csv_20240305_143009.csv"
	if got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}
