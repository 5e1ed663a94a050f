package attendance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// ErrorReport accumulates rejected rows and serializes them into the
// downloadable error CSV. Columns are Row_Number, Error_Message, then
// the original headers in their original order, so a fixed file can be
// re-uploaded after trimming the two leading columns.
type ErrorReport struct {
	headers []string
	rows    []FailedRow
}

func NewErrorReport(headers []string) *ErrorReport {
	return &ErrorReport{headers: headers}
}

func (r *ErrorReport) Add(row FailedRow) {
	r.rows = append(r.rows, row)
}

func (r *ErrorReport) Empty() bool {
	return len(r.rows) == 0
}

func (r *ErrorReport) Count() int {
	return len(r.rows)
}

func (r *ErrorReport) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := append([]string{"Row_Number", "Error_Message"}, r.headers...)
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, failed := range r.rows {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(failed.Number), failed.Message)
		for _, column := range r.headers {
			record = append(record, failed.Fields[column])
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrorReportFilename names the artifact after the uploaded file and
// the moment the run finished.
func ErrorReportFilename(originalFilename string, now time.Time) string {
	return fmt.Sprintf("errors_%s_%s.csv", originalFilename, now.Format("20060102_150405"))
}
