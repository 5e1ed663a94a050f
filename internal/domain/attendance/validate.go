package attendance

import "strings"

// Row-failure kinds. A failure of any kind rejects the row and never
// the run.
const (
	FailureMissingField  = "missing_field"
	FailureInvalidFormat = "invalid_format"
	FailureResolver      = "resolver_failed"
	FailureStore         = "store_failed"
)

// RowError describes why one upload row was rejected. Number is the
// 1-based position in the file, counting the header as row 1.
type RowError struct {
	Number  int
	Kind    string
	Message string
}

func (e *RowError) Error() string {
	return e.Message
}

func missingField(number int, field string) *RowError {
	return &RowError{Number: number, Kind: FailureMissingField, Message: field + " is required"}
}

func invalidFormat(number int, err error) *RowError {
	return &RowError{Number: number, Kind: FailureInvalidFormat, Message: err.Error()}
}

// ValidateRow normalizes one raw row. The EP number check short-circuits
// before anything is parsed; then the date and the six punch times are
// parsed strictly, while the hour columns coerce leniently to zero.
func ValidateRow(number int, fields map[string]string) (NormalizedRecord, *RowError) {
	var rec NormalizedRecord

	epNumber := strings.TrimSpace(fields[EPNumberColumn])
	if epNumber == "" {
		return rec, missingField(number, EPNumberColumn)
	}
	rec.EPNumber = epNumber

	date, err := ParseCalendarDate(fields["Date"])
	if err != nil {
		return rec, invalidFormat(number, err)
	}
	rec.Date = date

	punches := []struct {
		column string
		target **TimeOfDay
	}{
		{"IN1", &rec.In1},
		{"OUT1", &rec.Out1},
		{"IN2", &rec.In2},
		{"OUT2", &rec.Out2},
		{"IN3", &rec.In3},
		{"OUT3", &rec.Out3},
	}
	for _, punch := range punches {
		parsed, err := ParseTimeOfDay(fields[punch.column])
		if err != nil {
			return rec, invalidFormat(number, err)
		}
		*punch.target = parsed
	}

	rec.HoursWorked = ParseDurationHours(fields["Hours Worked"])
	rec.Overtime = ParseDurationHours(fields["Overtime"])

	rec.Status = strings.TrimSpace(fields["Status"])
	if rec.Status == "" {
		rec.Status = StatusPresent
	}

	rec.Name = strings.TrimSpace(fields["Name"])
	rec.CompanyName = strings.TrimSpace(fields["Company Name"])
	rec.Plant = strings.TrimSpace(fields["Plant"])
	rec.Department = strings.TrimSpace(fields["Department"])
	rec.Trade = strings.TrimSpace(fields["Trade"])
	rec.Skill = strings.TrimSpace(fields["Skill"])
	rec.Shift = strings.TrimSpace(fields["Shift"])

	return rec, nil
}
