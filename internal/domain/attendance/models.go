package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status codes match the values accepted on upload sheets.
const (
	StatusPresent          = "P"
	StatusAbsent           = "A"
	StatusHalfDayDeduction = "-0.5"
	StatusFullDayDeduction = "-1"
)

// UploadColumns is the recognized header shape for attendance sheets,
// in template order. Only EPNumberColumn is required per row.
var UploadColumns = []string{
	"EP Number", "Name", "Company Name", "Plant", "Department", "Trade", "Skill", "Shift",
	"Date", "IN1", "OUT1", "IN2", "OUT2", "IN3", "OUT3", "Hours Worked", "Overtime", "Status",
}

const EPNumberColumn = "EP Number"

// TimeOfDay is a wall-clock time without a date, as punched on the
// sheet. The zero value is midnight; absence is a nil pointer.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

type Record struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Date              time.Time       `json:"date"`
	Shift             string          `json:"shift,omitempty"`
	In1               *TimeOfDay      `json:"in1,omitempty"`
	Out1              *TimeOfDay      `json:"out1,omitempty"`
	In2               *TimeOfDay      `json:"in2,omitempty"`
	Out2              *TimeOfDay      `json:"out2,omitempty"`
	In3               *TimeOfDay      `json:"in3,omitempty"`
	Out3              *TimeOfDay      `json:"out3,omitempty"`
	HoursWorked       decimal.Decimal `json:"hoursWorked"`
	Overtime          decimal.Decimal `json:"overtime"`
	Status            string          `json:"status"`
	SupervisorRemarks string          `json:"supervisorRemarks,omitempty"`
	EmployeeRemarks   string          `json:"employeeRemarks,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// NormalizedRecord is one validated upload row, ready to upsert.
type NormalizedRecord struct {
	EPNumber    string
	Name        string
	CompanyName string
	Plant       string
	Department  string
	Trade       string
	Skill       string
	Shift       string
	Date        time.Time
	In1         *TimeOfDay
	Out1        *TimeOfDay
	In2         *TimeOfDay
	Out2        *TimeOfDay
	In3         *TimeOfDay
	Out3        *TimeOfDay
	HoursWorked decimal.Decimal
	Overtime    decimal.Decimal
	Status      string
}

type UploadRun struct {
	ID           string    `json:"id"`
	UploadedBy   string    `json:"uploadedBy"`
	Filename     string    `json:"filename"`
	TotalRows    int       `json:"totalRows"`
	AcceptedRows int       `json:"acceptedRows"`
	RejectedRows int       `json:"rejectedRows"`
	ErrorFile    string    `json:"errorFile,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FailedRow holds one rejected upload row for the error report. Rows
// are numbered as in the file: the header is row 1, data starts at 2.
type FailedRow struct {
	Number  int
	Message string
	Fields  map[string]string
}

// FormatHours renders a decimal hour count as HH:MM for exports.
func FormatHours(hours decimal.Decimal) string {
	totalMinutes := hours.Mul(decimal.NewFromInt(60)).IntPart()
	return fmt.Sprintf("%02d:%02d", totalMinutes/60, totalMinutes%60)
}
