package attendance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopspring/decimal"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// UpsertRecord writes one attendance day for a user. (user, date) is
// unique: an existing record has its mutable fields overwritten in
// place, a missing one is inserted. The single ON CONFLICT statement
// keeps concurrent runs touching the same key from ever producing a
// duplicate. Returns whether a new row was created.
func (s *Store) UpsertRecord(ctx context.Context, userID string, rec NormalizedRecord) (bool, error) {
	var inserted bool
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance_records (user_id, date, shift, in1, out1, in2, out2, in3, out3,
      hours_worked, overtime, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    ON CONFLICT (user_id, date) DO UPDATE
    SET shift = EXCLUDED.shift,
        in1 = EXCLUDED.in1,
        out1 = EXCLUDED.out1,
        in2 = EXCLUDED.in2,
        out2 = EXCLUDED.out2,
        in3 = EXCLUDED.in3,
        out3 = EXCLUDED.out3,
        hours_worked = EXCLUDED.hours_worked,
        overtime = EXCLUDED.overtime,
        status = EXCLUDED.status,
        updated_at = now()
    RETURNING (xmax = 0)
  `,
		userID, rec.Date, nullIfEmpty(rec.Shift),
		timeText(rec.In1), timeText(rec.Out1), timeText(rec.In2),
		timeText(rec.Out2), timeText(rec.In3), timeText(rec.Out3),
		rec.HoursWorked.String(), rec.Overtime.String(), rec.Status,
	).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// RecordRow is a record joined with the owning employee, as served to
// list views and exports.
type RecordRow struct {
	Record
	EPNumber     string `json:"epNumber"`
	EmployeeName string `json:"employeeName"`
	CompanyName  string `json:"companyName,omitempty"`
	Plant        string `json:"plant,omitempty"`
	Department   string `json:"department,omitempty"`
	Trade        string `json:"trade,omitempty"`
	Skill        string `json:"skill,omitempty"`
	UserShift    string `json:"-"`
}

type RecordFilter struct {
	UserIDs     []string
	UserID      string
	CompanyName string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      string
	Search      string
	Limit       int
	Offset      int
}

const recordColumns = `
    a.id, a.user_id, a.date,
    COALESCE(a.shift, ''),
    a.in1, a.out1, a.in2, a.out2, a.in3, a.out3,
    a.hours_worked::text, a.overtime::text, a.status,
    COALESCE(a.supervisor_remarks, ''),
    COALESCE(a.employee_remarks, ''),
    a.created_at, a.updated_at,
    COALESCE(u.ep_number, ''),
    TRIM(u.first_name || ' ' || u.last_name),
    COALESCE(u.company_name, ''),
    COALESCE(u.plant, ''),
    COALESCE(u.department, ''),
    COALESCE(u.trade, ''),
    COALESCE(u.skill, ''),
    COALESCE(u.shift, '')`

func scanRecordRow(row pgx.Row) (*RecordRow, error) {
	var r RecordRow
	var in1, out1, in2, out2, in3, out3 *string
	var hours, overtime string
	err := row.Scan(
		&r.ID, &r.UserID, &r.Date, &r.Shift,
		&in1, &out1, &in2, &out2, &in3, &out3,
		&hours, &overtime, &r.Status,
		&r.SupervisorRemarks, &r.EmployeeRemarks,
		&r.CreatedAt, &r.UpdatedAt,
		&r.EPNumber, &r.EmployeeName, &r.CompanyName,
		&r.Plant, &r.Department, &r.Trade, &r.Skill, &r.UserShift,
	)
	if err != nil {
		return nil, err
	}
	r.In1 = storedTime(in1)
	r.Out1 = storedTime(out1)
	r.In2 = storedTime(in2)
	r.Out2 = storedTime(out2)
	r.In3 = storedTime(in3)
	r.Out3 = storedTime(out3)
	r.HoursWorked, _ = decimal.NewFromString(hours)
	r.Overtime, _ = decimal.NewFromString(overtime)
	return &r, nil
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (*RecordRow, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+recordColumns+`
    FROM attendance_records a
    JOIN users u ON a.user_id = u.id
    WHERE a.id = $1
  `, recordID)
	return scanRecordRow(row)
}

func (s *Store) ListRecords(ctx context.Context, filter RecordFilter) ([]RecordRow, error) {
	query := `
    SELECT` + recordColumns + `
    FROM attendance_records a
    JOIN users u ON a.user_id = u.id
    WHERE 1=1`
	args := []any{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += " AND a.user_id = $" + strconv.Itoa(len(args))
	}
	if filter.UserIDs != nil {
		args = append(args, filter.UserIDs)
		query += " AND a.user_id = ANY($" + strconv.Itoa(len(args)) + ")"
	}
	if filter.CompanyName != "" {
		args = append(args, filter.CompanyName)
		query += " AND u.company_name = $" + strconv.Itoa(len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += " AND a.date >= $" + strconv.Itoa(len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += " AND a.date <= $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND a.status = $" + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += " AND (u.username ILIKE $" + n + " OR u.ep_number ILIKE $" + n +
			" OR u.first_name ILIKE $" + n + " OR u.last_name ILIKE $" + n + ")"
	}

	query += " ORDER BY a.date DESC, u.username"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		r, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// RecordUpdate carries the fields an edit form may change.
type RecordUpdate struct {
	Shift             string
	In1, Out1         *TimeOfDay
	In2, Out2         *TimeOfDay
	In3, Out3         *TimeOfDay
	HoursWorked       decimal.Decimal
	Overtime          decimal.Decimal
	Status            string
	SupervisorRemarks string
	EmployeeRemarks   string
}

func (s *Store) UpdateRecord(ctx context.Context, recordID string, upd RecordUpdate) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE attendance_records
    SET shift = $1,
        in1 = $2, out1 = $3, in2 = $4, out2 = $5, in3 = $6, out3 = $7,
        hours_worked = $8, overtime = $9, status = $10,
        supervisor_remarks = $11, employee_remarks = $12,
        updated_at = now()
    WHERE id = $13
  `,
		nullIfEmpty(upd.Shift),
		timeText(upd.In1), timeText(upd.Out1), timeText(upd.In2),
		timeText(upd.Out2), timeText(upd.In3), timeText(upd.Out3),
		upd.HoursWorked.String(), upd.Overtime.String(), upd.Status,
		nullIfEmpty(upd.SupervisorRemarks), nullIfEmpty(upd.EmployeeRemarks),
		recordID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.New("attendance record not found")
	}
	return nil
}

func (s *Store) CreateUploadRun(ctx context.Context, run UploadRun) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO upload_runs (uploaded_by, filename, total_rows, accepted_rows, rejected_rows)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id
  `, run.UploadedBy, run.Filename, run.TotalRows, run.AcceptedRows, run.RejectedRows).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) AttachErrorFile(ctx context.Context, runID, path string) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE upload_runs SET error_file = $1 WHERE id = $2", path, runID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.New("upload run not found")
	}
	return nil
}

func (s *Store) GetUploadRun(ctx context.Context, runID string) (*UploadRun, error) {
	var run UploadRun
	err := s.DB.QueryRow(ctx, `
    SELECT id, uploaded_by, filename, total_rows, accepted_rows, rejected_rows,
           COALESCE(error_file, ''), created_at
    FROM upload_runs
    WHERE id = $1
  `, runID).Scan(&run.ID, &run.UploadedBy, &run.Filename, &run.TotalRows,
		&run.AcceptedRows, &run.RejectedRows, &run.ErrorFile, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) ListUploadRuns(ctx context.Context, uploadedBy string, limit, offset int) ([]UploadRun, error) {
	query := `
    SELECT id, uploaded_by, filename, total_rows, accepted_rows, rejected_rows,
           COALESCE(error_file, ''), created_at
    FROM upload_runs
  `
	args := []any{}
	if uploadedBy != "" {
		args = append(args, uploadedBy)
		query += " WHERE uploaded_by = $1"
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UploadRun
	for rows.Next() {
		var run UploadRun
		if err := rows.Scan(&run.ID, &run.UploadedBy, &run.Filename, &run.TotalRows,
			&run.AcceptedRows, &run.RejectedRows, &run.ErrorFile, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// StatusCounts aggregates records by status for dashboards, honoring
// the same scoping filters as ListRecords.
func (s *Store) StatusCounts(ctx context.Context, filter RecordFilter) (map[string]int, error) {
	query := `
    SELECT a.status, COUNT(1)
    FROM attendance_records a
    JOIN users u ON a.user_id = u.id
    WHERE 1=1`
	args := []any{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += " AND a.user_id = $" + strconv.Itoa(len(args))
	}
	if filter.UserIDs != nil {
		args = append(args, filter.UserIDs)
		query += " AND a.user_id = ANY($" + strconv.Itoa(len(args)) + ")"
	}
	if filter.CompanyName != "" {
		args = append(args, filter.CompanyName)
		query += " AND u.company_name = $" + strconv.Itoa(len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += " AND a.date >= $" + strconv.Itoa(len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += " AND a.date <= $" + strconv.Itoa(len(args))
	}
	query += " GROUP BY a.status"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timeText(t *TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func storedTime(text *string) *TimeOfDay {
	if text == nil || *text == "" {
		return nil
	}
	parsed, err := ParseTimeOfDay(*text)
	if err != nil {
		return nil
	}
	return parsed
}
