package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"labourtrack/internal/domain/auth"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const userColumns = `
    id, username, role,
    COALESCE(ep_number, ''),
    first_name, last_name, email,
    COALESCE(company_name, ''),
    COALESCE(plant, ''),
    COALESCE(department, ''),
    COALESCE(trade, ''),
    COALESCE(skill, ''),
    COALESCE(shift, ''),
    start_date, end_date,
    force_password_change, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.Role, &u.EPNumber,
		&u.FirstName, &u.LastName, &u.Email,
		&u.CompanyName, &u.Plant, &u.Department, &u.Trade, &u.Skill, &u.Shift,
		&u.StartDate, &u.EndDate,
		&u.ForcePasswordChange, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEPNumber returns (nil, nil) when no user carries the number.
func (s *Store) FindByEPNumber(ctx context.Context, epNumber string) (*User, error) {
	row := s.DB.QueryRow(ctx, "SELECT"+userColumns+" FROM users WHERE ep_number = $1", epNumber)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) FindByID(ctx context.Context, userID string) (*User, error) {
	row := s.DB.QueryRow(ctx, "SELECT"+userColumns+" FROM users WHERE id = $1", userID)
	return scanUser(row)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*User, string, error) {
	row := s.DB.QueryRow(ctx, "SELECT"+userColumns+", password_hash FROM users WHERE username = $1", username)
	var u User
	var hash string
	err := row.Scan(
		&u.ID, &u.Username, &u.Role, &u.EPNumber,
		&u.FirstName, &u.LastName, &u.Email,
		&u.CompanyName, &u.Plant, &u.Department, &u.Trade, &u.Skill, &u.Shift,
		&u.StartDate, &u.EndDate,
		&u.ForcePasswordChange, &u.CreatedAt, &u.UpdatedAt,
		&hash,
	)
	if err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

// CreateEmployee provisions an employee-tier account for an unseen EP
// number. The initial password is the EP number itself and the account
// is flagged to change it on first login. Safe against a concurrent
// insert of the same number: on conflict the existing row wins and is
// returned with created=false.
func (s *Store) CreateEmployee(ctx context.Context, u User) (*User, bool, error) {
	if u.EPNumber == "" {
		return nil, false, errors.New("ep number is required")
	}
	hash, err := auth.HashPassword(u.EPNumber)
	if err != nil {
		return nil, false, err
	}

	row := s.DB.QueryRow(ctx, `
    INSERT INTO users (username, password_hash, role, ep_number, first_name, last_name,
      company_name, plant, department, trade, skill, shift, force_password_change)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
    ON CONFLICT (ep_number) DO NOTHING
    RETURNING`+userColumns+`
  `,
		u.EPNumber, hash, auth.RoleEmployee, u.EPNumber, u.FirstName, u.LastName,
		nullIfEmpty(u.CompanyName), nullIfEmpty(u.Plant), nullIfEmpty(u.Department),
		nullIfEmpty(u.Trade), nullIfEmpty(u.Skill), nullIfEmpty(u.Shift),
	)
	created, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, findErr := s.FindByEPNumber(ctx, u.EPNumber)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, errors.New("employee insert conflicted but no row found")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// CreateUser inserts an account with an explicit role and password.
// Used by the admin console and the bulk user upload.
func (s *Store) CreateUser(ctx context.Context, u User, password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO users (username, password_hash, role, ep_number, first_name, last_name, email,
      company_name, plant, department, trade, skill, shift)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    RETURNING id
  `,
		u.Username, hash, u.Role, nullIfEmpty(u.EPNumber), u.FirstName, u.LastName, u.Email,
		nullIfEmpty(u.CompanyName), nullIfEmpty(u.Plant), nullIfEmpty(u.Department),
		nullIfEmpty(u.Trade), nullIfEmpty(u.Skill), nullIfEmpty(u.Shift),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	cmd, err := s.DB.Exec(ctx, `
    UPDATE users
    SET password_hash = $1, force_password_change = FALSE, updated_at = now()
    WHERE id = $2
  `, hash, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.New("user not found")
	}
	return nil
}

type ListFilter struct {
	CompanyName string
	Role        string
	Search      string
	Limit       int
	Offset      int
}

func (s *Store) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	query := "SELECT" + userColumns + " FROM users WHERE 1=1"
	args := []any{}
	if filter.CompanyName != "" {
		args = append(args, filter.CompanyName)
		query += " AND company_name = $" + itoa(len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += " AND role = $" + itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := itoa(len(args))
		query += " AND (username ILIKE $" + n + " OR ep_number ILIKE $" + n +
			" OR first_name ILIKE $" + n + " OR last_name ILIKE $" + n + ")"
	}
	query += " ORDER BY username"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + itoa(len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// AssignedEmployeeIDs lists the employees a supervisor currently oversees.
func (s *Store) AssignedEmployeeIDs(ctx context.Context, supervisorID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id
    FROM supervisor_assignments
    WHERE supervisor_id = $1 AND (end_date IS NULL OR end_date >= CURRENT_DATE)
  `, supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CreateAssignment(ctx context.Context, a SupervisorAssignment) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO supervisor_assignments (supervisor_id, employee_id, start_date, end_date, assigned_by)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id
  `, a.SupervisorID, a.EmployeeID, a.StartDate, a.EndDate, a.AssignedBy).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListAssignments(ctx context.Context, supervisorID string) ([]SupervisorAssignment, error) {
	query := `
    SELECT id, supervisor_id, employee_id, start_date, end_date, assigned_by, created_at
    FROM supervisor_assignments
  `
	args := []any{}
	if supervisorID != "" {
		query += " WHERE supervisor_id = $1"
		args = append(args, supervisorID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupervisorAssignment
	for rows.Next() {
		var a SupervisorAssignment
		if err := rows.Scan(&a.ID, &a.SupervisorID, &a.EmployeeID, &a.StartDate, &a.EndDate, &a.AssignedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
