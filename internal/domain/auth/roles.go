package auth

import "context"

// The four role tiers are fixed. Master administers everything,
// company admins own one company's workforce, supervisors see only
// their assigned employees, and employees see themselves.
const (
	RoleMaster       = "master"
	RoleCompanyAdmin = "company_admin"
	RoleSupervisor   = "supervisor"
	RoleEmployee     = "employee"
)

const (
	PermAttendanceRead   = "attendance.read"
	PermAttendanceWrite  = "attendance.write"
	PermAttendanceUpload = "attendance.upload"
	PermAttendanceExport = "attendance.export"
	PermUsersRead        = "users.read"
	PermUsersWrite       = "users.write"
	PermReportsRead      = "reports.read"
)

var RolePermissions = map[string][]string{
	RoleMaster: {
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceUpload,
		PermAttendanceExport,
		PermUsersRead,
		PermUsersWrite,
		PermReportsRead,
	},
	RoleCompanyAdmin: {
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceUpload,
		PermAttendanceExport,
		PermUsersRead,
		PermUsersWrite,
		PermReportsRead,
	},
	RoleSupervisor: {
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceExport,
		PermReportsRead,
	},
	RoleEmployee: {
		PermAttendanceRead,
		PermReportsRead,
	},
}

// Checker answers permission queries from the static role map.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

func (c *Checker) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, candidate := range RolePermissions[role] {
		if candidate == permission {
			return true, nil
		}
	}
	return false, nil
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
