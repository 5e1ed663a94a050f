package users

import "time"

type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Role                string     `json:"role"`
	EPNumber            string     `json:"epNumber,omitempty"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Email               string     `json:"email,omitempty"`
	CompanyName         string     `json:"companyName,omitempty"`
	Plant               string     `json:"plant,omitempty"`
	Department          string     `json:"department,omitempty"`
	Trade               string     `json:"trade,omitempty"`
	Skill               string     `json:"skill,omitempty"`
	Shift               string     `json:"shift,omitempty"`
	StartDate           *time.Time `json:"startDate,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	ForcePasswordChange bool       `json:"forcePasswordChange"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type SupervisorAssignment struct {
	ID           string     `json:"id"`
	SupervisorID string     `json:"supervisorId"`
	EmployeeID   string     `json:"employeeId"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	AssignedBy   string     `json:"assignedBy"`
	CreatedAt    time.Time  `json:"createdAt"`
}
