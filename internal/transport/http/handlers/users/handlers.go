package usershandler

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"labourtrack/internal/domain/audit"
	"labourtrack/internal/domain/auth"
	"labourtrack/internal/domain/users"
	"labourtrack/internal/transport/http/api"
	"labourtrack/internal/transport/http/middleware"
	"labourtrack/internal/transport/http/shared"
)

type Handler struct {
	Users *users.Store
	Audit *audit.Service
	Perms middleware.PermissionStore
}

func NewHandler(userStore *users.Store, auditSvc *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Users: userStore, Audit: auditSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Post("/bulk-upload", h.handleBulkUpload)
		r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/assignments", h.handleListAssignments)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Post("/assignments", h.handleCreateAssignment)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	filter := users.ListFilter{
		Role:   strings.TrimSpace(r.URL.Query().Get("role")),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if actor.Role == auth.RoleCompanyAdmin {
		filter.CompanyName = actor.CompanyName
	} else if company := strings.TrimSpace(r.URL.Query().Get("company")); company != "" {
		filter.CompanyName = company
	}
	page := shared.ParsePagination(r, 50, 200)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	list, err := h.Users.ListUsers(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_error", "failed to list users", reqID)
		return
	}
	api.Success(w, map[string]any{"users": list, "count": len(list)}, reqID)
}

type createUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	EPNumber    string `json:"epNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
	Plant       string `json:"plant"`
	Department  string `json:"department"`
	Trade       string `json:"trade"`
	Skill       string `json:"skill"`
	Shift       string `json:"shift"`
}

// creatableRoles caps what each admin tier may provision. Masters
// create company admins; company admins staff their own company.
func creatableRoles(actorRole string) []string {
	switch actorRole {
	case auth.RoleMaster:
		return []string{auth.RoleCompanyAdmin, auth.RoleSupervisor, auth.RoleEmployee}
	case auth.RoleCompanyAdmin:
		return []string{auth.RoleSupervisor, auth.RoleEmployee}
	default:
		return nil
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("username", payload.Username, "username is required")
	v.Required("password", payload.Password, "password is required")
	v.Required("role", payload.Role, "role is required")
	if payload.Role != "" && !auth.ValidRole(payload.Role) {
		v.Add("role", "unknown role")
	}
	if v.Reject(w, reqID) {
		return
	}

	allowed := false
	for _, role := range creatableRoles(actor.Role) {
		if role == payload.Role {
			allowed = true
			break
		}
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "you cannot create accounts with that role", reqID)
		return
	}

	company := strings.TrimSpace(payload.CompanyName)
	if actor.Role == auth.RoleCompanyAdmin {
		company = actor.CompanyName
	}

	id, err := h.Users.CreateUser(r.Context(), users.User{
		Username:    strings.TrimSpace(payload.Username),
		Role:        payload.Role,
		EPNumber:    strings.TrimSpace(payload.EPNumber),
		FirstName:   strings.TrimSpace(payload.FirstName),
		LastName:    strings.TrimSpace(payload.LastName),
		Email:       strings.TrimSpace(payload.Email),
		CompanyName: company,
		Plant:       strings.TrimSpace(payload.Plant),
		Department:  strings.TrimSpace(payload.Department),
		Trade:       strings.TrimSpace(payload.Trade),
		Skill:       strings.TrimSpace(payload.Skill),
		Shift:       strings.TrimSpace(payload.Shift),
	}, payload.Password)
	if err != nil {
		api.Fail(w, http.StatusConflict, "create_error", "failed to create user, username or EP number may be taken", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), actor.UserID, "user.create", "user", id, "", nil, map[string]string{
		"username": payload.Username,
		"role":     payload.Role,
	}); err != nil {
		slog.Warn("audit user create failed", "userId", id, "err", err)
	}

	api.Created(w, map[string]string{"id": id}, reqID)
}

// Roster uploads accept the same descriptive columns as attendance
// sheets: EP Number, Name, Company Name, Plant, Department, Trade,
// Skill, Shift. Only EP Number is required.
func (h *Handler) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	if err := r.ParseMultipartForm(10 * 1024 * 1024); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "expected a multipart form with a file field", reqID)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file field is required", reqID)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "unable to parse upload as csv", reqID)
		return
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index["EP Number"]; !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "EP Number column is required", reqID)
		return
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	created, skipped := 0, 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_upload", "unable to parse upload as csv", reqID)
			return
		}

		ep := field(row, "EP Number")
		if ep == "" {
			skipped++
			continue
		}
		first, last := splitName(field(row, "Name"))
		company := field(row, "Company Name")
		if actor.Role == auth.RoleCompanyAdmin {
			company = actor.CompanyName
		}

		_, wasCreated, err := h.Users.CreateEmployee(r.Context(), users.User{
			EPNumber:    ep,
			FirstName:   first,
			LastName:    last,
			CompanyName: company,
			Plant:       field(row, "Plant"),
			Department:  field(row, "Department"),
			Trade:       field(row, "Trade"),
			Skill:       field(row, "Skill"),
			Shift:       field(row, "Shift"),
		})
		if err != nil {
			skipped++
			continue
		}
		if wasCreated {
			created++
		} else {
			skipped++
		}
	}

	if err := h.Audit.Record(r.Context(), actor.UserID, "user.bulk_upload", "user", "", "", nil, map[string]int{
		"created": created,
		"skipped": skipped,
	}); err != nil {
		slog.Warn("audit bulk upload failed", "err", err)
	}

	api.Success(w, map[string]int{"created": created, "skipped": skipped}, reqID)
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

type assignmentRequest struct {
	SupervisorID string `json:"supervisorId"`
	EmployeeID   string `json:"employeeId"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	var payload assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("supervisorId", payload.SupervisorID, "supervisorId is required")
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	startDate, _ := v.Date("startDate", payload.StartDate)
	var endDate *time.Time
	if strings.TrimSpace(payload.EndDate) != "" {
		if parsed, ok := v.Date("endDate", payload.EndDate); ok {
			endDate = &parsed
			v.DateOrder("startDate", startDate, "endDate", parsed)
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	supervisor, err := h.Users.FindByID(r.Context(), payload.SupervisorID)
	if err != nil || supervisor.Role != auth.RoleSupervisor {
		api.Fail(w, http.StatusBadRequest, "invalid_assignment", "supervisorId must reference a supervisor account", reqID)
		return
	}

	id, err := h.Users.CreateAssignment(r.Context(), users.SupervisorAssignment{
		SupervisorID: payload.SupervisorID,
		EmployeeID:   payload.EmployeeID,
		StartDate:    startDate,
		EndDate:      endDate,
		AssignedBy:   actor.UserID,
	})
	if err != nil {
		api.Fail(w, http.StatusConflict, "create_error", "failed to create assignment", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), actor.UserID, "assignment.create", "supervisor_assignment", id, "", nil, payload); err != nil {
		slog.Warn("audit assignment create failed", "assignmentId", id, "err", err)
	}

	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	supervisorID := strings.TrimSpace(r.URL.Query().Get("supervisorId"))
	if actor.Role == auth.RoleSupervisor {
		supervisorID = actor.UserID
	}

	list, err := h.Users.ListAssignments(r.Context(), supervisorID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_error", "failed to list assignments", reqID)
		return
	}
	api.Success(w, map[string]any{"assignments": list, "count": len(list)}, reqID)
}
