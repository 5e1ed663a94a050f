package reportshandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"labourtrack/internal/domain/attendance"
	"labourtrack/internal/domain/auth"
	"labourtrack/internal/domain/users"
	"labourtrack/internal/transport/http/api"
	"labourtrack/internal/transport/http/middleware"
)

type Handler struct {
	Records *attendance.Store
	Users   *users.Store
	Perms   middleware.PermissionStore
}

func NewHandler(records *attendance.Store, userStore *users.Store, perms middleware.PermissionStore) *Handler {
	return &Handler{Records: records, Users: userStore, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/monthly-pdf", h.handleMonthlyPDF)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	var filter attendance.RecordFilter
	switch actor.Role {
	case auth.RoleMaster:
	case auth.RoleCompanyAdmin:
		filter.CompanyName = actor.CompanyName
	case auth.RoleSupervisor:
		ids, err := h.Users.AssignedEmployeeIDs(r.Context(), actor.UserID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "scope_error", "failed to resolve visible employees", reqID)
			return
		}
		if len(ids) == 0 {
			ids = []string{actor.UserID}
		}
		filter.UserIDs = ids
	default:
		filter.UserID = actor.UserID
	}

	// Default window is the current month.
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	filter.StartDate = &start
	filter.EndDate = &end

	counts, err := h.Records.StatusCounts(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_error", "failed to aggregate attendance", reqID)
		return
	}

	api.Success(w, map[string]any{
		"month":        start.Format("2006-01"),
		"statusCounts": counts,
		"present":      counts[attendance.StatusPresent],
		"absent":       counts[attendance.StatusAbsent],
	}, reqID)
}

func (h *Handler) handleMonthlyPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	month := strings.TrimSpace(r.URL.Query().Get("month"))
	start, err := time.Parse("2006-01", month)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_month", "month must be formatted YYYY-MM", reqID)
		return
	}
	end := start.AddDate(0, 1, -1)

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if actor.Role == auth.RoleEmployee || userID == "" {
		userID = actor.UserID
	}

	subject, err := h.Users.FindByID(r.Context(), userID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	}
	if actor.Role == auth.RoleCompanyAdmin && subject.CompanyName != actor.CompanyName {
		api.Fail(w, http.StatusForbidden, "forbidden", "employee is outside your company", reqID)
		return
	}
	if actor.Role == auth.RoleSupervisor && userID != actor.UserID {
		ids, err := h.Users.AssignedEmployeeIDs(r.Context(), actor.UserID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "scope_error", "failed to resolve visible employees", reqID)
			return
		}
		assigned := false
		for _, id := range ids {
			if id == userID {
				assigned = true
				break
			}
		}
		if !assigned {
			api.Fail(w, http.StatusForbidden, "forbidden", "employee is not assigned to you", reqID)
			return
		}
	}

	records, err := h.Records.ListRecords(r.Context(), attendance.RecordFilter{
		UserID:    userID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_error", "failed to load attendance", reqID)
		return
	}

	pdf := buildMonthlyPDF(subject, start, records)

	filename := fmt.Sprintf("attendance_%s_%s.pdf", subject.EPNumber, start.Format("200601"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := pdf.Output(w); err != nil {
		slog.Warn("pdf write failed", "userId", userID, "err", err)
	}
}

func buildMonthlyPDF(subject *users.User, month time.Time, records []attendance.RecordRow) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Monthly Attendance")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s (%s)", subject.FirstName, subject.LastName, subject.EPNumber))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Company: %s", subject.CompanyName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Month: %s", month.Format("January 2006")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{24, 22, 22, 26, 26, 20, 50}
	headers := []string{"Date", "IN", "OUT", "Hours", "Overtime", "Status", "Remarks"}
	for i, title := range headers {
		pdf.CellFormat(widths[i], 7, title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	totalHours := decimal.Zero
	totalOvertime := decimal.Zero
	// Rows come back newest first; print oldest first.
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		cells := []string{
			rec.Date.Format("02-01-2006"),
			punchText(rec.In1),
			punchText(rec.Out1),
			attendance.FormatHours(rec.HoursWorked),
			attendance.FormatHours(rec.Overtime),
			rec.Status,
			rec.SupervisorRemarks,
		}
		for j, value := range cells {
			pdf.CellFormat(widths[j], 7, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		totalHours = totalHours.Add(rec.HoursWorked)
		totalOvertime = totalOvertime.Add(rec.Overtime)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Days recorded: %d    Total hours: %s    Total overtime: %s",
		len(records), attendance.FormatHours(totalHours), attendance.FormatHours(totalOvertime)))
	return pdf
}

func punchText(t *attendance.TimeOfDay) string {
	if t == nil {
		return "-"
	}
	return t.String()
}
