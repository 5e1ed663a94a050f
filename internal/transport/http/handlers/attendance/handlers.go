package attendancehandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"labourtrack/internal/domain/attendance"
	"labourtrack/internal/domain/auth"
	"labourtrack/internal/domain/users"
	"labourtrack/internal/platform/metrics"
	"labourtrack/internal/platform/progress"
	"labourtrack/internal/platform/storage"
	"labourtrack/internal/transport/http/api"
	"labourtrack/internal/transport/http/middleware"
	"labourtrack/internal/transport/http/shared"
)

const maxUploadBytes = 10 * 1024 * 1024

// UploadNotifier delivers the post-upload in-app notification.
type UploadNotifier interface {
	NotifyUploadOutcome(ctx context.Context, userID, filename string, accepted, rejected int) error
}

// AuditRecorder writes the audit trail entries for edits and uploads.
type AuditRecorder interface {
	Record(ctx context.Context, userID, action, entity, entityID, reason string, before, after any) error
}

type Handler struct {
	Records  *attendance.Store
	Users    *users.Store
	Ingest   *attendance.Ingestor
	Progress progress.Tracker
	Files    *storage.Local
	Notify   UploadNotifier
	Audit    AuditRecorder
	Metrics  *metrics.Collector
	Perms    middleware.PermissionStore
}

func NewHandler(records *attendance.Store, userStore *users.Store, ingest *attendance.Ingestor,
	tracker progress.Tracker, files *storage.Local, notify UploadNotifier,
	auditSvc AuditRecorder, collector *metrics.Collector, perms middleware.PermissionStore) *Handler {
	return &Handler{
		Records:  records,
		Users:    userStore,
		Ingest:   ingest,
		Progress: tracker,
		Files:    files,
		Notify:   notify,
		Audit:    auditSvc,
		Metrics:  collector,
		Perms:    perms,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Patch("/records/{recordID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermAttendanceUpload, h.Perms)).Post("/upload", h.handleUpload)
		r.With(middleware.RequirePermission(auth.PermAttendanceUpload, h.Perms)).Get("/upload-progress/{token}", h.handleProgress)
		r.With(middleware.RequirePermission(auth.PermAttendanceUpload, h.Perms)).Get("/uploads", h.handleListUploads)
		r.With(middleware.RequirePermission(auth.PermAttendanceUpload, h.Perms)).Get("/uploads/{runID}/errors", h.handleDownloadErrors)
		r.With(middleware.RequirePermission(auth.PermAttendanceUpload, h.Perms)).Get("/template", h.handleTemplate)
		r.With(middleware.RequirePermission(auth.PermAttendanceExport, h.Perms)).Get("/export", h.handleExport)
	})
}

// scopeFilter narrows a record filter to what the actor may see.
func (h *Handler) scopeFilter(r *http.Request, actor auth.UserContext, filter *attendance.RecordFilter) error {
	switch actor.Role {
	case auth.RoleMaster:
	case auth.RoleCompanyAdmin:
		filter.CompanyName = actor.CompanyName
	case auth.RoleSupervisor:
		ids, err := h.Users.AssignedEmployeeIDs(r.Context(), actor.UserID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			ids = []string{actor.UserID}
		}
		filter.UserIDs = ids
	default:
		filter.UserID = actor.UserID
	}
	return nil
}

func (h *Handler) parseFilter(r *http.Request) (attendance.RecordFilter, *shared.Validator) {
	v := shared.NewValidator()
	var filter attendance.RecordFilter

	q := r.URL.Query()
	if raw := q.Get("startDate"); raw != "" {
		if parsed, ok := v.Date("startDate", raw); ok {
			filter.StartDate = &parsed
		}
	}
	if raw := q.Get("endDate"); raw != "" {
		if parsed, ok := v.Date("endDate", raw); ok {
			filter.EndDate = &parsed
		}
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		v.DateOrder("startDate", *filter.StartDate, "endDate", *filter.EndDate)
	}
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		v.Enum("status", status, []string{
			attendance.StatusPresent, attendance.StatusAbsent,
			attendance.StatusHalfDayDeduction, attendance.StatusFullDayDeduction,
		}, "must be one of P, A, -0.5, -1")
		filter.Status = status
	}
	filter.Search = strings.TrimSpace(q.Get("search"))

	page := shared.ParsePagination(r, 50, 200)
	filter.Limit = page.Limit
	filter.Offset = page.Offset
	return filter, v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	filter, v := h.parseFilter(r)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.scopeFilter(r, actor, &filter); err != nil {
		api.Fail(w, http.StatusInternalServerError, "scope_error", "failed to resolve visible employees", reqID)
		return
	}

	records, err := h.Records.ListRecords(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_error", "failed to list attendance records", reqID)
		return
	}
	api.Success(w, map[string]any{"records": records, "count": len(records)}, reqID)
}

type updateRequest struct {
	Shift             *string `json:"shift"`
	In1               *string `json:"in1"`
	Out1              *string `json:"out1"`
	In2               *string `json:"in2"`
	Out2              *string `json:"out2"`
	In3               *string `json:"in3"`
	Out3              *string `json:"out3"`
	HoursWorked       *string `json:"hoursWorked"`
	Overtime          *string `json:"overtime"`
	Status            *string `json:"status"`
	SupervisorRemarks *string `json:"supervisorRemarks"`
	EmployeeRemarks   *string `json:"employeeRemarks"`
	Reason            string  `json:"reason"`
}

// canEditRecord enforces ownership: supervisors may only touch their
// assigned employees, company admins stay inside their company.
func (h *Handler) canEditRecord(r *http.Request, actor auth.UserContext, rec *attendance.RecordRow) (bool, error) {
	switch actor.Role {
	case auth.RoleMaster:
		return true, nil
	case auth.RoleCompanyAdmin:
		return rec.CompanyName == actor.CompanyName, nil
	case auth.RoleSupervisor:
		ids, err := h.Users.AssignedEmployeeIDs(r.Context(), actor.UserID)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if id == rec.UserID {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())
	recordID := chi.URLParam(r, "recordID")

	before, err := h.Records.GetRecord(r.Context(), recordID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "attendance record not found", reqID)
		return
	}

	allowed, err := h.canEditRecord(r, actor, before)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "scope_error", "failed to resolve visible employees", reqID)
		return
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "record is outside your scope", reqID)
		return
	}

	var payload updateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	upd, v := applyUpdate(before, payload)
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Records.UpdateRecord(r.Context(), recordID, upd); err != nil {
		api.Fail(w, http.StatusInternalServerError, "update_error", "failed to update record", reqID)
		return
	}

	after, err := h.Records.GetRecord(r.Context(), recordID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "lookup_error", "failed to reload record", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), actor.UserID, "attendance.update", "attendance_record", recordID, payload.Reason, before, after); err != nil {
		slog.Warn("audit attendance update failed", "recordId", recordID, "err", err)
	}

	api.Success(w, after, reqID)
}

// applyUpdate merges the submitted fields over the current record.
// Absent fields keep their stored values.
func applyUpdate(current *attendance.RecordRow, payload updateRequest) (attendance.RecordUpdate, *shared.Validator) {
	v := shared.NewValidator()

	upd := attendance.RecordUpdate{
		Shift:             current.Shift,
		In1:               current.In1,
		Out1:              current.Out1,
		In2:               current.In2,
		Out2:              current.Out2,
		In3:               current.In3,
		Out3:              current.Out3,
		HoursWorked:       current.HoursWorked,
		Overtime:          current.Overtime,
		Status:            current.Status,
		SupervisorRemarks: current.SupervisorRemarks,
		EmployeeRemarks:   current.EmployeeRemarks,
	}

	if payload.Shift != nil {
		upd.Shift = strings.TrimSpace(*payload.Shift)
	}
	punches := []struct {
		field string
		raw   *string
		dst   **attendance.TimeOfDay
	}{
		{"in1", payload.In1, &upd.In1},
		{"out1", payload.Out1, &upd.Out1},
		{"in2", payload.In2, &upd.In2},
		{"out2", payload.Out2, &upd.Out2},
		{"in3", payload.In3, &upd.In3},
		{"out3", payload.Out3, &upd.Out3},
	}
	for _, p := range punches {
		if p.raw == nil {
			continue
		}
		parsed, err := attendance.ParseTimeOfDay(*p.raw)
		if err != nil {
			v.Add(p.field, err.Error())
			continue
		}
		*p.dst = parsed
	}
	if payload.HoursWorked != nil {
		upd.HoursWorked = attendance.ParseDurationHours(*payload.HoursWorked)
	}
	if payload.Overtime != nil {
		upd.Overtime = attendance.ParseDurationHours(*payload.Overtime)
	}
	if payload.Status != nil {
		status := strings.TrimSpace(*payload.Status)
		v.Enum("status", status, []string{
			attendance.StatusPresent, attendance.StatusAbsent,
			attendance.StatusHalfDayDeduction, attendance.StatusFullDayDeduction,
		}, "must be one of P, A, -0.5, -1")
		if status != "" {
			upd.Status = status
		}
	}
	if payload.SupervisorRemarks != nil {
		upd.SupervisorRemarks = strings.TrimSpace(*payload.SupervisorRemarks)
	}
	if payload.EmployeeRemarks != nil {
		upd.EmployeeRemarks = strings.TrimSpace(*payload.EmployeeRemarks)
	}
	return upd, v
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "expected a multipart form with a file field", reqID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file field is required", reqID)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "only .csv files are accepted", reqID)
		return
	}

	// A run that has started must finish even if the client goes away;
	// aborting mid-file would misreport the remaining rows as store
	// failures and leave the progress token stuck at processing.
	ingestCtx := context.WithoutCancel(r.Context())

	summary, err := h.Ingest.Run(ingestCtx, actor.UserID, filename, file)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "ingest_error", err.Error(), reqID)
		return
	}

	h.Metrics.RecordUpload(summary.Created+summary.Updated, summary.Failed)

	if err := h.Notify.NotifyUploadOutcome(ingestCtx, actor.UserID, filename, summary.Created+summary.Updated, summary.Failed); err != nil {
		slog.Warn("upload notification failed", "runId", summary.RunID, "err", err)
	}
	if err := h.Audit.Record(ingestCtx, actor.UserID, "attendance.upload", "upload_run", summary.RunID, "", nil, summary); err != nil {
		slog.Warn("audit upload failed", "runId", summary.RunID, "err", err)
	}

	api.Success(w, summary, reqID)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	token := chi.URLParam(r, "token")
	api.Success(w, h.Progress.Get(r.Context(), token), reqID)
}

func (h *Handler) handleListUploads(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	// Masters see every run; everyone else sees their own uploads.
	uploadedBy := actor.UserID
	if actor.Role == auth.RoleMaster {
		uploadedBy = ""
	}

	page := shared.ParsePagination(r, 20, 100)
	runs, err := h.Records.ListUploadRuns(r.Context(), uploadedBy, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_error", "failed to list uploads", reqID)
		return
	}
	api.Success(w, map[string]any{"uploads": runs, "count": len(runs)}, reqID)
}

func (h *Handler) handleDownloadErrors(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())
	runID := chi.URLParam(r, "runID")

	run, err := h.Records.GetUploadRun(r.Context(), runID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "upload run not found", reqID)
		return
	}
	if actor.Role != auth.RoleMaster && run.UploadedBy != actor.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "upload run is outside your scope", reqID)
		return
	}
	if run.ErrorFile == "" {
		api.Fail(w, http.StatusNotFound, "not_found", "upload run has no error report", reqID)
		return
	}

	path, ok := h.Files.Path(run.ErrorFile)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "error report is no longer available", reqID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(run.ErrorFile)))
	http.ServeFile(w, r, path)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance_template.csv"`)

	writer := csv.NewWriter(w)
	rows := [][]string{
		attendance.UploadColumns,
		{"EMP001", "John Doe", "ABC Company", "Plant 1", "Production", "Welder", "Skilled", "Day", "01-01-2024", "08:00", "17:00", "", "", "", "", "8:00", "0:00", "P"},
		{"EMP002", "Jane Smith", "ABC Company", "Plant 1", "Quality", "Inspector", "Semi-Skilled", "Night", "01-01-2024", "22:30", "06:30 (N)", "", "", "", "", "8:00", "0:00", "P"},
		{"EMP003", "Mike Johnson", "XYZ Corp", "Plant 2", "Maintenance", "Technician", "Skilled", "Day", "01-01-2024", "", "", "", "", "", "", "0:00", "0:00", "A"},
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			slog.Warn("template write failed", "err", err)
			return
		}
	}
	writer.Flush()
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, _ := middleware.GetUser(r.Context())

	filter, v := h.parseFilter(r)
	if v.Reject(w, reqID) {
		return
	}
	filter.Limit = 0
	filter.Offset = 0
	if err := h.scopeFilter(r, actor, &filter); err != nil {
		api.Fail(w, http.StatusInternalServerError, "scope_error", "failed to resolve visible employees", reqID)
		return
	}

	records, err := h.Records.ListRecords(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_error", "failed to list attendance records", reqID)
		return
	}

	book, err := buildWorkbook(records)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_error", "failed to build workbook", reqID)
		return
	}
	defer book.Close()

	filename := "attendance_" + time.Now().Format("20060102_150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := book.Write(w); err != nil {
		slog.Warn("export write failed", "err", err)
	}
}

func buildWorkbook(records []attendance.RecordRow) (*excelize.File, error) {
	book := excelize.NewFile()
	const sheet = "Attendance"
	index, err := book.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	book.SetActiveSheet(index)
	if err := book.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := book.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return nil, err
	}

	for col, title := range attendance.UploadColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := book.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
		if err := book.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for i, rec := range records {
		values := []any{
			rec.EPNumber, rec.EmployeeName, rec.CompanyName, rec.Plant, rec.Department,
			rec.Trade, rec.Skill, rec.Shift,
			rec.Date.Format("02-01-2006"),
			punchText(rec.In1), punchText(rec.Out1), punchText(rec.In2),
			punchText(rec.Out2), punchText(rec.In3), punchText(rec.Out3),
			attendance.FormatHours(rec.HoursWorked), attendance.FormatHours(rec.Overtime),
			rec.Status,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := book.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	return book, nil
}

func punchText(t *attendance.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return t.String()
}
