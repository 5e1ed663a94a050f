package attendance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"labourtrack/internal/domain/users"
	"labourtrack/internal/platform/progress"
)

type fakeDirectory struct {
	byEP        map[string]*users.User
	createCalls int
	findErr     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byEP: map[string]*users.User{}}
}

func (d *fakeDirectory) FindByEPNumber(_ context.Context, epNumber string) (*users.User, error) {
	if d.findErr != nil {
		return nil, d.findErr
	}
	return d.byEP[epNumber], nil
}

func (d *fakeDirectory) CreateEmployee(_ context.Context, u users.User) (*users.User, bool, error) {
	d.createCalls++
	if existing, ok := d.byEP[u.EPNumber]; ok {
		return existing, false, nil
	}
	stored := u
	stored.ID = "user-" + u.EPNumber
	stored.Username = u.EPNumber
	stored.Role = "employee"
	stored.ForcePasswordChange = true
	d.byEP[u.EPNumber] = &stored
	return &stored, true, nil
}

type fakeRecords struct {
	records    map[string]NormalizedRecord
	runs       []UploadRun
	attachedTo map[string]string
	upsertErr  func(rec NormalizedRecord) error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]NormalizedRecord{}, attachedTo: map[string]string{}}
}

func recordKey(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

func (s *fakeRecords) UpsertRecord(_ context.Context, userID string, rec NormalizedRecord) (bool, error) {
	if s.upsertErr != nil {
		if err := s.upsertErr(rec); err != nil {
			return false, err
		}
	}
	key := recordKey(userID, rec.Date)
	_, exists := s.records[key]
	s.records[key] = rec
	return !exists, nil
}

func (s *fakeRecords) CreateUploadRun(_ context.Context, run UploadRun) (string, error) {
	run.ID = fmt.Sprintf("run-%d", len(s.runs)+1)
	s.runs = append(s.runs, run)
	return run.ID, nil
}

func (s *fakeRecords) AttachErrorFile(_ context.Context, runID, path string) error {
	s.attachedTo[runID] = path
	return nil
}

type fakeArtifacts struct {
	saved map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{saved: map[string][]byte{}}
}

func (a *fakeArtifacts) Save(subdir, name string, data []byte) (string, error) {
	path := subdir + "/" + name
	a.saved[path] = data
	return path, nil
}

func buildCSV(t *testing.T, rows ...map[string]string) string {
	t.Helper()
	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	if err := writer.Write(UploadColumns); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, row := range rows {
		record := make([]string, len(UploadColumns))
		for i, column := range UploadColumns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	writer.Flush()
	return sb.String()
}

func sheetRow(ep, name, date string) map[string]string {
	return map[string]string{
		"EP Number":    ep,
		"Name":         name,
		"Company Name": "ABC Company",
		"Plant":        "Plant 1",
		"Department":   "Production",
		"Trade":        "Welder",
		"Skill":        "Skilled",
		"Shift":        "Day",
		"Date":         date,
		"IN1":          "08:00",
		"OUT1":         "17:00",
		"Hours Worked": "8:00",
		"Overtime":     "0:00",
		"Status":       "P",
	}
}

func newTestIngestor(dir *fakeDirectory, records *fakeRecords, tracker progress.Tracker, artifacts *fakeArtifacts) *Ingestor {
	ing := NewIngestor(dir, records, tracker, artifacts)
	ing.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 9, 0, time.UTC) }
	return ing
}

func TestIngestRowIsolation(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	tracker := progress.NewMemoryTracker(5 * time.Minute)
	artifacts := newFakeArtifacts()
	ing := newTestIngestor(dir, records, tracker, artifacts)

	data := buildCSV(t,
		sheetRow("EMP001", "John Doe", "01-01-2024"),
		sheetRow("EMP002", "Jane Smith", "01-01-2024"),
		sheetRow("", "No Number", "01-01-2024"),
		sheetRow("EMP003", "Mike Johnson", "01-01-2024"),
		sheetRow("EMP004", "Sara Lee", "01-01-2024"),
	)

	summary, err := ing.Run(context.Background(), "uploader-1", "attendance.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if summary.TotalRows != 5 || summary.Created != 4 || summary.Updated != 0 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	prog := tracker.Get(context.Background(), summary.SessionToken)
	if prog.Status != progress.StatusDone {
		t.Fatalf("progress status = %q", prog.Status)
	}
	if prog.Total != 5 || prog.Processed != 5 || prog.Success != 4 || prog.Errors != 1 {
		t.Fatalf("progress = %+v", prog)
	}

	if len(records.runs) != 1 {
		t.Fatalf("expected one upload run, got %d", len(records.runs))
	}
	run := records.runs[0]
	if run.TotalRows != 5 || run.AcceptedRows != 4 || run.RejectedRows != 1 {
		t.Fatalf("upload run = %+v", run)
	}
	if records.attachedTo[run.ID] != summary.ErrorFile || summary.ErrorFile == "" {
		t.Fatalf("error file not attached: %+v / %q", records.attachedTo, summary.ErrorFile)
	}

	// The failed data row is the third, which is file row 4.
	report := string(artifacts.saved[summary.ErrorFile])
	if !strings.Contains(report, "Row_Number,Error_Message") {
		t.Fatalf("report header missing:\n%s", report)
	}
	if !strings.Contains(report, "4,EP Number is required") {
		t.Fatalf("report row missing:\n%s", report)
	}
	if strings.Count(report, "\n") != 2 {
		t.Fatalf("expected exactly one failure row:\n%s", report)
	}
}

func TestIngestReuploadIsIdempotent(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	tracker := progress.NewMemoryTracker(5 * time.Minute)
	ing := newTestIngestor(dir, records, tracker, newFakeArtifacts())

	data := buildCSV(t,
		sheetRow("EMP001", "John Doe", "01-01-2024"),
		sheetRow("EMP002", "Jane Smith", "01-01-2024"),
	)

	first, err := ing.Run(context.Background(), "uploader-1", "attendance.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 2 || first.Updated != 0 {
		t.Fatalf("first run summary = %+v", first)
	}

	second, err := ing.Run(context.Background(), "uploader-1", "attendance.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 || second.Updated != 2 || second.Failed != 0 {
		t.Fatalf("second run summary = %+v", second)
	}
	if len(records.records) != 2 {
		t.Fatalf("expected 2 records after re-upload, got %d", len(records.records))
	}
}

func TestIngestLastWriteWinsWithinFile(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	ing := newTestIngestor(dir, records, progress.NewMemoryTracker(5*time.Minute), newFakeArtifacts())

	early := sheetRow("EMP001", "John Doe", "01-01-2024")
	late := sheetRow("EMP001", "John Doe", "01-01-2024")
	late["Hours Worked"] = "9.5"
	late["Status"] = "A"

	summary, err := ing.Run(context.Background(), "uploader-1", "attendance.csv",
		strings.NewReader(buildCSV(t, early, late)))
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if summary.Created != 1 || summary.Updated != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(records.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records.records))
	}
	for _, rec := range records.records {
		if rec.Status != "A" || rec.HoursWorked.String() != "9.5" {
			t.Fatalf("later occurrence did not win: %+v", rec)
		}
	}
}

func TestIngestAllRowsFail(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	artifacts := newFakeArtifacts()
	ing := newTestIngestor(dir, records, progress.NewMemoryTracker(5*time.Minute), artifacts)

	bad1 := sheetRow("", "No Number", "01-01-2024")
	bad2 := sheetRow("EMP002", "Jane Smith", "bad date")

	summary, err := ing.Run(context.Background(), "uploader-1", "attendance.csv",
		strings.NewReader(buildCSV(t, bad1, bad2)))
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if summary.Created != 0 || summary.Updated != 0 || summary.Failed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(records.runs) != 1 {
		t.Fatal("upload run must be recorded even when every row fails")
	}
	run := records.runs[0]
	if run.AcceptedRows != 0 || run.RejectedRows != 2 {
		t.Fatalf("upload run = %+v", run)
	}
	if summary.ErrorFile == "" {
		t.Fatal("error artifact must be attached")
	}
}

func TestIngestAutoProvisionsEmployeesOnce(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	ing := newTestIngestor(dir, records, progress.NewMemoryTracker(5*time.Minute), newFakeArtifacts())

	data := buildCSV(t,
		sheetRow("EMP001", "John Michael Doe", "01-01-2024"),
		sheetRow("EMP001", "John Michael Doe", "02-01-2024"),
	)

	if _, err := ing.Run(context.Background(), "uploader-1", "attendance.csv", strings.NewReader(data)); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if dir.createCalls != 1 {
		t.Fatalf("expected a single provisioning call, got %d", dir.createCalls)
	}
	provisioned := dir.byEP["EMP001"]
	if provisioned == nil {
		t.Fatal("employee was not provisioned")
	}
	if provisioned.FirstName != "John" || provisioned.LastName != "Michael Doe" {
		t.Fatalf("name split = %q / %q", provisioned.FirstName, provisioned.LastName)
	}
	if provisioned.Role != "employee" || !provisioned.ForcePasswordChange {
		t.Fatalf("provisioned account = %+v", provisioned)
	}
}

func TestIngestStoreFailureIsContained(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	records.upsertErr = func(rec NormalizedRecord) error {
		if rec.EPNumber == "EMP002" {
			return errors.New("connection reset")
		}
		return nil
	}
	artifacts := newFakeArtifacts()
	ing := newTestIngestor(dir, records, progress.NewMemoryTracker(5*time.Minute), artifacts)

	data := buildCSV(t,
		sheetRow("EMP001", "John Doe", "01-01-2024"),
		sheetRow("EMP002", "Jane Smith", "01-01-2024"),
		sheetRow("EMP003", "Mike Johnson", "01-01-2024"),
	)

	summary, err := ing.Run(context.Background(), "uploader-1", "attendance.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("store failure must not abort the run: %v", err)
	}
	if summary.Created != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	report := string(artifacts.saved[summary.ErrorFile])
	if !strings.Contains(report, "connection reset") {
		t.Fatalf("store error not captured verbatim:\n%s", report)
	}
}

func TestIngestFatalOnUndecodableFile(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	ing := newTestIngestor(dir, records, progress.NewMemoryTracker(5*time.Minute), newFakeArtifacts())

	_, err := ing.Run(context.Background(), "uploader-1", "empty.csv", strings.NewReader(""))
	if err == nil {
		t.Fatal("expected a fatal error for an empty file")
	}
	if len(records.runs) != 0 {
		t.Fatal("no upload run should exist for a fatal parse failure")
	}

	// A quote error anywhere in the body is structural, not row-level.
	broken := strings.Join(UploadColumns, ",") + "\n\"EMP001,John\n"
	_, err = ing.Run(context.Background(), "uploader-1", "broken.csv", strings.NewReader(broken))
	if err == nil {
		t.Fatal("expected a fatal error for a structurally broken file")
	}
	if len(records.runs) != 0 {
		t.Fatal("no upload run should exist for a fatal parse failure")
	}
}

func TestIngestCleanFileHasNoArtifact(t *testing.T) {
	dir := newFakeDirectory()
	records := newFakeRecords()
	artifacts := newFakeArtifacts()
	ing := newTestIngestor(dir, records, progress.NewMemoryTracker(5*time.Minute), artifacts)

	summary, err := ing.Run(context.Background(), "uploader-1", "attendance.csv",
		strings.NewReader(buildCSV(t, sheetRow("EMP001", "John Doe", "01-01-2024"))))
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if summary.ErrorFile != "" {
		t.Fatalf("clean run should not attach an artifact, got %q", summary.ErrorFile)
	}
	if len(artifacts.saved) != 0 {
		t.Fatalf("no artifact should be saved, got %v", artifacts.saved)
	}
}
