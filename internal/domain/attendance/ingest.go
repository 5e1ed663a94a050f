package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"labourtrack/internal/platform/progress"
)

// RecordStore is the slice of the attendance store the ingestion needs.
type RecordStore interface {
	UpsertRecord(ctx context.Context, userID string, rec NormalizedRecord) (bool, error)
	CreateUploadRun(ctx context.Context, run UploadRun) (string, error)
	AttachErrorFile(ctx context.Context, runID, path string) error
}

// ArtifactStore persists the generated error report.
type ArtifactStore interface {
	Save(subdir, name string, data []byte) (string, error)
}

// Summary is the final outcome of one ingestion run.
type Summary struct {
	RunID        string `json:"runId"`
	SessionToken string `json:"sessionToken"`
	TotalRows    int    `json:"totalRows"`
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
	Failed       int    `json:"failed"`
	ErrorFile    string `json:"errorFile,omitempty"`
}

// Ingestor drives a full attendance upload: decode the CSV, validate
// and upsert row by row, publish progress under a fresh session token,
// collect rejects into a downloadable report, and record the run.
type Ingestor struct {
	Directory UserDirectory
	Records   RecordStore
	Progress  progress.Tracker
	Artifacts ArtifactStore

	now func() time.Time
}

func NewIngestor(directory UserDirectory, records RecordStore, tracker progress.Tracker, artifacts ArtifactStore) *Ingestor {
	return &Ingestor{
		Directory: directory,
		Records:   records,
		Progress:  tracker,
		Artifacts: artifacts,
		now:       time.Now,
	}
}

// Run processes one uploaded file sequentially, in input order. A row
// failure of any kind is contained to that row; only a file that
// cannot be decoded as a CSV table at all fails the run, and that is
// detected before the session token exists.
func (ing *Ingestor) Run(ctx context.Context, uploadedBy, filename string, input io.Reader) (*Summary, error) {
	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to parse upload as csv: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse upload as csv: %w", err)
	}

	token := uuid.NewString()
	prog := progress.Progress{Total: len(rows), Status: progress.StatusProcessing}
	ing.Progress.Set(ctx, token, prog)

	resolver := NewResolver(ing.Directory)
	report := NewErrorReport(headers)
	created := 0
	updated := 0

	for i, raw := range rows {
		number := i + 2 // header is row 1
		fields := rowFields(headers, raw)
		prog.Processed = i + 1

		rec, rowErr := ValidateRow(number, fields)
		if rowErr == nil {
			owner, _, err := resolver.Resolve(ctx, rec)
			if err != nil {
				rowErr = &RowError{Number: number, Kind: FailureResolver, Message: err.Error()}
			} else {
				wasCreated, err := ing.Records.UpsertRecord(ctx, owner.ID, rec)
				if err != nil {
					rowErr = &RowError{Number: number, Kind: FailureStore, Message: err.Error()}
				} else if wasCreated {
					created++
				} else {
					updated++
				}
			}
		}

		if rowErr != nil {
			prog.Errors++
			report.Add(FailedRow{Number: number, Message: rowErr.Message, Fields: fields})
		} else {
			prog.Success = created + updated
		}
		ing.Progress.Set(ctx, token, prog)
	}

	runID, err := ing.Records.CreateUploadRun(ctx, UploadRun{
		UploadedBy:   uploadedBy,
		Filename:     filename,
		TotalRows:    len(rows),
		AcceptedRows: created + updated,
		RejectedRows: report.Count(),
	})
	if err != nil {
		return nil, err
	}

	errorFile := ""
	if !report.Empty() {
		data, err := report.Bytes()
		if err != nil {
			slog.Warn("error report build failed", "runId", runID, "err", err)
		} else {
			name := ErrorReportFilename(filename, ing.now())
			path, err := ing.Artifacts.Save("upload_errors", name, data)
			if err != nil {
				slog.Warn("error report save failed", "runId", runID, "err", err)
			} else if err := ing.Records.AttachErrorFile(ctx, runID, path); err != nil {
				slog.Warn("error report attach failed", "runId", runID, "err", err)
			} else {
				errorFile = path
			}
		}
	}

	prog.Status = progress.StatusDone
	ing.Progress.Set(ctx, token, prog)

	return &Summary{
		RunID:        runID,
		SessionToken: token,
		TotalRows:    len(rows),
		Created:      created,
		Updated:      updated,
		Failed:       report.Count(),
		ErrorFile:    errorFile,
	}, nil
}

func rowFields(headers []string, raw []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, column := range headers {
		if i < len(raw) {
			fields[column] = raw[i]
		} else {
			fields[column] = ""
		}
	}
	return fields
}
