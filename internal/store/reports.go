package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dentalray/pmsbridge/internal/schema"
)

// InsertUploadedReport creates the UPLOADED audit row for a file that
// just entered the pipeline and returns its id.
func (s *Store) InsertUploadedReport(ctx context.Context, fileName, originalPath string) (int64, error) {
	query := `
	INSERT INTO Reports (FileName, OriginalPath, Status, CreatedAt)
	VALUES (?, ?, ?, ?)
	`

	res, err := s.conn.ExecContext(ctx, query,
		fileName,
		originalPath,
		string(schema.StatusUploaded),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	return id, nil
}

// reportStatus reads the current status of a report row.
func (s *Store) reportStatus(ctx context.Context, id int64) (schema.ReportStatus, error) {
	var status string
	err := s.conn.QueryRowContext(ctx, "SELECT Status FROM Reports WHERE Id = ?", id).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("failed to read status of report %d: %w", id, err)
	}
	return schema.ReportStatus(status), nil
}

// transition validates and applies a status change. Every report
// update goes through here so the monotonic state machine holds no
// matter which caller is driving.
func (s *Store) transition(ctx context.Context, id int64, next schema.ReportStatus, query string, args ...any) error {
	current, err := s.reportStatus(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanTransition(next) {
		return fmt.Errorf("report %d: illegal transition %s -> %s", id, current, next)
	}

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update report %d to %s: %w", id, next, err)
	}
	return nil
}

// MarkReportProcessed records the extracted patient name and advances
// the report to PROCESSED.
func (s *Store) MarkReportProcessed(ctx context.Context, id int64, patientName string) error {
	query := `
	UPDATE Reports
	SET Status = ?, PatientName = ?, ProcessedAt = ?
	WHERE Id = ?
	`
	return s.transition(ctx, id, schema.StatusProcessed, query,
		string(schema.StatusProcessed), patientName, time.Now().UTC().Format(timeFormat), id)
}

// MarkReportImported records the destination path and advances the
// report to IMPORTED.
func (s *Store) MarkReportImported(ctx context.Context, id int64, destinationPath string) error {
	query := `
	UPDATE Reports
	SET Status = ?, DestinationPath = ?, ImportedAt = ?
	WHERE Id = ?
	`
	return s.transition(ctx, id, schema.StatusImported, query,
		string(schema.StatusImported), destinationPath, time.Now().UTC().Format(timeFormat), id)
}

// MarkReportSuccess advances the report to its terminal SUCCESS state.
func (s *Store) MarkReportSuccess(ctx context.Context, id int64) error {
	query := `
	UPDATE Reports
	SET Status = ?, CompletedAt = ?
	WHERE Id = ?
	`
	return s.transition(ctx, id, schema.StatusSuccess, query,
		string(schema.StatusSuccess), time.Now().UTC().Format(timeFormat), id)
}

// MarkReportFailed records the failure reason and moves the report to
// its terminal FAILED state.
func (s *Store) MarkReportFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
	UPDATE Reports
	SET Status = ?, ErrorMessage = ?, CompletedAt = ?
	WHERE Id = ?
	`
	return s.transition(ctx, id, schema.StatusFailed, query,
		string(schema.StatusFailed), errorMessage, time.Now().UTC().Format(timeFormat), id)
}

// GetReport retrieves a single report row by id.
// Returns sql.ErrNoRows if the report is not found.
func (s *Store) GetReport(ctx context.Context, id int64) (*schema.Report, error) {
	query := `
	SELECT Id, FileName, OriginalPath, PatientName, DestinationPath,
	       Status, ErrorMessage, CreatedAt, ProcessedAt, ImportedAt, CompletedAt
	FROM Reports
	WHERE Id = ?
	`
	row := s.conn.QueryRowContext(ctx, query, id)
	return scanReport(row)
}

// LatestReportForPath retrieves the most recent report row created
// for the given source path. Returns sql.ErrNoRows if none exists.
func (s *Store) LatestReportForPath(ctx context.Context, originalPath string) (*schema.Report, error) {
	query := `
	SELECT Id, FileName, OriginalPath, PatientName, DestinationPath,
	       Status, ErrorMessage, CreatedAt, ProcessedAt, ImportedAt, CompletedAt
	FROM Reports
	WHERE OriginalPath = ?
	ORDER BY Id DESC
	LIMIT 1
	`
	row := s.conn.QueryRowContext(ctx, query, originalPath)
	return scanReport(row)
}

// SucceededReportPaths returns the original paths of reports in the
// terminal SUCCESS state whose source file may still be on disk.
// The cleanup worker deletes these before each queue drain.
func (s *Store) SucceededReportPaths(ctx context.Context) ([]string, error) {
	query := `
	SELECT OriginalPath
	FROM Reports
	WHERE Status = ? AND OriginalPath != ''
	`

	rows, err := s.conn.QueryContext(ctx, query, string(schema.StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("failed to query succeeded reports: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan report path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report paths: %w", err)
	}

	return paths, nil
}

// ReportCountsByStatus returns how many reports sit in each status.
func (s *Store) ReportCountsByStatus(ctx context.Context) (map[schema.ReportStatus]int, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT Status, COUNT(*) FROM Reports GROUP BY Status")
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	defer rows.Close()

	counts := make(map[schema.ReportStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan report count: %w", err)
		}
		counts[schema.ReportStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report counts: %w", err)
	}

	return counts, nil
}

// scanReport scans one report row from a query result.
func scanReport(row *sql.Row) (*schema.Report, error) {
	var r schema.Report
	var status string
	var patientName, destinationPath, errorMessage sql.NullString
	var createdAt string
	var processedAt, importedAt, completedAt sql.NullString

	err := row.Scan(
		&r.ID,
		&r.FileName,
		&r.OriginalPath,
		&patientName,
		&destinationPath,
		&status,
		&errorMessage,
		&createdAt,
		&processedAt,
		&importedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = schema.ReportStatus(status)
	r.PatientName = patientName.String
	r.DestinationPath = destinationPath.String
	r.ErrorMessage = errorMessage.String
	if t, err := time.Parse(timeFormat, createdAt); err == nil {
		r.CreatedAt = t
	}
	r.ProcessedAt = nullStringToTime(processedAt)
	r.ImportedAt = nullStringToTime(importedAt)
	r.CompletedAt = nullStringToTime(completedAt)

	return &r, nil
}
