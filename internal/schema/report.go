// Package schema defines the domain records shared by the store, the
// sync engine and the report pipeline: patients, insurance plans and
// report files moving through the import state machine.
package schema

import (
	"fmt"
	"time"
)

// ReportStatus is the state of a report file in the import pipeline.
//
// A report moves forward through UPLOADED -> PROCESSED -> IMPORTED ->
// SUCCESS. Any non-terminal state may drop to FAILED. SUCCESS and
// FAILED are terminal.
type ReportStatus string

const (
	// StatusUploaded means a record exists for a file found in the inbox.
	StatusUploaded ReportStatus = "UPLOADED"
	// StatusProcessed means the patient name was extracted from the file name.
	StatusProcessed ReportStatus = "PROCESSED"
	// StatusImported means the file was copied into the PMS image store.
	StatusImported ReportStatus = "IMPORTED"
	// StatusSuccess means the source file was finalized and removed.
	StatusSuccess ReportStatus = "SUCCESS"
	// StatusFailed means some stage failed; ErrorMessage holds the reason.
	StatusFailed ReportStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s ReportStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal
// forward step of the state machine.
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	switch s {
	case StatusUploaded:
		return next == StatusProcessed
	case StatusProcessed:
		return next == StatusImported
	case StatusImported:
		return next == StatusSuccess
	}
	return false
}

// Report is the audit record for one file handled by the pipeline.
// Rows are created when a file enters the pipeline and are never
// deleted, even after the source file is removed.
type Report struct {
	ID              int64
	FileName        string
	OriginalPath    string
	PatientName     string
	DestinationPath string
	Status          ReportStatus
	ErrorMessage    string
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	ImportedAt      *time.Time
	CompletedAt     *time.Time
}

// Validate checks that the report has the fields every row must carry.
func (r *Report) Validate() error {
	if r.FileName == "" {
		return fmt.Errorf("report file name cannot be empty")
	}
	if r.OriginalPath == "" {
		return fmt.Errorf("report original path cannot be empty")
	}
	if r.Status == "" {
		return fmt.Errorf("report status cannot be empty")
	}
	return nil
}
