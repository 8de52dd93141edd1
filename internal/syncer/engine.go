// Package syncer implements the incremental patient sync: a cursor in
// the local store marks the last successful export, each cycle pulls
// patients modified since that cursor from the PMS, imports the ones
// not yet known locally, and fetches their insurance in rate-limited
// batches.
package syncer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/dentalray/pmsbridge/internal/pms"
	"github.com/dentalray/pmsbridge/internal/schema"
	"github.com/dentalray/pmsbridge/internal/store"
)

const (
	// insuranceBatchSize bounds how many patients one insurance batch
	// covers before the engine pauses.
	insuranceBatchSize = 10

	// insuranceBatchDelay is the pause between insurance batches, so
	// the PMS API is never hammered. No delay follows the final batch.
	insuranceBatchDelay = 500 * time.Millisecond
)

// Engine runs incremental sync cycles against one PMS provider.
type Engine struct {
	store    *store.Store
	provider pms.Provider
	logger   *log.Logger

	// exportStart seeds the cursor when no sync has ever completed.
	exportStart time.Time

	batchSize  int
	batchDelay time.Duration
}

// CycleResult summarizes what one sync cycle did.
type CycleResult struct {
	Fetched           int
	Imported          int
	InsurancePlans    int
	InsuranceFailures int
	CursorAdvanced    bool
}

// New creates a sync engine. exportStart is the historical lower bound
// used on the very first cycle, before any cursor exists.
func New(s *store.Store, provider pms.Provider, exportStart time.Time, logger *log.Logger) *Engine {
	return &Engine{
		store:       s,
		provider:    provider,
		logger:      logger,
		exportStart: exportStart,
		batchSize:   insuranceBatchSize,
		batchDelay:  insuranceBatchDelay,
	}
}

// SetBatching overrides the insurance batch size and inter-batch
// delay (tests).
func (e *Engine) SetBatching(size int, delay time.Duration) {
	e.batchSize = size
	e.batchDelay = delay
}

// RunCycle executes one full sync cycle. Provider unavailability and
// fetch errors end the cycle with an error; the caller logs it and
// waits for the next tick. The cursor only advances after new
// patients were persisted, so a cycle that finds nothing new will
// re-examine the same window next time.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	e.logger.Printf("Starting patient sync cycle")

	if !e.provider.Available(ctx) {
		return nil, fmt.Errorf("%s API is not available, skipping sync cycle", e.provider.Type())
	}

	since, err := e.cursor(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Printf("Fetching patients modified since %s", since.Format("2006-01-02 15:04:05"))

	patients, err := e.provider.PatientsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}

	result := &CycleResult{Fetched: len(patients)}

	newPatients, err := e.diff(ctx, patients)
	if err != nil {
		return nil, err
	}
	if len(newPatients) == 0 {
		e.logger.Printf("No new patients to import (%d fetched, all known)", len(patients))
		return result, nil
	}

	imported, err := e.store.BulkInsertPatients(ctx, newPatients)
	if err != nil {
		return nil, fmt.Errorf("failed to import patients: %w", err)
	}
	result.Imported = imported
	e.logger.Printf("Imported %d new patient(s)", imported)

	plans, failures := e.fetchInsurance(ctx, newPatients)
	result.InsuranceFailures = failures
	if len(plans) > 0 {
		inserted, err := e.store.BulkInsertInsurance(ctx, plans)
		if err != nil {
			return nil, fmt.Errorf("failed to import insurance: %w", err)
		}
		result.InsurancePlans = inserted
		e.logger.Printf("Imported %d insurance plan(s)", inserted)
	}
	if failures > 0 {
		e.logger.Printf("Insurance fetch failed for %d patient(s)", failures)
	}

	if err := e.advanceCursor(ctx, imported); err != nil {
		return nil, err
	}
	result.CursorAdvanced = true

	e.logger.Printf("Sync cycle complete: %d fetched, %d imported, %d insurance plans",
		result.Fetched, result.Imported, result.InsurancePlans)
	return result, nil
}

// cursor reads the last-export timestamp, falling back to the
// configured export start for a fresh database.
func (e *Engine) cursor(ctx context.Context) (time.Time, error) {
	t, ok, err := e.store.GetConfigTime(ctx, store.KeyLastExportDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync cursor: %w", err)
	}
	if !ok {
		e.logger.Printf("No sync cursor found, starting from %s", e.exportStart.Format("2006-01-02"))
		return e.exportStart, nil
	}
	return t, nil
}

// diff returns the fetched patients not yet present locally.
func (e *Engine) diff(ctx context.Context, patients []*schema.Patient) ([]*schema.Patient, error) {
	existing, err := e.store.PatientIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list known patients: %w", err)
	}

	var fresh []*schema.Patient
	for _, p := range patients {
		if !existing[p.ID] {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

// fetchInsurance pulls insurance for the given patients in rate-limited
// batches. A failed fetch is counted and logged; the patient stays
// imported without coverage.
func (e *Engine) fetchInsurance(ctx context.Context, patients []*schema.Patient) ([]*schema.Insurance, int) {
	var plans []*schema.Insurance
	failures := 0

	for start := 0; start < len(patients); start += e.batchSize {
		end := start + e.batchSize
		if end > len(patients) {
			end = len(patients)
		}

		for _, p := range patients[start:end] {
			got, err := e.provider.PatientInsurance(ctx, p.ID)
			if err != nil {
				e.logger.Printf("Failed to fetch insurance for patient %d: %v", p.ID, err)
				failures++
				continue
			}
			plans = append(plans, got...)
		}

		e.logger.Printf("Insurance export progress: %d/%d patients", end, len(patients))

		if end < len(patients) {
			select {
			case <-ctx.Done():
				return plans, failures
			case <-time.After(e.batchDelay):
			}
		}
	}

	return plans, failures
}

// advanceCursor records the new export timestamp and how many patients
// the cycle imported.
func (e *Engine) advanceCursor(ctx context.Context, imported int) error {
	if err := e.store.SetConfigTime(ctx, store.KeyLastExportDate, time.Now()); err != nil {
		return fmt.Errorf("failed to advance sync cursor: %w", err)
	}
	if err := e.store.SetConfig(ctx, store.KeyLastPatientCount, strconv.Itoa(imported)); err != nil {
		return fmt.Errorf("failed to record patient count: %w", err)
	}
	return nil
}
