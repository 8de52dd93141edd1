// Package reports drives externally produced report files into the
// PMS image store: a deduplicating queue feeds a per-file state
// machine (UPLOADED -> PROCESSED -> IMPORTED -> SUCCESS|FAILED), and a
// cleanup pass removes source files of already-succeeded imports.
package reports

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dentalray/pmsbridge/internal/folders"
	"github.com/dentalray/pmsbridge/internal/pms"
	"github.com/dentalray/pmsbridge/internal/store"
)

// namePrefixes are the fixed file-name prefixes stripped before
// treating the remainder as a patient name.
var namePrefixes = []string{"DentalRay_Report_", "DentalRay_", "Report_"}

// destNameLayout stamps the copied file inside the patient folder.
const destNameLayout = "20060102_150405"

// FinalizePolicy decides what happens when the source file cannot be
// deleted after a successful import.
type FinalizePolicy int

const (
	// FinalizeLenient marks the report SUCCESS even when the source
	// file could not be removed; the cleanup worker retries the
	// deletion before later drains. This is the historical behavior.
	FinalizeLenient FinalizePolicy = iota

	// FinalizeStrict marks the report FAILED when the source file
	// cannot be removed.
	FinalizeStrict
)

// Pipeline runs one report file through the import state machine.
// Strictly sequential within a run; the queue guarantees only one run
// is active at a time.
type Pipeline struct {
	store    *store.Store
	provider pms.Type
	resolver *folders.Resolver
	logger   *log.Logger

	// Finalize controls source-deletion failure handling.
	Finalize FinalizePolicy
}

// NewPipeline creates a pipeline importing into the given provider's
// image store. The resolver may be nil for providers without an
// implemented import path; their files fail at the import stage.
func NewPipeline(s *store.Store, provider pms.Type, resolver *folders.Resolver, logger *log.Logger) *Pipeline {
	return &Pipeline{
		store:    s,
		provider: provider,
		resolver: resolver,
		logger:   logger,
	}
}

// Process drives one file through all stages. Failures after the
// record exists are written to the record and returned; a failure to
// create the record aborts the run with nothing else attempted.
func (p *Pipeline) Process(ctx context.Context, path string) error {
	p.logger.Printf("Processing report: %s", path)

	// Stage 1: UPLOADED - create the audit record.
	id, err := p.store.InsertUploadedReport(ctx, filepath.Base(path), path)
	if err != nil {
		p.logger.Printf("Could not save report to database: %s: %v", path, err)
		return fmt.Errorf("failed to create report record: %w", err)
	}

	// Stage 2: PROCESSED - extract the patient name.
	patientName := ExtractPatientName(path)
	if patientName == "" {
		p.fail(ctx, id, "could not extract patient name from file name")
		return fmt.Errorf("could not extract patient name from %s", filepath.Base(path))
	}
	if err := p.store.MarkReportProcessed(ctx, id, patientName); err != nil {
		p.fail(ctx, id, err.Error())
		return err
	}
	p.logger.Printf("Extracted patient name from file name: %s", patientName)

	// Stage 3: IMPORTED - copy into the PMS image store.
	destination, err := p.importToPMS(path, patientName)
	if err != nil {
		p.logger.Printf("Error importing report to %s: %v", p.provider, err)
		p.fail(ctx, id, "failed to import to PMS - folder not found")
		return err
	}
	if err := p.store.MarkReportImported(ctx, id, destination); err != nil {
		p.fail(ctx, id, err.Error())
		return err
	}
	p.logger.Printf("Report imported to: %s", destination)

	// Stage 4: SUCCESS - remove the source file.
	if err := os.Remove(path); err != nil {
		p.logger.Printf("Failed to delete report file: %s: %v", path, err)
		if p.Finalize == FinalizeStrict {
			p.fail(ctx, id, fmt.Sprintf("imported but could not delete source: %v", err))
			return fmt.Errorf("failed to delete source file: %w", err)
		}
		// Lenient: the cleanup worker retries before later drains.
	}
	if err := p.store.MarkReportSuccess(ctx, id); err != nil {
		p.fail(ctx, id, err.Error())
		return err
	}

	p.logger.Printf("Report successfully processed: %s", path)
	return nil
}

// fail moves the record to FAILED, logging if even that fails.
func (p *Pipeline) fail(ctx context.Context, id int64, reason string) {
	if err := p.store.MarkReportFailed(ctx, id, reason); err != nil {
		p.logger.Printf("Error updating report %d to FAILED: %v", id, err)
	}
}

// importToPMS copies the file into the provider's patient folder and
// returns the destination path.
func (p *Pipeline) importToPMS(path, patientName string) (string, error) {
	switch p.provider {
	case pms.TypeOpenDental:
		return p.importToOpenDental(path, patientName)
	default:
		return "", fmt.Errorf("%s report import not implemented yet", p.provider)
	}
}

// importToOpenDental resolves (or creates) the patient folder under
// the OpenDental image root and copies the report there under a
// timestamped name.
func (p *Pipeline) importToOpenDental(path, patientName string) (string, error) {
	if p.resolver == nil {
		return "", fmt.Errorf("OpenDental image path not configured")
	}
	if _, err := os.Stat(p.resolver.Root()); os.IsNotExist(err) {
		return "", fmt.Errorf("OpenDental images folder not found: %s", p.resolver.Root())
	}

	folder, err := p.resolver.FindOrCreate(patientName)
	if err != nil {
		return "", err
	}

	destination := filepath.Join(folder, "Report_"+time.Now().Format(destNameLayout)+".pdf")
	if err := copyFile(path, destination); err != nil {
		return "", fmt.Errorf("failed to copy report into %s: %w", folder, err)
	}

	return destination, nil
}

// ExtractPatientName derives a patient name from a report file name by
// stripping the known prefixes and turning underscores into spaces.
// Returns "" when nothing usable remains.
func ExtractPatientName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	for _, prefix := range namePrefixes {
		name = strings.ReplaceAll(name, prefix, "")
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))

	return name
}

// copyFile copies src to dst, overwriting dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
