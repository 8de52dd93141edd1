package pms

import (
	"context"
	"log"
	"time"

	"github.com/dentalray/pmsbridge/internal/schema"
)

// Noop is the fallback Provider for PMS types that are configured but
// not implemented. Every call logs once and returns no data, so the
// rest of the agent behaves exactly as with an empty PMS.
type Noop struct {
	typ    Type
	logger *log.Logger
}

// NewNoop creates a no-op provider reporting the given type.
func NewNoop(t Type, logger *log.Logger) *Noop {
	return &Noop{typ: t, logger: logger}
}

// Type implements Provider.
func (n *Noop) Type() Type { return n.typ }

// Available implements Provider. The no-op PMS is never available, so
// the sync engine skips its cycle with a log line instead of diffing
// against an empty export.
func (n *Noop) Available(ctx context.Context) bool {
	n.logger.Printf("%s integration not implemented yet", n.typ)
	return false
}

// PatientsSince implements Provider.
func (n *Noop) PatientsSince(ctx context.Context, since time.Time) ([]*schema.Patient, error) {
	n.logger.Printf("%s integration not implemented yet; no patients exported", n.typ)
	return nil, nil
}

// PatientInsurance implements Provider.
func (n *Noop) PatientInsurance(ctx context.Context, patientID int64) ([]*schema.Insurance, error) {
	return nil, nil
}
