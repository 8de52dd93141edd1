// Package pms defines the Practice Management System provider
// abstraction. Each supported PMS (OpenDental today, Dentrix and
// EagleSoft reserved) implements Provider and registers a constructor;
// unimplemented providers fall back to a no-op that logs and returns
// no data.
package pms

import (
	"context"
	"fmt"
	"time"

	"github.com/dentalray/pmsbridge/internal/schema"
)

// Type identifies a PMS provider.
type Type string

const (
	// TypeOpenDental is the OpenDental REST API provider.
	TypeOpenDental Type = "opendental"
	// TypeDentrix is reserved; currently a no-op.
	TypeDentrix Type = "dentrix"
	// TypeEagleSoft is reserved; currently a no-op.
	TypeEagleSoft Type = "eaglesoft"
)

// ParseType converts a configuration string to a provider Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeOpenDental, TypeDentrix, TypeEagleSoft:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown PMS provider %q", s)
}

// Provider is the outbound interface to one PMS.
//
// Implementations are read-only HTTP clients; all persistence happens
// in the caller. Every method takes a context because each call is a
// network round trip.
type Provider interface {
	// Type returns the provider's identity.
	Type() Type

	// Available probes the API with a minimal request and reports
	// whether a sync cycle is worth starting.
	Available(ctx context.Context) bool

	// PatientsSince returns every patient modified at or after the
	// given cursor timestamp.
	PatientsSince(ctx context.Context, since time.Time) ([]*schema.Patient, error)

	// PatientInsurance returns the insurance plans for one patient,
	// already mapped to the generic shape.
	PatientInsurance(ctx context.Context, patientID int64) ([]*schema.Insurance, error)
}
