package schema

import "fmt"

// Relationship values normalized from the PMS's free-text field.
const (
	RelationshipSelf   = "Self"
	RelationshipSpouse = "Spouse"
	RelationshipChild  = "Child"
	RelationshipOther  = "Other"
)

// Priority values derived from the PMS ordinal (1=Primary, 2=Secondary).
const (
	PriorityPrimary   = "Primary"
	PrioritySecondary = "Secondary"
)

// Insurance is a PMS-agnostic insurance plan attached to a patient.
// At most one row exists per (PatientID, CarrierName, PolicyNumber);
// the store enforces this with a unique index.
type Insurance struct {
	PatientID        int64
	CarrierName      string
	PolicyNumber     string
	GroupNumber      string
	PolicyholderName string
	Relationship     string
	Priority         string
	IsActive         bool
}

// Validate checks the fields billing requires on every plan.
func (i *Insurance) Validate() error {
	if i.PatientID <= 0 {
		return fmt.Errorf("insurance patient id must be positive, got %d", i.PatientID)
	}
	if i.CarrierName == "" {
		return fmt.Errorf("insurance carrier name cannot be empty")
	}
	return nil
}
