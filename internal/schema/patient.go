package schema

import (
	"fmt"
	"time"
)

// Patient is a patient record synced from the PMS. The ID is the
// PMS-assigned identifier, not a local autoincrement, so diffing
// against the remote export is a straight id-set comparison.
type Patient struct {
	ID          int64
	FirstName   string
	LastName    string
	Phone       string
	Email       string
	Address     string
	City        string
	State       string
	ZipCode     string
	DateOfBirth time.Time

	// ReportReady marks patients whose diagnostic report has been
	// delivered into the PMS image store.
	ReportReady bool
}

// FullName returns "First Last" as used by the folder resolver.
func (p *Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Validate checks the invariants every stored patient must satisfy.
func (p *Patient) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("patient id must be positive, got %d", p.ID)
	}
	if p.FirstName == "" && p.LastName == "" {
		return fmt.Errorf("patient %d has no name", p.ID)
	}
	return nil
}
