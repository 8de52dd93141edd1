package store

import (
	"context"
	"testing"

	"github.com/dentalray/pmsbridge/internal/schema"
)

func testInsurance(patientID int64, carrier, policy string) *schema.Insurance {
	return &schema.Insurance{
		PatientID:        patientID,
		CarrierName:      carrier,
		PolicyNumber:     policy,
		GroupNumber:      "GRP-1",
		PolicyholderName: "Self",
		Relationship:     schema.RelationshipSelf,
		Priority:         schema.PriorityPrimary,
		IsActive:         true,
	}
}

// TestBulkInsertInsurance_InsertAndReadBack inserts plans and reads
// them back per patient.
func TestBulkInsertInsurance_InsertAndReadBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.BulkInsertPatients(ctx, []*schema.Patient{testPatient(1, "John", "Smith")}); err != nil {
		t.Fatalf("seed patient failed: %v", err)
	}

	plans := []*schema.Insurance{
		testInsurance(1, "Aetna", "POL-1"),
		testInsurance(1, "Delta Dental", "POL-2"),
	}
	count, err := s.BulkInsertInsurance(ctx, plans)
	if err != nil {
		t.Fatalf("BulkInsertInsurance() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("inserted %d plans, want 2", count)
	}

	got, err := s.InsuranceForPatient(ctx, 1)
	if err != nil {
		t.Fatalf("InsuranceForPatient() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d plans, want 2", len(got))
	}
}

// TestBulkInsertInsurance_UniquePlanReplaced verifies the
// (patient, carrier, policy) uniqueness invariant: re-inserting the
// same plan replaces the row instead of adding a duplicate.
func TestBulkInsertInsurance_UniquePlanReplaced(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.BulkInsertPatients(ctx, []*schema.Patient{testPatient(1, "John", "Smith")}); err != nil {
		t.Fatalf("seed patient failed: %v", err)
	}

	first := testInsurance(1, "Aetna", "POL-1")
	if _, err := s.BulkInsertInsurance(ctx, []*schema.Insurance{first}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	updated := testInsurance(1, "Aetna", "POL-1")
	updated.Priority = schema.PrioritySecondary
	if _, err := s.BulkInsertInsurance(ctx, []*schema.Insurance{updated}); err != nil {
		t.Fatalf("re-insert failed: %v", err)
	}

	count, err := s.InsuranceCount(ctx)
	if err != nil {
		t.Fatalf("InsuranceCount() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("insurance count = %d, want 1 (replaced, not duplicated)", count)
	}

	got, err := s.InsuranceForPatient(ctx, 1)
	if err != nil {
		t.Fatalf("InsuranceForPatient() failed: %v", err)
	}
	if got[0].Priority != schema.PrioritySecondary {
		t.Errorf("Priority = %q, want replaced value Secondary", got[0].Priority)
	}
}

// TestBulkInsertInsurance_RollbackOnInvalid verifies an invalid row
// aborts the whole batch.
func TestBulkInsertInsurance_RollbackOnInvalid(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.BulkInsertPatients(ctx, []*schema.Patient{testPatient(1, "John", "Smith")}); err != nil {
		t.Fatalf("seed patient failed: %v", err)
	}

	batch := []*schema.Insurance{
		testInsurance(1, "Aetna", "POL-1"),
		{PatientID: 1}, // missing carrier
	}
	if _, err := s.BulkInsertInsurance(ctx, batch); err == nil {
		t.Fatal("BulkInsertInsurance() with invalid row should fail")
	}

	count, err := s.InsuranceCount(ctx)
	if err != nil {
		t.Fatalf("InsuranceCount() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("insurance count after rollback = %d, want 0", count)
	}
}
