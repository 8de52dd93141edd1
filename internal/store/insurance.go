package store

import (
	"context"
	"fmt"

	"github.com/dentalray/pmsbridge/internal/schema"
)

// BulkInsertInsurance inserts all insurance plans inside a single
// transaction, or none on error.
//
// INSERT OR REPLACE keeps the (PatientId, CarrierName, PolicyNumber)
// uniqueness invariant: a re-fetched plan replaces the existing row
// instead of failing the whole batch.
func (s *Store) BulkInsertInsurance(ctx context.Context, plans []*schema.Insurance) (int, error) {
	if len(plans) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT OR REPLACE INTO Insurance (
		PatientId, CarrierName, PolicyNumber, GroupNumber,
		PolicyholderName, Relationship, Priority, IsActive
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insurance insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, plan := range plans {
		if err := plan.Validate(); err != nil {
			return 0, fmt.Errorf("invalid insurance: %w", err)
		}

		_, err := stmt.ExecContext(ctx,
			plan.PatientID,
			plan.CarrierName,
			plan.PolicyNumber,
			plan.GroupNumber,
			plan.PolicyholderName,
			plan.Relationship,
			plan.Priority,
			plan.IsActive,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert insurance for patient %d: %w", plan.PatientID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insurance batch: %w", err)
	}

	return count, nil
}

// InsuranceCount returns the total number of insurance rows.
func (s *Store) InsuranceCount(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM Insurance").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count insurance: %w", err)
	}
	return count, nil
}

// InsuranceForPatient returns all insurance plans stored for a patient,
// primary coverage first.
func (s *Store) InsuranceForPatient(ctx context.Context, patientID int64) ([]*schema.Insurance, error) {
	query := `
	SELECT PatientId, CarrierName, PolicyNumber, GroupNumber,
	       PolicyholderName, Relationship, Priority, IsActive
	FROM Insurance
	WHERE PatientId = ?
	ORDER BY Priority ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query insurance: %w", err)
	}
	defer rows.Close()

	var plans []*schema.Insurance
	for rows.Next() {
		var plan schema.Insurance
		err := rows.Scan(
			&plan.PatientID,
			&plan.CarrierName,
			&plan.PolicyNumber,
			&plan.GroupNumber,
			&plan.PolicyholderName,
			&plan.Relationship,
			&plan.Priority,
			&plan.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insurance: %w", err)
		}
		plans = append(plans, &plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insurance: %w", err)
	}

	return plans, nil
}
