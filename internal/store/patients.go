package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dentalray/pmsbridge/internal/schema"
)

// dateFormat is the layout for date-only columns (BirthDate).
const dateFormat = "2006-01-02"

// PatientIDs returns the set of every patient id already in the
// database. The sync engine diffs remote exports against this set.
func (s *Store) PatientIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT Id FROM Patients")
	if err != nil {
		return nil, fmt.Errorf("failed to query patient ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan patient id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient ids: %w", err)
	}

	return ids, nil
}

// PatientCount returns the total number of patients in the database.
func (s *Store) PatientCount(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM Patients").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}

// BulkInsertPatients inserts all patients inside a single transaction.
//
// Either every row is inserted or none are: any failure rolls back the
// whole batch and returns the error. Returns the number of rows
// inserted on success.
func (s *Store) BulkInsertPatients(ctx context.Context, patients []*schema.Patient) (int, error) {
	if len(patients) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO Patients (
		Id, FirstName, LastName, Phone, Email,
		Address, City, State, ZipCode, BirthDate, ReportReady
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare patient insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, p := range patients {
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("invalid patient: %w", err)
		}

		_, err := stmt.ExecContext(ctx,
			p.ID,
			p.FirstName,
			p.LastName,
			p.Phone,
			p.Email,
			p.Address,
			p.City,
			p.State,
			p.ZipCode,
			p.DateOfBirth.Format(dateFormat),
			p.ReportReady,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert patient %d: %w", p.ID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit patient batch: %w", err)
	}

	return count, nil
}

// GetPatient retrieves a single patient by id.
// Returns sql.ErrNoRows if the patient is not found.
func (s *Store) GetPatient(ctx context.Context, id int64) (*schema.Patient, error) {
	query := `
	SELECT Id, FirstName, LastName, Phone, Email,
	       Address, City, State, ZipCode, BirthDate, ReportReady
	FROM Patients
	WHERE Id = ?
	`

	var p schema.Patient
	var birthDate string
	err := s.conn.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.City,
		&p.State,
		&p.ZipCode,
		&birthDate,
		&p.ReportReady,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(dateFormat, birthDate); err == nil {
		p.DateOfBirth = t
	}

	return &p, nil
}
