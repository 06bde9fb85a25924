package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/medilink/clinic-api/internal/model"
)

const patientColumns = `id, full_name, document_number, email, phone, address, birth_date, role, created_at`

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND role = $2`

	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id, model.RolePatient); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", translate(err))
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE role = $1 ORDER BY full_name ASC`

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, model.RolePatient); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Upsert(ctx context.Context, patient *model.Patient) error {
	if patient.Role == "" {
		patient.Role = model.RolePatient
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (:id, :full_name, :document_number, :email, :phone, :address, :birth_date, :role, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			document_number = EXCLUDED.document_number,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			birth_date = EXCLUDED.birth_date,
			role = EXCLUDED.role`

	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}
