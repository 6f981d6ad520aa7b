package clinical

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Prescriptions --

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionCols = `id, appointment_id, patient_id, doctor_id, complaints, diagnosis, medicines, remarks, dispensed, dispensed_at, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.AppointmentID, &p.PatientID, &p.DoctorID, &p.Complaints,
		&p.Diagnosis, &p.Medicines, &p.Remarks, &p.Dispensed, &p.DispensedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Prescription not found")
	}
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO prescriptions (id, appointment_id, patient_id, doctor_id, complaints, diagnosis, medicines, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.AppointmentID, p.PatientID, p.DoctorID, p.Complaints, p.Diagnosis, p.Medicines, p.Remarks)
	return err
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	return scanPrescription(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE appointment_id = $1`, appointmentID))
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, `patient_id = $1`, patientID, limit, offset)
}

func (r *prescriptionRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, `doctor_id = $1`, doctorID, limit, offset)
}

func (r *prescriptionRepoPG) ListPendingDispense(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, `dispensed = $1`, false, limit, offset)
}

func (r *prescriptionRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescriptions WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+prescriptionCols+` FROM prescriptions WHERE `+where+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE prescriptions SET complaints = $2, diagnosis = $3, medicines = $4, remarks = $5, updated_at = NOW()
		WHERE id = $1 AND dispensed = FALSE`,
		p.ID, p.Complaints, p.Diagnosis, p.Medicines, p.Remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Prescription not found")
	}
	return nil
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM prescriptions WHERE id = $1 AND doctor_id = $2 AND dispensed = FALSE`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Prescription not found")
	}
	return nil
}

func (r *prescriptionRepoPG) MarkDispensed(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE prescriptions SET dispensed = TRUE, dispensed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND dispensed = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Prescription not found")
	}
	return nil
}

// -- Saved diagnoses --

type diagnosisRepoPG struct{ pool *pgxpool.Pool }

func NewDiagnosisRepoPG(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepoPG{pool: pool}
}

func (r *diagnosisRepoPG) Create(ctx context.Context, d *SavedDiagnosis) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO saved_diagnoses (id, doctor_id, text) VALUES ($1,$2,$3)`,
		d.ID, d.DoctorID, d.Text)
	return err
}

func (r *diagnosisRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*SavedDiagnosis, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, doctor_id, text, created_at FROM saved_diagnoses
		WHERE doctor_id = $1 ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*SavedDiagnosis
	for rows.Next() {
		var d SavedDiagnosis
		if err := rows.Scan(&d.ID, &d.DoctorID, &d.Text, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *diagnosisRepoPG) Delete(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM saved_diagnoses WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Diagnosis not found")
	}
	return nil
}

// -- Medicine groups --

type medicineGroupRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineGroupRepoPG(pool *pgxpool.Pool) MedicineGroupRepository {
	return &medicineGroupRepoPG{pool: pool}
}

const groupCols = `id, doctor_id, name, medicines, created_at, updated_at`

func scanGroup(row pgx.Row) (*MedicineGroup, error) {
	var g MedicineGroup
	err := row.Scan(&g.ID, &g.DoctorID, &g.Name, &g.Medicines, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Medicine group not found")
	}
	return &g, err
}

func (r *medicineGroupRepoPG) Create(ctx context.Context, g *MedicineGroup) error {
	g.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medicine_groups (id, doctor_id, name, medicines) VALUES ($1,$2,$3,$4)`,
		g.ID, g.DoctorID, g.Name, g.Medicines)
	return err
}

func (r *medicineGroupRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicineGroup, error) {
	return scanGroup(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+groupCols+` FROM medicine_groups WHERE id = $1`, id))
}

func (r *medicineGroupRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*MedicineGroup, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+groupCols+` FROM medicine_groups WHERE doctor_id = $1 ORDER BY name`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*MedicineGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *medicineGroupRepoPG) Update(ctx context.Context, g *MedicineGroup) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE medicine_groups SET name=$3, medicines=$4, updated_at=NOW()
		WHERE id = $1 AND doctor_id = $2`, g.ID, g.DoctorID, g.Name, g.Medicines)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Medicine group not found")
	}
	return nil
}

func (r *medicineGroupRepoPG) Delete(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM medicine_groups WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Medicine group not found")
	}
	return nil
}
