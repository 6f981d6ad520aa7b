package lab

import (
	"context"
	"encoding/json"
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// -- Categories --

type categoryRepoPG struct{ pool *pgxpool.Pool }

func NewCategoryRepoPG(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepoPG{pool: pool}
}

const categoryCols = `id, code, name, lab_type, status, created_at, updated_at`

func scanCategory(row pgx.Row) (*TestCategory, error) {
	var c TestCategory
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.LabType, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Test category not found")
	}
	return &c, err
}

func (r *categoryRepoPG) Create(ctx context.Context, c *TestCategory) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO test_categories (id, code, name, lab_type, status)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Code, c.Name, c.LabType, c.Status)
	if isUniqueViolation(err) {
		return apperr.Validation("A category with this code already exists")
	}
	return err
}

func (r *categoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestCategory, error) {
	return scanCategory(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryCols+` FROM test_categories WHERE id = $1`, id))
}

func (r *categoryRepoPG) List(ctx context.Context, labType string) ([]*TestCategory, error) {
	query := `SELECT ` + categoryCols + ` FROM test_categories`
	args := []interface{}{}
	if labType != "" {
		query += ` WHERE lab_type = $1`
		args = append(args, labType)
	}
	query += ` ORDER BY code`
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*TestCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *categoryRepoPG) Update(ctx context.Context, c *TestCategory) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE test_categories SET code=$2, name=$3, lab_type=$4, status=$5, updated_at=NOW()
		WHERE id = $1`, c.ID, c.Code, c.Name, c.LabType, c.Status)
	if isUniqueViolation(err) {
		return apperr.Validation("A category with this code already exists")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Test category not found")
	}
	return nil
}

// -- Definitions --

type definitionRepoPG struct{ pool *pgxpool.Pool }

func NewDefinitionRepoPG(pool *pgxpool.Pool) DefinitionRepository {
	return &definitionRepoPG{pool: pool}
}

const definitionCols = `id, category_id, name, price, created_at, updated_at`

func scanDefinition(row pgx.Row) (*TestDefinition, error) {
	var d TestDefinition
	err := row.Scan(&d.ID, &d.CategoryID, &d.Name, &d.Price, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Test definition not found")
	}
	return &d, err
}

func (r *definitionRepoPG) Create(ctx context.Context, d *TestDefinition) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO test_definitions (id, category_id, name, price)
		VALUES ($1,$2,$3,$4)`, d.ID, d.CategoryID, d.Name, d.Price)
	return err
}

func (r *definitionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestDefinition, error) {
	return scanDefinition(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+definitionCols+` FROM test_definitions WHERE id = $1`, id))
}

func (r *definitionRepoPG) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*TestDefinition, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+definitionCols+` FROM test_definitions WHERE category_id = $1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*TestDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *definitionRepoPG) Update(ctx context.Context, d *TestDefinition) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE test_definitions SET category_id=$2, name=$3, price=$4, updated_at=NOW()
		WHERE id = $1`, d.ID, d.CategoryID, d.Name, d.Price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Test definition not found")
	}
	return nil
}

func (r *definitionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM test_definitions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Test definition not found")
	}
	return nil
}

// -- Tests --

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository {
	return &testRepoPG{pool: pool}
}

const testCols = `t.id, t.patient_id, t.doctor_id, t.definition_id, d.name, t.status, t.result, t.completed_at, t.created_at, t.updated_at`

const testFrom = ` FROM lab_tests t LEFT JOIN test_definitions d ON d.id = t.definition_id`

func scanTest(row pgx.Row) (*LabTest, error) {
	var t LabTest
	err := row.Scan(&t.ID, &t.PatientID, &t.DoctorID, &t.DefinitionID, &t.TestName,
		&t.Status, &t.Result, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Lab test not found")
	}
	return &t, err
}

func (r *testRepoPG) Create(ctx context.Context, t *LabTest) error {
	t.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO lab_tests (id, patient_id, doctor_id, definition_id, status)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.PatientID, t.DoctorID, t.DefinitionID, t.Status)
	return err
}

func (r *testRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return scanTest(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+testCols+testFrom+` WHERE t.id = $1`, id))
}

func (r *testRepoPG) RecordResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE lab_tests SET status=$2, result=$3, completed_at=NOW(), updated_at=NOW()
		WHERE id = $1 AND status = $4`, id, StatusCompleted, result, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Lab test not found")
	}
	return nil
}

func (r *testRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*LabTest, int, error) {
	return r.list(ctx, `status = $1`, status, limit, offset)
}

func (r *testRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabTest, int, error) {
	return r.list(ctx, `patient_id = $1`, patientID, limit, offset)
}

func (r *testRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*LabTest, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_tests WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+testCols+testFrom+` WHERE t.`+where+`
		ORDER BY t.created_at DESC LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*LabTest
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
