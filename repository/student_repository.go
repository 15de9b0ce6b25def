package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"termbilling/database"
	"termbilling/models"
)

// StudentRepository implements the StudentRepository interface
type StudentRepository struct {
	q queryable
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{q: db.Pool}
}

// newStudentRepositoryWithTx creates a new student repository with a transaction
func newStudentRepositoryWithTx(tx queryable) *StudentRepository {
	return &StudentRepository{q: tx}
}

// GetActive returns all students whose status is active
func (r *StudentRepository) GetActive(ctx context.Context) ([]*models.Student, error) {
	query := `
		SELECT id, first_names, surname, grade, class, status,
		       tuition_owing, levy_owing, contact_info
		FROM students
		WHERE status = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, models.StudentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}

	return students, nil
}

// GetByID retrieves a student by id, returning nil when it does not exist
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query := `
		SELECT id, first_names, surname, grade, class, status,
		       tuition_owing, levy_owing, contact_info
		FROM students
		WHERE id = $1
	`

	student, err := scanStudent(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student %d: %w", id, err)
	}
	return student, nil
}

// UpdateBalances sets the tuition and levy owing of each student in updates.
// All updates are sent as a single batch on the repository's connection.
func (r *StudentRepository) UpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error {
	query := `
		UPDATE students
		SET tuition_owing = $1, levy_owing = $2, updated_at = NOW()
		WHERE id = $3
	`

	batch := &pgx.Batch{}
	for _, update := range updates {
		batch.Queue(query, toNumeric(update.NewTuitionOwing), toNumeric(update.NewLevyOwing), update.StudentID)
	}

	results := r.q.SendBatch(ctx, batch)
	for _, update := range updates {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return fmt.Errorf("failed to update balance for student %d: %w", update.StudentID, err)
		}
		if tag.RowsAffected() == 0 {
			results.Close()
			return fmt.Errorf("student with ID %d not found", update.StudentID)
		}
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to complete balance updates: %w", err)
	}
	return nil
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var student models.Student
	var tuitionOwing, levyOwing pgtype.Numeric

	err := row.Scan(
		&student.ID,
		&student.FirstNames,
		&student.Surname,
		&student.Grade,
		&student.Class,
		&student.Status,
		&tuitionOwing,
		&levyOwing,
		&student.ContactInfo,
	)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	student.TuitionOwing = fromNumeric(tuitionOwing)
	student.LevyOwing = fromNumeric(levyOwing)
	return &student, nil
}
