package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

const studentColumns = `id, name, surname, email, matriculation`

func scanStudent(row pgx.Row) (model.Student, error) {
	var s model.Student
	err := row.Scan(&s.ID, &s.Name, &s.Surname, &s.Email, &s.Matriculation)
	return s, err
}

func (q *queries) getStudent(ctx context.Context, where string, arg any, lock bool) (*model.Student, error) {
	sql := `SELECT ` + studentColumns + ` FROM students WHERE ` + where + ` = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	s, err := scanStudent(q.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// FindStudent returns a single student or ErrStudentNotFound.
func (q *queries) FindStudent(ctx context.Context, id string) (*model.Student, error) {
	return q.getStudent(ctx, "id", id, false)
}

// LockStudent returns a student and holds the row lock. Loan creation takes
// this lock first so that one student's active-loan count cannot change
// underneath a pending loan.
func (q *queries) LockStudent(ctx context.Context, id string) (*model.Student, error) {
	return q.getStudent(ctx, "id", id, true)
}

// FindStudentByMatriculation looks a student up by matriculation number.
func (q *queries) FindStudentByMatriculation(ctx context.Context, matriculation string) (*model.Student, error) {
	return q.getStudent(ctx, "matriculation", matriculation, false)
}

// ListStudents returns students ordered by surname then name.
func (q *queries) ListStudents(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	ds := dialect.From(tableStudents).
		Select("id", "name", "surname", "email", "matriculation").
		Order(goqu.I("surname").Asc(), goqu.I("name").Asc(), goqu.I("id").Asc())
	if filter.Email != "" {
		ds = ds.Where(goqu.I("email").ILike(likePattern(filter.Email)))
	}

	sql, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list students query: %w", err)
	}
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	students, err := collect(rows, scanStudent)
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return students, nil
}

// InsertStudent persists a new student. The caller assigns the ID.
func (q *queries) InsertStudent(ctx context.Context, s *model.Student) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO students (id, name, surname, email, matriculation)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Name, s.Surname, s.Email, s.Matriculation,
	)
	if err != nil {
		return wrap("insert student", err)
	}
	return nil
}

// UpdateStudent replaces every mutable field of a student.
func (q *queries) UpdateStudent(ctx context.Context, s *model.Student) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE students SET name = $2, surname = $3, email = $4, matriculation = $5 WHERE id = $1`,
		s.ID, s.Name, s.Surname, s.Email, s.Matriculation,
	)
	if err != nil {
		return wrap("update student", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// DeleteStudent removes a student with no loan history.
func (q *queries) DeleteStudent(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return wrap("delete student", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}
