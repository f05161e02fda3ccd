package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

const loanColumns = `id, student_id, book_id, loan_date, due_date, status`

func scanLoan(row pgx.Row) (model.Loan, error) {
	var (
		l      model.Loan
		status string
	)
	err := row.Scan(&l.ID, &l.StudentID, &l.BookID, &l.LoanDate, &l.DueDate, &status)
	l.Status = model.LoanStatus(status)
	return l, err
}

func scanLoanDetail(row pgx.Row) (model.LoanDetail, error) {
	var (
		d      model.LoanDetail
		status string
	)
	err := row.Scan(
		&d.ID, &d.StudentID, &d.BookID, &d.LoanDate, &d.DueDate, &status,
		&d.Student.Name, &d.Student.Surname, &d.Student.Email, &d.Student.Matriculation,
		&d.Book.Title, &d.Book.Author,
	)
	d.Status = model.LoanStatus(status)
	d.Student.ID = d.StudentID
	d.Book.ID = d.BookID
	return d, err
}

// loanDetailQuery joins each loan with its student and book.
func loanDetailQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T(tableLoans).As("l")).
		Join(goqu.T(tableStudents).As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("l.student_id")))).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.student_id"), goqu.I("l.book_id"),
			goqu.I("l.loan_date"), goqu.I("l.due_date"), goqu.I("l.status"),
			goqu.I("s.name"), goqu.I("s.surname"), goqu.I("s.email"), goqu.I("s.matriculation"),
			goqu.I("b.title"), goqu.I("b.author"),
		)
}

func (q *queries) getLoan(ctx context.Context, id string, lock bool) (*model.Loan, error) {
	sql := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	l, err := scanLoan(q.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &l, nil
}

// FindLoan returns a single loan or ErrLoanNotFound.
func (q *queries) FindLoan(ctx context.Context, id string) (*model.Loan, error) {
	return q.getLoan(ctx, id, false)
}

// LockLoan returns a loan and holds its row lock, serialising concurrent
// transitions of the same loan.
func (q *queries) LockLoan(ctx context.Context, id string) (*model.Loan, error) {
	return q.getLoan(ctx, id, true)
}

// ActiveLoansByStudent returns the student's ACTIVE loans.
func (q *queries) ActiveLoansByStudent(ctx context.Context, studentID string) ([]model.Loan, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+loanColumns+`
		 FROM loans
		 WHERE student_id = $1 AND status = $2
		 ORDER BY loan_date ASC`,
		studentID, string(model.LoanActive),
	)
	if err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	loans, err := collect(rows, scanLoan)
	if err != nil {
		return nil, fmt.Errorf("scan loan: %w", err)
	}
	return loans, nil
}

// LoanDetail returns one loan joined with its student and book.
func (q *queries) LoanDetail(ctx context.Context, id string) (*model.LoanDetail, error) {
	sql, args, err := loanDetailQuery().
		Where(goqu.I("l.id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan detail query: %w", err)
	}
	d, err := scanLoanDetail(q.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("get loan detail: %w", err)
	}
	return &d, nil
}

// LoanDetails returns joined loans matching filter, newest first.
func (q *queries) LoanDetails(ctx context.Context, filter model.LoanFilter) ([]model.LoanDetail, error) {
	ds := loanDetailQuery().Order(goqu.I("l.loan_date").Desc(), goqu.I("l.id").Asc())
	if filter.StudentName != "" {
		pattern := likePattern(filter.StudentName)
		ds = ds.Where(goqu.Or(
			goqu.I("s.name").ILike(pattern),
			goqu.I("s.surname").ILike(pattern),
		))
	}
	if filter.OverdueAsOf != nil {
		ds = ds.Where(
			goqu.I("l.status").Eq(string(model.LoanActive)),
			goqu.I("l.due_date").Lt(model.Day(*filter.OverdueAsOf)),
		)
	}

	sql, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list loans query: %w", err)
	}
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	details, err := collect(rows, scanLoanDetail)
	if err != nil {
		return nil, fmt.Errorf("scan loan: %w", err)
	}
	return details, nil
}

// InsertLoan persists a new loan. The caller assigns the ID.
func (q *queries) InsertLoan(ctx context.Context, l *model.Loan) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO loans (id, student_id, book_id, loan_date, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.StudentID, l.BookID, l.LoanDate, l.DueDate, string(l.Status),
	)
	if err != nil {
		return wrap("insert loan", err)
	}
	return nil
}

// UpdateLoanDates rewrites the loan and due dates.
func (q *queries) UpdateLoanDates(ctx context.Context, id string, loanDate, dueDate time.Time) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE loans SET loan_date = $2, due_date = $3 WHERE id = $1`,
		id, loanDate, dueDate,
	)
	if err != nil {
		return wrap("update loan", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// SetLoanStatus records a status transition.
func (q *queries) SetLoanStatus(ctx context.Context, id string, status model.LoanStatus) error {
	tag, err := q.db.Exec(ctx, `UPDATE loans SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return wrap("update loan status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// DeleteLoan removes a loan record permanently.
func (q *queries) DeleteLoan(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}
