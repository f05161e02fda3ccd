package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableBooks    = "books"
	tableStudents = "students"
	tableLoans    = "loans"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	constraintOneActiveLoan   = "loans_one_active_per_student_book"
	constraintStudentEmail    = "students_email_key"
	constraintStudentMatric   = "students_matriculation_key"
	constraintLoansStudentFK  = "loans_student_id_fkey"
	constraintBooksStockCheck = "books_stock_check"
	constraintLoanDatesCheck  = "loans_dates_check"
)

var dialect = goqu.Dialect("postgres")

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres store.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// RunInTx executes fn inside a single database transaction.
//
// Two concurrent loans against the last copy of a book would both see
// stock = 1 if they only read the row. The Lock* methods issue
// SELECT ... FOR UPDATE, so the second transaction blocks on the book row
// until the first commits and then reads stock = 0.
func (p *Postgres) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// View runs fn on pool connections outside any transaction.
func (p *Postgres) View(ctx context.Context, fn func(r Reader) error) error {
	return fn(&queries{db: p.db})
}

// queries implements Tx over either the pool or an open transaction.
type queries struct {
	db DBTX
}

// translate maps constraint violations onto domain errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintOneActiveLoan:
			return ErrDuplicateLoan
		case constraintStudentEmail:
			return ErrDuplicateEmail
		case constraintStudentMatric:
			return ErrDuplicateMatriculation
		}
	case pgForeignKeyViolation:
		if pgErr.ConstraintName == constraintLoansStudentFK {
			return ErrStudentHasLoans
		}
	case pgCheckViolation:
		switch pgErr.ConstraintName {
		case constraintBooksStockCheck:
			return ErrStockNegative
		case constraintLoanDatesCheck:
			return ErrInvalidDates
		}
	}
	return err
}

// wrap annotates err with op unless it maps onto a domain error.
func wrap(op string, err error) error {
	if t := translate(err); t != err {
		return t
	}
	return fmt.Errorf("%s: %w", op, err)
}

// likePattern wraps s for a substring ILIKE match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
