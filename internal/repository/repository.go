// Package repository defines the storage contracts of the lending library and
// implements them twice: on PostgreSQL through pgx (no ORM), and in memory.
//
// All writes happen inside Store.RunInTx so that a loan and the book it
// touches change together or not at all. Lock methods return the same rows
// as their Find counterparts but hold a row lock until the transaction ends.
package repository

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

// CatalogReader reads book records.
type CatalogReader interface {
	FindBook(ctx context.Context, id string) (*model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
}

// DirectoryReader reads student records.
type DirectoryReader interface {
	FindStudent(ctx context.Context, id string) (*model.Student, error)
	FindStudentByMatriculation(ctx context.Context, matriculation string) (*model.Student, error)
	ListStudents(ctx context.Context, filter model.StudentFilter) ([]model.Student, error)
}

// LoanReader reads loans and their joined projections.
type LoanReader interface {
	FindLoan(ctx context.Context, id string) (*model.Loan, error)
	ActiveLoansByStudent(ctx context.Context, studentID string) ([]model.Loan, error)
	LoanDetail(ctx context.Context, id string) (*model.LoanDetail, error)
	LoanDetails(ctx context.Context, filter model.LoanFilter) ([]model.LoanDetail, error)
}

// Reader is the read-only view handed to Store.View.
type Reader interface {
	CatalogReader
	DirectoryReader
	LoanReader
}

// Catalog is the book store as seen from inside a transaction.
type Catalog interface {
	CatalogReader
	LockBook(ctx context.Context, id string) (*model.Book, error)
	InsertBook(ctx context.Context, b *model.Book) error
	UpdateBook(ctx context.Context, b *model.Book) error
	SetAvailability(ctx context.Context, id string, available bool) error
}

// Directory is the student store as seen from inside a transaction.
type Directory interface {
	DirectoryReader
	LockStudent(ctx context.Context, id string) (*model.Student, error)
	InsertStudent(ctx context.Context, s *model.Student) error
	UpdateStudent(ctx context.Context, s *model.Student) error
	DeleteStudent(ctx context.Context, id string) error
}

// Loans is the loan store as seen from inside a transaction.
type Loans interface {
	LoanReader
	LockLoan(ctx context.Context, id string) (*model.Loan, error)
	InsertLoan(ctx context.Context, l *model.Loan) error
	UpdateLoanDates(ctx context.Context, id string, loanDate, dueDate time.Time) error
	SetLoanStatus(ctx context.Context, id string, status model.LoanStatus) error
	DeleteLoan(ctx context.Context, id string) error
}

// Ledger mutates book stock. Only loan transitions call it.
type Ledger interface {
	// DecrementStock takes one copy, clamping at zero and clearing
	// availability when the shelf empties.
	DecrementStock(ctx context.Context, bookID string) (*model.Book, error)
	// IncrementStock puts one copy back and marks the book available.
	IncrementStock(ctx context.Context, bookID string) (*model.Book, error)
}

// Tx is every store bound to one transaction.
type Tx interface {
	Catalog
	Directory
	Loans
	Ledger
}

// Store runs units of work against the backing storage.
type Store interface {
	// RunInTx commits when fn returns nil and rolls back every write otherwise.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against committed state without a transaction.
	View(ctx context.Context, fn func(r Reader) error) error
}
