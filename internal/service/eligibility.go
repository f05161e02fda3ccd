package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

// DefaultMaxActiveLoans is the per-student cap on ACTIVE loans.
const DefaultMaxActiveLoans = 3

// EligibilitySource is what the checker reads. repository.Reader satisfies it
// directly; inside a transaction lockingSource does.
type EligibilitySource interface {
	FindStudent(ctx context.Context, id string) (*model.Student, error)
	FindBook(ctx context.Context, id string) (*model.Book, error)
	ActiveLoansByStudent(ctx context.Context, studentID string) ([]model.Loan, error)
}

// Eligibility is a passed check together with the rows it looked at.
type Eligibility struct {
	Student     *model.Student `json:"student"`
	Book        *model.Book    `json:"book"`
	ActiveLoans []model.Loan   `json:"active_loans"`
}

// EligibilityChecker decides whether a student may borrow a book. It never
// writes.
type EligibilityChecker struct {
	maxActive int
}

// NewEligibilityChecker constructs a checker allowing maxActive concurrent
// loans per student. Non-positive values fall back to DefaultMaxActiveLoans.
func NewEligibilityChecker(maxActive int) *EligibilityChecker {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveLoans
	}
	return &EligibilityChecker{maxActive: maxActive}
}

// MaxActive returns the configured loan cap.
func (c *EligibilityChecker) MaxActive() int { return c.maxActive }

// Check runs the lending rules in order and returns the first one that
// fails.
func (c *EligibilityChecker) Check(ctx context.Context, src EligibilitySource, studentID, bookID string) (*Eligibility, error) {
	student, err := src.FindStudent(ctx, studentID)
	if err != nil {
		return nil, passThrough("find student", err)
	}
	book, err := src.FindBook(ctx, bookID)
	if err != nil {
		return nil, passThrough("find book", err)
	}
	if !book.Available {
		return nil, repository.ErrBookUnavailable
	}
	if book.Stock <= 0 {
		return nil, repository.ErrNoStock
	}

	active, err := src.ActiveLoansByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}
	if len(active) >= c.maxActive {
		return nil, repository.ErrLoanLimit
	}
	for _, l := range active {
		if l.BookID == bookID {
			return nil, repository.ErrDuplicateLoan
		}
	}

	return &Eligibility{Student: student, Book: book, ActiveLoans: active}, nil
}

// lockingSource routes the checker's reads through row locks, so the rows
// it approves cannot change before the transaction commits. The student is
// always locked before the book.
type lockingSource struct {
	tx repository.Tx
}

func (s lockingSource) FindStudent(ctx context.Context, id string) (*model.Student, error) {
	return s.tx.LockStudent(ctx, id)
}

func (s lockingSource) FindBook(ctx context.Context, id string) (*model.Book, error) {
	return s.tx.LockBook(ctx, id)
}

func (s lockingSource) ActiveLoansByStudent(ctx context.Context, studentID string) ([]model.Loan, error) {
	return s.tx.ActiveLoansByStudent(ctx, studentID)
}

// passThrough returns domain errors untouched and annotates the rest.
func passThrough(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
