package repository

import "errors"

// Error kinds. Every sentinel below unwraps to exactly one of them so callers
// can branch with errors.Is on the kind alone.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a request breaks a business rule.
	ErrConflict = errors.New("conflict")

	// ErrDuplicate is a conflict with an existing record. It also matches ErrConflict.
	ErrDuplicate = &kindError{kind: ErrConflict, msg: "duplicate"}
)

var (
	ErrStudentNotFound = &kindError{kind: ErrNotFound, msg: "student not found"}
	ErrBookNotFound    = &kindError{kind: ErrNotFound, msg: "book not found"}
	ErrLoanNotFound    = &kindError{kind: ErrNotFound, msg: "loan not found"}
)

var (
	ErrBookUnavailable  = &kindError{kind: ErrConflict, msg: "book unavailable"}
	ErrNoStock          = &kindError{kind: ErrConflict, msg: "no copies in stock"}
	ErrLoanLimit        = &kindError{kind: ErrConflict, msg: "loan limit reached"}
	ErrAlreadyReturned  = &kindError{kind: ErrConflict, msg: "already returned"}
	ErrAlreadyCancelled = &kindError{kind: ErrConflict, msg: "already cancelled"}
	ErrLoanActive       = &kindError{kind: ErrConflict, msg: "loan still active"}
	ErrStatusChange     = &kindError{kind: ErrConflict, msg: "status can only change through return or cancel"}
	ErrInvalidDates     = &kindError{kind: ErrConflict, msg: "due date is before loan date"}
	ErrStockNegative    = &kindError{kind: ErrConflict, msg: "stock cannot be negative"}
	ErrBookOutOfStock   = &kindError{kind: ErrConflict, msg: "book has no copies to make available"}
	ErrInvalidInput     = &kindError{kind: ErrConflict, msg: "invalid input"}
)

var (
	ErrDuplicateLoan          = &kindError{kind: ErrDuplicate, msg: "duplicate active loan"}
	ErrDuplicateEmail         = &kindError{kind: ErrDuplicate, msg: "email already registered"}
	ErrDuplicateMatriculation = &kindError{kind: ErrDuplicate, msg: "matriculation number already registered"}
	ErrStudentHasLoans        = &kindError{kind: ErrDuplicate, msg: "student still has loan records"}
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
