package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/notify"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

// DefaultLoanPeriod is added to the loan date when no due date is given.
const DefaultLoanPeriod = 15 * 24 * time.Hour

// Notifier confirms a committed loan to the borrower.
type Notifier interface {
	Confirm(ctx context.Context, n notify.Notice) error
}

// CreatedLoan is the outcome of a successful Create. NotificationErr is set
// when the confirmation failed or is still pending; the loan stands either way.
type CreatedLoan struct {
	Loan            *model.LoanDetail
	NotificationErr error
}

// LoanService runs loan transitions. Every transition is one unit of work
// that changes the loan and the stock of its book together.
type LoanService struct {
	store      repository.Store
	checker    *EligibilityChecker
	notifier   Notifier
	loanPeriod time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// LoanOption configures a LoanService.
type LoanOption func(*LoanService)

// WithNotifier sets the post-commit confirmation hook.
func WithNotifier(n Notifier) LoanOption {
	return func(s *LoanService) { s.notifier = n }
}

// WithLoanPeriod overrides DefaultLoanPeriod.
func WithLoanPeriod(d time.Duration) LoanOption {
	return func(s *LoanService) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) LoanOption {
	return func(s *LoanService) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LoanOption {
	return func(s *LoanService) { s.logger = l }
}

// NewLoanService constructs a LoanService.
func NewLoanService(store repository.Store, checker *EligibilityChecker, opts ...LoanOption) *LoanService {
	s := &LoanService{
		store:      store,
		checker:    checker,
		loanPeriod: DefaultLoanPeriod,
		now:        time.Now,
		logger:     discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LoanService) today() time.Time { return model.Day(s.now()) }

// CheckEligibility previews Create without writing or locking anything.
func (s *LoanService) CheckEligibility(ctx context.Context, studentID, bookID string) (elig *Eligibility, err error) {
	ctx, span := startSpan(ctx, "LoanService.CheckEligibility",
		attribute.String("student_id", studentID), attribute.String("book_id", bookID))
	defer func() { endSpan(span, err) }()

	sid, ok := canonicalID(studentID)
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	bid, ok := canonicalID(bookID)
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	err = s.store.View(ctx, func(r repository.Reader) error {
		var err error
		elig, err = s.checker.Check(ctx, r, sid, bid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return elig, nil
}

// Create lends a book to a student. The student and book rows are locked,
// the lending rules are checked, and the loan is written together with the
// stock decrement. The confirmation is sent only after commit.
func (s *LoanService) Create(ctx context.Context, req model.CreateLoanRequest) (out *CreatedLoan, err error) {
	ctx, span := startSpan(ctx, "LoanService.Create",
		attribute.String("student_id", req.StudentID), attribute.String("book_id", req.BookID))
	defer func() { endSpan(span, err) }()

	studentID, ok := canonicalID(req.StudentID)
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	bookID, ok := canonicalID(req.BookID)
	if !ok {
		return nil, repository.ErrBookNotFound
	}

	today := s.today()
	loanDate := today
	if req.LoanDate != nil {
		loanDate = model.Day(req.LoanDate.Time)
	}
	dueDate := loanDate.Add(s.loanPeriod)
	if req.DueDate != nil {
		dueDate = model.Day(req.DueDate.Time)
	}
	if dueDate.Before(loanDate) {
		return nil, repository.ErrInvalidDates
	}

	var detail *model.LoanDetail
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := s.checker.Check(ctx, lockingSource{tx: tx}, studentID, bookID); err != nil {
			return err
		}
		loan := &model.Loan{
			ID:        uuid.NewString(),
			StudentID: studentID,
			BookID:    bookID,
			LoanDate:  loanDate,
			DueDate:   dueDate,
			Status:    model.LoanActive,
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		if _, err := tx.DecrementStock(ctx, bookID); err != nil {
			return err
		}
		var err error
		detail, err = tx.LoanDetail(ctx, loan.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	detail.Annotate(today)
	span.SetAttributes(attribute.String("loan_id", detail.ID))
	s.logger.InfoContext(ctx, "loan created",
		slog.String("loan_id", detail.ID),
		slog.String("student_id", studentID),
		slog.String("book_id", bookID),
		slog.String("due_date", detail.DueDate.Format(time.DateOnly)),
	)

	out = &CreatedLoan{Loan: detail}
	if s.notifier != nil {
		out.NotificationErr = s.notifier.Confirm(ctx, NoticeFor(detail))
	}
	return out, nil
}

// Return closes an active loan and puts the copy back on the shelf.
func (s *LoanService) Return(ctx context.Context, id string) (*model.LoanDetail, error) {
	return s.close(ctx, "LoanService.Return", id, model.LoanReturned)
}

// Cancel voids an active loan and puts the copy back on the shelf.
func (s *LoanService) Cancel(ctx context.Context, id string) (*model.LoanDetail, error) {
	return s.close(ctx, "LoanService.Cancel", id, model.LoanCancelled)
}

func (s *LoanService) close(ctx context.Context, op, id string, to model.LoanStatus) (detail *model.LoanDetail, err error) {
	ctx, span := startSpan(ctx, op, attribute.String("loan_id", id))
	defer func() { endSpan(span, err) }()

	loanID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrLoanNotFound
	}
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := terminalError(loan.Status); err != nil {
			return err
		}
		if err := tx.SetLoanStatus(ctx, loanID, to); err != nil {
			return err
		}
		if _, err := tx.IncrementStock(ctx, loan.BookID); err != nil {
			return err
		}
		detail, err = tx.LoanDetail(ctx, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	detail.Annotate(s.today())
	s.logger.InfoContext(ctx, "loan closed",
		slog.String("loan_id", loanID),
		slog.String("status", string(to)),
		slog.String("book_id", detail.BookID),
	)
	return detail, nil
}

// terminalError rejects any transition out of a closed loan.
func terminalError(status model.LoanStatus) error {
	switch status {
	case model.LoanReturned:
		return repository.ErrAlreadyReturned
	case model.LoanCancelled:
		return repository.ErrAlreadyCancelled
	}
	return nil
}

// Update corrects the dates of a loan. It neither re-checks lending rules
// nor touches stock. A status is accepted only when it equals the current
// one: status changes go through Return and Cancel.
func (s *LoanService) Update(ctx context.Context, req model.UpdateLoanRequest) (detail *model.LoanDetail, err error) {
	ctx, span := startSpan(ctx, "LoanService.Update", attribute.String("loan_id", req.ID))
	defer func() { endSpan(span, err) }()

	loanID, ok := canonicalID(req.ID)
	if !ok {
		return nil, repository.ErrLoanNotFound
	}
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if req.Status != nil && *req.Status != loan.Status {
			return repository.ErrStatusChange
		}

		loanDate, dueDate := loan.LoanDate, loan.DueDate
		if req.LoanDate != nil {
			loanDate = model.Day(req.LoanDate.Time)
		}
		if req.DueDate != nil {
			dueDate = model.Day(req.DueDate.Time)
		}
		if dueDate.Before(loanDate) {
			return repository.ErrInvalidDates
		}
		if err := tx.UpdateLoanDates(ctx, loanID, loanDate, dueDate); err != nil {
			return err
		}
		detail, err = tx.LoanDetail(ctx, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	detail.Annotate(s.today())
	return detail, nil
}

// Delete removes a closed loan. Stock was already restored when it closed.
func (s *LoanService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "LoanService.Delete", attribute.String("loan_id", id))
	defer func() { endSpan(span, err) }()

	loanID, ok := canonicalID(id)
	if !ok {
		return repository.ErrLoanNotFound
	}
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status == model.LoanActive {
			return repository.ErrLoanActive
		}
		return tx.DeleteLoan(ctx, loanID)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "loan deleted", slog.String("loan_id", loanID))
	return nil
}

// Get returns one loan with its student and book.
func (s *LoanService) Get(ctx context.Context, id string) (detail *model.LoanDetail, err error) {
	ctx, span := startSpan(ctx, "LoanService.Get", attribute.String("loan_id", id))
	defer func() { endSpan(span, err) }()

	loanID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrLoanNotFound
	}
	err = s.store.View(ctx, func(r repository.Reader) error {
		var err error
		detail, err = r.LoanDetail(ctx, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	detail.Annotate(s.today())
	return detail, nil
}

// List returns every loan, newest first. It never returns a nil slice.
func (s *LoanService) List(ctx context.Context) ([]model.LoanDetail, error) {
	return s.list(ctx, "LoanService.List", model.LoanFilter{})
}

// ListByStudentName returns loans whose student's name or surname contains
// fragment, ignoring case.
func (s *LoanService) ListByStudentName(ctx context.Context, fragment string) ([]model.LoanDetail, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, repository.ErrInvalidInput
	}
	return s.list(ctx, "LoanService.ListByStudentName", model.LoanFilter{StudentName: fragment})
}

// Overdue returns the active loans whose due date has passed.
func (s *LoanService) Overdue(ctx context.Context) ([]model.LoanDetail, error) {
	today := s.today()
	return s.list(ctx, "LoanService.Overdue", model.LoanFilter{OverdueAsOf: &today})
}

func (s *LoanService) list(ctx context.Context, op string, filter model.LoanFilter) (details []model.LoanDetail, err error) {
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	err = s.store.View(ctx, func(r repository.Reader) error {
		var err error
		details, err = r.LoanDetails(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	today := s.today()
	for i := range details {
		details[i].Annotate(today)
	}
	if details == nil {
		details = []model.LoanDetail{}
	}
	span.SetAttributes(attribute.Int("loans", len(details)))
	return details, nil
}

// NoticeFor builds the message payload for an annotated loan.
func NoticeFor(d *model.LoanDetail) notify.Notice {
	n := notify.Notice{
		LoanID:      d.ID,
		StudentName: d.Student.FullName(),
		Email:       d.Student.Email,
		BookTitle:   d.Book.Title,
		BookAuthor:  d.Book.Author,
		LoanDate:    d.LoanDate,
		DueDate:     d.DueDate,
	}
	if d.Overdue {
		n.DaysOverdue = -d.DaysRemaining
	}
	return n
}
