package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/notify"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

func Test_LoanService_Create_LastCopy(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)

	loan := f.lend(t, s.ID, b.ID)

	assert.Equal(t, model.LoanActive, loan.Status)
	assert.Equal(t, model.Day(fixedNow), loan.LoanDate)
	assert.Equal(t, loan.LoanDate.AddDate(0, 0, 15), loan.DueDate)
	assert.Equal(t, 15, loan.DaysRemaining)
	assert.False(t, loan.Overdue)
	assert.Equal(t, "Ada", loan.Student.Name)
	assert.Equal(t, "Dune", loan.Book.Title)

	after := f.book(t, b.ID)
	assert.Equal(t, 0, after.Stock)
	assert.False(t, after.Available)
}

func Test_LoanService_Create_ExplicitDates(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 2)

	loanDate := model.Date{Time: time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)}
	created, err := f.loans.Create(context.Background(), model.CreateLoanRequest{
		StudentID: s.ID, BookID: b.ID, LoanDate: &loanDate,
	})
	require.NoError(t, err)
	assert.Equal(t, loanDate.Time, created.Loan.LoanDate)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), created.Loan.DueDate)

	due := model.Date{Time: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	other := f.addBook(t, "Emma", 1)
	_, err = f.loans.Create(context.Background(), model.CreateLoanRequest{
		StudentID: s.ID, BookID: other.ID, LoanDate: &loanDate, DueDate: &due,
	})
	assert.ErrorIs(t, err, repository.ErrInvalidDates)
	assert.Equal(t, 1, f.book(t, other.ID).Stock)
}

func Test_LoanService_Create_LoanPeriodIsConfigurable(t *testing.T) {
	f := newFixture(t, 3, WithLoanPeriod(7*24*time.Hour))
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)

	loan := f.lend(t, s.ID, b.ID)
	assert.Equal(t, loan.LoanDate.AddDate(0, 0, 7), loan.DueDate)
}

func Test_LoanService_Create_LoanLimit(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	for _, title := range []string{"Dune", "Emma", "Ulysses"} {
		f.lend(t, s.ID, f.addBook(t, title, 1).ID)
	}
	fourth := f.addBook(t, "Beloved", 1)

	_, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: s.ID, BookID: fourth.ID})
	assert.ErrorIs(t, err, repository.ErrLoanLimit)
	assert.Equal(t, "loan limit reached", err.Error())
	assert.Equal(t, 1, f.book(t, fourth.ID).Stock)
	assert.Equal(t, 3, f.loanCount(t))
}

func Test_LoanService_Create_Duplicate(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 5)
	f.lend(t, s.ID, b.ID)

	_, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: s.ID, BookID: b.ID})
	assert.ErrorIs(t, err, repository.ErrDuplicateLoan)
	assert.Equal(t, 4, f.book(t, b.ID).Stock, "stock untouched by the rejected request")
	assert.Equal(t, 1, f.loanCount(t))
}

func Test_LoanService_Create_Rejections(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	empty := f.addBook(t, "Dune", 0)
	withdrawn, err := f.catalog.Create(context.Background(), model.BookRequest{
		Title: "Emma", Author: "Austen", Stock: 3, Available: new(bool),
	})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		studentID string
		bookID    string
		wantErr   error
	}{
		{"unknown student", "7f1d7c39-8a3e-4b55-9d5c-1f0a1bb1a111", empty.ID, repository.ErrStudentNotFound},
		{"malformed student id", "42", empty.ID, repository.ErrStudentNotFound},
		{"unknown book", s.ID, "7f1d7c39-8a3e-4b55-9d5c-1f0a1bb1a111", repository.ErrBookNotFound},
		{"empty shelf", s.ID, empty.ID, repository.ErrBookUnavailable},
		{"withdrawn", s.ID, withdrawn.ID, repository.ErrBookUnavailable},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: tt.studentID, BookID: tt.bookID})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, f.loanCount(t))
	assert.Equal(t, 3, f.book(t, withdrawn.ID).Stock)
}

func Test_LoanService_Create_NoStockButFlaggedAvailable(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)
	// A direct catalog edit can leave the flag set on an empty shelf.
	require.NoError(t, f.store.RunInTx(context.Background(), func(tx repository.Tx) error {
		return tx.UpdateBook(context.Background(), &model.Book{ID: b.ID, Title: b.Title, Author: b.Author, Available: true, Stock: 0})
	}))

	_, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: s.ID, BookID: b.ID})
	assert.ErrorIs(t, err, repository.ErrNoStock)
	assert.Equal(t, "no copies in stock", err.Error())
	assert.Equal(t, 0, f.loanCount(t))
}

func Test_LoanService_ReturnRoundTrip(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)
	loan := f.lend(t, s.ID, b.ID)

	returned, err := f.loans.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturned, returned.Status)

	after := f.book(t, b.ID)
	assert.Equal(t, 1, after.Stock)
	assert.True(t, after.Available)

	_, err = f.loans.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyReturned)
	_, err = f.loans.Cancel(context.Background(), loan.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyReturned)
	assert.Equal(t, 1, f.book(t, b.ID).Stock, "terminal loans never restock twice")
}

func Test_LoanService_Cancel(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 2)
	loan := f.lend(t, s.ID, b.ID)

	cancelled, err := f.loans.Cancel(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanCancelled, cancelled.Status)
	assert.Equal(t, 2, f.book(t, b.ID).Stock)

	_, err = f.loans.Cancel(context.Background(), loan.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyCancelled)
	_, err = f.loans.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyCancelled)
	assert.Equal(t, 2, f.book(t, b.ID).Stock)

	_, err = f.loans.Cancel(context.Background(), "7f1d7c39-8a3e-4b55-9d5c-1f0a1bb1a111")
	assert.ErrorIs(t, err, repository.ErrLoanNotFound)
}

func Test_LoanService_Return_OverridesManualWithdrawal(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 2)
	loan := f.lend(t, s.ID, b.ID)

	withdrawn, err := f.catalog.ToggleAvailability(context.Background(), b.ID)
	require.NoError(t, err)
	require.False(t, withdrawn.Available)

	_, err = f.loans.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, f.book(t, b.ID).Available)
}

func Test_LoanService_Delete(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)
	loan := f.lend(t, s.ID, b.ID)
	ctx := context.Background()

	err := f.loans.Delete(ctx, loan.ID)
	assert.ErrorIs(t, err, repository.ErrLoanActive)

	_, err = f.loans.Return(ctx, loan.ID)
	require.NoError(t, err)
	require.NoError(t, f.loans.Delete(ctx, loan.ID))

	_, err = f.loans.Get(ctx, loan.ID)
	assert.ErrorIs(t, err, repository.ErrLoanNotFound)
	assert.ErrorIs(t, f.loans.Delete(ctx, loan.ID), repository.ErrLoanNotFound)
	assert.Equal(t, 1, f.book(t, b.ID).Stock, "delete leaves stock alone")
}

func Test_LoanService_Update(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)
	loan := f.lend(t, s.ID, b.ID)
	ctx := context.Background()

	due := model.Date{Time: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}
	updated, err := f.loans.Update(ctx, model.UpdateLoanRequest{ID: loan.ID, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, due.Time, updated.DueDate)
	assert.Equal(t, loan.LoanDate, updated.LoanDate)
	assert.Equal(t, 0, f.book(t, b.ID).Stock, "no inventory side effect")

	same := model.LoanActive
	_, err = f.loans.Update(ctx, model.UpdateLoanRequest{ID: loan.ID, Status: &same})
	assert.NoError(t, err, "restating the current status is allowed")

	returned := model.LoanReturned
	_, err = f.loans.Update(ctx, model.UpdateLoanRequest{ID: loan.ID, Status: &returned})
	assert.ErrorIs(t, err, repository.ErrStatusChange)

	early := model.Date{Time: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err = f.loans.Update(ctx, model.UpdateLoanRequest{ID: loan.ID, DueDate: &early})
	assert.ErrorIs(t, err, repository.ErrInvalidDates)

	got, err := f.loans.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanActive, got.Status)
	assert.Equal(t, due.Time, got.DueDate)

	_, err = f.loans.Update(ctx, model.UpdateLoanRequest{ID: "nope", DueDate: &due})
	assert.ErrorIs(t, err, repository.ErrLoanNotFound)
}

func Test_LoanService_List(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	empty, err := f.loans.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	ada := f.addStudent(t, "Ada", "M1")
	grace := f.addStudent(t, "Grace", "M2")
	f.lend(t, ada.ID, f.addBook(t, "Dune", 1).ID)
	f.lend(t, grace.ID, f.addBook(t, "Emma", 1).ID)

	all, err := f.loans.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byName, err := f.loans.ListByStudentName(ctx, "gRa")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, grace.ID, byName[0].StudentID)

	none, err := f.loans.ListByStudentName(ctx, "Turing")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.loans.ListByStudentName(ctx, "  ")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func Test_LoanService_Overdue(t *testing.T) {
	f := newFixture(t, 3)
	s := f.addStudent(t, "Ada", "M1")
	ctx := context.Background()

	past := model.Date{Time: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	pastDue := model.Date{Time: time.Date(2025, 2, 16, 0, 0, 0, 0, time.UTC)}
	late, err := f.loans.Create(ctx, model.CreateLoanRequest{
		StudentID: s.ID, BookID: f.addBook(t, "Dune", 1).ID, LoanDate: &past, DueDate: &pastDue,
	})
	require.NoError(t, err)
	f.lend(t, s.ID, f.addBook(t, "Emma", 1).ID)

	overdue, err := f.loans.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.Loan.ID, overdue[0].ID)
	assert.True(t, overdue[0].Overdue)
	assert.Equal(t, -13, overdue[0].DaysRemaining)
}

func Test_LoanService_CheckEligibility(t *testing.T) {
	f := newFixture(t, 1)
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 1)
	ctx := context.Background()

	elig, err := f.loans.CheckEligibility(ctx, s.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, elig.Book.ID)
	assert.Empty(t, elig.ActiveLoans)
	assert.Equal(t, 1, f.book(t, b.ID).Stock, "preview does not write")

	f.lend(t, s.ID, f.addBook(t, "Emma", 1).ID)
	_, err = f.loans.CheckEligibility(ctx, s.ID, b.ID)
	assert.ErrorIs(t, err, repository.ErrLoanLimit)
}

func Test_LoanService_Create_Notification(t *testing.T) {
	testCases := []struct {
		name    string
		sendErr error
	}{
		{"delivered", nil},
		{"failed", errors.New("smtp down")},
		{"queued", notify.ErrQueued},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			n := new(notifierMock)
			f := newFixture(t, 3, WithNotifier(n))
			s := f.addStudent(t, "Ada", "M1")
			b := f.addBook(t, "Dune", 1)

			n.On("Confirm", mock.Anything, mock.MatchedBy(func(notice notify.Notice) bool {
				return notice.Email == "m1@example.com" && notice.BookTitle == "Dune" && notice.StudentName == "Ada Tester"
			})).Return(tt.sendErr).Once()

			created, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: s.ID, BookID: b.ID})
			require.NoError(t, err, "the loan stands whatever happens to the confirmation")
			assert.Equal(t, tt.sendErr, created.NotificationErr)
			assert.Equal(t, 1, f.loanCount(t))
			n.AssertExpectations(t)
		})
	}
}

func Test_LoanService_Create_NoNotificationOnFailure(t *testing.T) {
	n := new(notifierMock)
	f := newFixture(t, 3, WithNotifier(n))
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 0)

	_, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: s.ID, BookID: b.ID})
	require.Error(t, err)
	n.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}
