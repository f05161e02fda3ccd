package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/notify"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

var fixedNow = time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

type fixture struct {
	store    *repository.Memory
	loans    *LoanService
	catalog  *CatalogService
	students *StudentService
}

func newFixture(t *testing.T, maxActive int, opts ...LoanOption) *fixture {
	t.Helper()
	store := repository.NewMemory()
	opts = append([]LoanOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		store:    store,
		loans:    NewLoanService(store, NewEligibilityChecker(maxActive), opts...),
		catalog:  NewCatalogService(store, nil),
		students: NewStudentService(store, nil),
	}
}

func (f *fixture) addStudent(t *testing.T, name, matriculation string) *model.Student {
	t.Helper()
	s, err := f.students.Register(context.Background(), model.StudentRequest{
		Name:          name,
		Surname:       "Tester",
		Email:         matriculation + "@example.com",
		Matriculation: matriculation,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) addBook(t *testing.T, title string, stock int) *model.Book {
	t.Helper()
	b, err := f.catalog.Create(context.Background(), model.BookRequest{Title: title, Author: "Author", Stock: stock})
	require.NoError(t, err)
	return b
}

func (f *fixture) book(t *testing.T, id string) *model.Book {
	t.Helper()
	b, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) lend(t *testing.T, studentID, bookID string) *model.LoanDetail {
	t.Helper()
	created, err := f.loans.Create(context.Background(), model.CreateLoanRequest{StudentID: studentID, BookID: bookID})
	require.NoError(t, err)
	return created.Loan
}

func (f *fixture) loanCount(t *testing.T) int {
	t.Helper()
	all, err := f.loans.List(context.Background())
	require.NoError(t, err)
	return len(all)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Confirm(ctx context.Context, n notify.Notice) error {
	return m.Called(ctx, n).Error(0)
}
