package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

// Memory is a Store that keeps everything in process memory. Transactions
// are serialised by a single mutex and work on a cloned state that replaces
// the live one on commit, so a failed unit of work leaves nothing behind.
type Memory struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	books    map[string]model.Book
	students map[string]model.Student
	loans    map[string]model.Loan
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: memoryState{
		books:    make(map[string]model.Book),
		students: make(map[string]model.Student),
		loans:    make(map[string]model.Loan),
	}}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		books:    make(map[string]model.Book, len(s.books)),
		students: make(map[string]model.Student, len(s.students)),
		loans:    make(map[string]model.Loan, len(s.loans)),
	}
	for k, v := range s.books {
		out.books[k] = v
	}
	for k, v := range s.students {
		out.students[k] = v
	}
	for k, v := range s.loans {
		out.loans[k] = v
	}
	return out
}

// RunInTx runs fn against a private copy of the state and publishes it only
// when fn succeeds.
func (m *Memory) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

// View runs fn against the committed state.
func (m *Memory) View(ctx context.Context, fn func(r Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memoryTx{state: m.state})
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) FindBook(_ context.Context, id string) (*model.Book, error) {
	b, ok := t.state.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return &b, nil
}

// LockBook is FindBook: the store mutex already serialises transactions.
func (t *memoryTx) LockBook(ctx context.Context, id string) (*model.Book, error) {
	return t.FindBook(ctx, id)
}

func (t *memoryTx) ListBooks(_ context.Context, filter model.BookFilter) ([]model.Book, error) {
	out := make([]model.Book, 0)
	for _, b := range t.state.books {
		if filter.Title != "" && !containsFold(b.Title, filter.Title) {
			continue
		}
		if filter.Author != "" && !containsFold(b.Author, filter.Author) {
			continue
		}
		if filter.Available != nil && b.Available != *filter.Available {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memoryTx) InsertBook(_ context.Context, b *model.Book) error {
	if b.Stock < 0 {
		return ErrStockNegative
	}
	t.state.books[b.ID] = *b
	return nil
}

func (t *memoryTx) UpdateBook(_ context.Context, b *model.Book) error {
	if _, ok := t.state.books[b.ID]; !ok {
		return ErrBookNotFound
	}
	if b.Stock < 0 {
		return ErrStockNegative
	}
	t.state.books[b.ID] = *b
	return nil
}

func (t *memoryTx) SetAvailability(_ context.Context, id string, available bool) error {
	b, ok := t.state.books[id]
	if !ok {
		return ErrBookNotFound
	}
	b.Available = available
	t.state.books[id] = b
	return nil
}

func (t *memoryTx) DecrementStock(_ context.Context, bookID string) (*model.Book, error) {
	b, ok := t.state.books[bookID]
	if !ok {
		return nil, ErrBookNotFound
	}
	b.TakeCopy()
	t.state.books[bookID] = b
	return &b, nil
}

func (t *memoryTx) IncrementStock(_ context.Context, bookID string) (*model.Book, error) {
	b, ok := t.state.books[bookID]
	if !ok {
		return nil, ErrBookNotFound
	}
	b.ReturnCopy()
	t.state.books[bookID] = b
	return &b, nil
}

func (t *memoryTx) FindStudent(_ context.Context, id string) (*model.Student, error) {
	s, ok := t.state.students[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	return &s, nil
}

func (t *memoryTx) LockStudent(ctx context.Context, id string) (*model.Student, error) {
	return t.FindStudent(ctx, id)
}

func (t *memoryTx) FindStudentByMatriculation(_ context.Context, matriculation string) (*model.Student, error) {
	for _, s := range t.state.students {
		if s.Matriculation == matriculation {
			return &s, nil
		}
	}
	return nil, ErrStudentNotFound
}

func (t *memoryTx) ListStudents(_ context.Context, filter model.StudentFilter) ([]model.Student, error) {
	out := make([]model.Student, 0)
	for _, s := range t.state.students {
		if filter.Email != "" && !containsFold(s.Email, filter.Email) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Surname != out[j].Surname {
			return out[i].Surname < out[j].Surname
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// checkUnique mirrors the unique constraints on email and matriculation.
func (t *memoryTx) checkUnique(s *model.Student) error {
	for id, other := range t.state.students {
		if id == s.ID {
			continue
		}
		if other.Email == s.Email {
			return ErrDuplicateEmail
		}
		if other.Matriculation == s.Matriculation {
			return ErrDuplicateMatriculation
		}
	}
	return nil
}

func (t *memoryTx) InsertStudent(_ context.Context, s *model.Student) error {
	if err := t.checkUnique(s); err != nil {
		return err
	}
	t.state.students[s.ID] = *s
	return nil
}

func (t *memoryTx) UpdateStudent(_ context.Context, s *model.Student) error {
	if _, ok := t.state.students[s.ID]; !ok {
		return ErrStudentNotFound
	}
	if err := t.checkUnique(s); err != nil {
		return err
	}
	t.state.students[s.ID] = *s
	return nil
}

func (t *memoryTx) DeleteStudent(_ context.Context, id string) error {
	if _, ok := t.state.students[id]; !ok {
		return ErrStudentNotFound
	}
	for _, l := range t.state.loans {
		if l.StudentID == id {
			return ErrStudentHasLoans
		}
	}
	delete(t.state.students, id)
	return nil
}

func (t *memoryTx) FindLoan(_ context.Context, id string) (*model.Loan, error) {
	l, ok := t.state.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	return &l, nil
}

func (t *memoryTx) LockLoan(ctx context.Context, id string) (*model.Loan, error) {
	return t.FindLoan(ctx, id)
}

func (t *memoryTx) ActiveLoansByStudent(_ context.Context, studentID string) ([]model.Loan, error) {
	out := make([]model.Loan, 0)
	for _, l := range t.state.loans {
		if l.StudentID == studentID && l.Status == model.LoanActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanDate.Before(out[j].LoanDate) })
	return out, nil
}

func (t *memoryTx) detail(l model.Loan) (model.LoanDetail, error) {
	s, ok := t.state.students[l.StudentID]
	if !ok {
		return model.LoanDetail{}, ErrStudentNotFound
	}
	b, ok := t.state.books[l.BookID]
	if !ok {
		return model.LoanDetail{}, ErrBookNotFound
	}
	return model.LoanDetail{
		Loan: l,
		Student: model.StudentSummary{
			ID:            s.ID,
			Name:          s.Name,
			Surname:       s.Surname,
			Email:         s.Email,
			Matriculation: s.Matriculation,
		},
		Book: model.BookSummary{ID: b.ID, Title: b.Title, Author: b.Author},
	}, nil
}

func (t *memoryTx) LoanDetail(_ context.Context, id string) (*model.LoanDetail, error) {
	l, ok := t.state.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	d, err := t.detail(l)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *memoryTx) LoanDetails(_ context.Context, filter model.LoanFilter) ([]model.LoanDetail, error) {
	var asOf time.Time
	if filter.OverdueAsOf != nil {
		asOf = model.Day(*filter.OverdueAsOf)
	}
	out := make([]model.LoanDetail, 0)
	for _, l := range t.state.loans {
		d, err := t.detail(l)
		if err != nil {
			return nil, err
		}
		if filter.StudentName != "" &&
			!containsFold(d.Student.Name, filter.StudentName) &&
			!containsFold(d.Student.Surname, filter.StudentName) {
			continue
		}
		if filter.OverdueAsOf != nil && (l.Status != model.LoanActive || !model.Day(l.DueDate).Before(asOf)) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoanDate.Equal(out[j].LoanDate) {
			return out[i].LoanDate.After(out[j].LoanDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memoryTx) InsertLoan(_ context.Context, l *model.Loan) error {
	if l.Status == model.LoanActive {
		for _, other := range t.state.loans {
			if other.Status == model.LoanActive && other.StudentID == l.StudentID && other.BookID == l.BookID {
				return ErrDuplicateLoan
			}
		}
	}
	t.state.loans[l.ID] = *l
	return nil
}

func (t *memoryTx) UpdateLoanDates(_ context.Context, id string, loanDate, dueDate time.Time) error {
	l, ok := t.state.loans[id]
	if !ok {
		return ErrLoanNotFound
	}
	l.LoanDate, l.DueDate = loanDate, dueDate
	t.state.loans[id] = l
	return nil
}

func (t *memoryTx) SetLoanStatus(_ context.Context, id string, status model.LoanStatus) error {
	l, ok := t.state.loans[id]
	if !ok {
		return ErrLoanNotFound
	}
	l.Status = status
	t.state.loans[id] = l
	return nil
}

func (t *memoryTx) DeleteLoan(_ context.Context, id string) error {
	if _, ok := t.state.loans[id]; !ok {
		return ErrLoanNotFound
	}
	delete(t.state.loans, id)
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
