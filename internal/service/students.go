package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

// StudentService manages the student directory.
type StudentService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(store repository.Store, logger *slog.Logger) *StudentService {
	if logger == nil {
		logger = discardLogger()
	}
	return &StudentService{store: store, logger: logger}
}

// Register adds a student. Email and matriculation number must be unused.
func (s *StudentService) Register(ctx context.Context, req model.StudentRequest) (*model.Student, error) {
	st := &model.Student{ID: uuid.NewString()}
	if err := applyStudentRequest(st, req); err != nil {
		return nil, err
	}
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.InsertStudent(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "student registered", slog.String("student_id", st.ID))
	return st, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*model.Student, error) {
	studentID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	var st *model.Student
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		st, err = r.FindStudent(ctx, studentID)
		return err
	})
	return st, err
}

// FindByMatriculation looks a student up by matriculation number.
func (s *StudentService) FindByMatriculation(ctx context.Context, number string) (*model.Student, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, repository.ErrStudentNotFound
	}
	var st *model.Student
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		st, err = r.FindStudentByMatriculation(ctx, number)
		return err
	})
	return st, err
}

// List returns students, optionally narrowed by an email fragment.
func (s *StudentService) List(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	filter.Email = strings.TrimSpace(filter.Email)
	var students []model.Student
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		students, err = r.ListStudents(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, nil
}

// Update replaces a student's details.
func (s *StudentService) Update(ctx context.Context, id string, req model.StudentRequest) (*model.Student, error) {
	studentID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	var st *model.Student
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		st, err = tx.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if err := applyStudentRequest(st, req); err != nil {
			return err
		}
		return tx.UpdateStudent(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes a student that has no loan history.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	studentID, ok := canonicalID(id)
	if !ok {
		return repository.ErrStudentNotFound
	}
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteStudent(ctx, studentID)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "student deleted", slog.String("student_id", studentID))
	return nil
}

func applyStudentRequest(st *model.Student, req model.StudentRequest) error {
	name, surname := strings.TrimSpace(req.Name), strings.TrimSpace(req.Surname)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	matriculation := strings.TrimSpace(req.Matriculation)
	if name == "" || surname == "" || email == "" || matriculation == "" || hasControl(name) || hasControl(surname) {
		return repository.ErrInvalidInput
	}
	st.Name, st.Surname, st.Email, st.Matriculation = name, surname, email, matriculation
	return nil
}
