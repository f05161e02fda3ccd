package model

import (
	"fmt"
	"strconv"
	"time"
)

// Date is a calendar day in a request body. It accepts "2006-01-02" as well
// as a full RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = Day(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format(time.DateOnly))), nil
}

// CreateLoanRequest is the payload for lending a book to a student.
// Missing dates are defaulted by the loan service. Ids that are not UUIDs
// name no record and are reported as not found.
type CreateLoanRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	BookID    string `json:"book_id" validate:"required"`
	LoanDate  *Date  `json:"loan_date,omitempty"`
	DueDate   *Date  `json:"due_date,omitempty"`
}

// UpdateLoanRequest carries a clerical correction of a loan's dates.
// Status is accepted only when it matches the current status.
type UpdateLoanRequest struct {
	ID       string      `json:"-"`
	LoanDate *Date       `json:"loan_date,omitempty"`
	DueDate  *Date       `json:"due_date,omitempty"`
	Status   *LoanStatus `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE RETURNED CANCELLED"`
}

// BookRequest is the payload for creating or replacing a book.
type BookRequest struct {
	Title     string `json:"title" validate:"required,max=255,nocontrol"`
	Author    string `json:"author" validate:"required,max=255,nocontrol"`
	Stock     int    `json:"stock" validate:"gte=0"`
	Available *bool  `json:"available,omitempty"`
}

// BookFilter narrows a catalog listing. Empty fields match everything.
type BookFilter struct {
	Title     string
	Author    string
	Available *bool
}

// StudentRequest is the payload for registering or updating a student.
type StudentRequest struct {
	Name          string `json:"name" validate:"required,max=100,nocontrol"`
	Surname       string `json:"surname" validate:"required,max=100,nocontrol"`
	Email         string `json:"email" validate:"required,email"`
	Matriculation string `json:"matriculation" validate:"required,alphanum,max=32"`
}

// StudentFilter narrows a student listing.
type StudentFilter struct {
	Email string
}

// LoanFilter narrows a loan projection query.
type LoanFilter struct {
	// StudentName matches name or surname, case-insensitively.
	StudentName string
	// OverdueAsOf selects active loans due before this day.
	OverdueAsOf *time.Time
}

// Response is the envelope every API call answers with.
type Response[T any] struct {
	Data    T      `json:"data"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
