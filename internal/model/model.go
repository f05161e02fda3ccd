// Package model defines the core domain types for the lending library.
package model

import (
	"strings"
	"time"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive    LoanStatus = "ACTIVE"
	LoanReturned  LoanStatus = "RETURNED"
	LoanCancelled LoanStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanActive, LoanReturned, LoanCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s LoanStatus) Terminal() bool {
	return s == LoanReturned || s == LoanCancelled
}

// Book is a catalog entry with a count of copies on the shelf.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
	Stock     int    `json:"stock"`
}

// Lendable reports whether a copy can be handed out right now.
func (b *Book) Lendable() bool {
	return b.Available && b.Stock > 0
}

// TakeCopy removes one copy from the shelf. Stock never drops below zero and
// the book stops being available once the shelf is empty.
func (b *Book) TakeCopy() {
	if b.Stock > 0 {
		b.Stock--
	}
	if b.Stock <= 0 {
		b.Stock = 0
		b.Available = false
	}
}

// ReturnCopy puts one copy back. A returned copy always makes the book
// available again, overriding a manual withdrawal.
func (b *Book) ReturnCopy() {
	b.Stock++
	b.Available = true
}

// Student is a registered borrower.
type Student struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	Email         string `json:"email"`
	Matriculation string `json:"matriculation"`
}

// Loan is the authoritative loan record.
type Loan struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	BookID    string     `json:"book_id"`
	LoanDate  time.Time  `json:"loan_date"`
	DueDate   time.Time  `json:"due_date"`
	Status    LoanStatus `json:"status"`
}

// Overdue reports whether an active loan is past its due date on day today.
func (l *Loan) Overdue(today time.Time) bool {
	return l.Status == LoanActive && Day(today).After(Day(l.DueDate))
}

// DaysRemaining is the number of whole days from today until the due date.
// It is negative once the loan is overdue.
func (l *Loan) DaysRemaining(today time.Time) int {
	return int(Day(l.DueDate).Sub(Day(today)).Hours() / 24)
}

// StudentSummary is the student part of a LoanDetail.
type StudentSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	Email         string `json:"email"`
	Matriculation string `json:"matriculation"`
}

// FullName joins name and surname.
func (s StudentSummary) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.Surname)
}

// BookSummary is the book part of a LoanDetail.
type BookSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// LoanDetail is a read-only projection of a loan joined with its student and
// book. It is assembled by a query and never written back.
type LoanDetail struct {
	Loan
	Student       StudentSummary `json:"student"`
	Book          BookSummary    `json:"book"`
	Overdue       bool           `json:"overdue"`
	DaysRemaining int            `json:"days_remaining"`
}

// Annotate fills the computed fields relative to today.
func (d *LoanDetail) Annotate(today time.Time) {
	d.Overdue = d.Loan.Overdue(today)
	d.DaysRemaining = d.Loan.DaysRemaining(today)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
