package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/notify"
)

// ListLoans handles GET /api/loans
// With ?student= it narrows the list to students whose name or surname
// contains the fragment.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		loans []model.LoanDetail
		err   error
	)
	if r.URL.Query().Has("student") {
		loans, err = h.loans.ListByStudentName(r.Context(), r.URL.Query().Get("student"))
	} else {
		loans, err = h.loans.List(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "loans retrieved", loans)
}

// CreateLoan handles POST /api/loans
// The loan stands even if the confirmation could not be delivered; the
// message says so.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLoanRequest
	if !h.bind(w, r, &req) {
		return
	}

	created, err := h.loans.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	msg := "loan created"
	switch {
	case created.NotificationErr == nil:
	case errors.Is(created.NotificationErr, notify.ErrQueued):
		msg = "loan created; confirmation email queued"
	default:
		msg = "loan created, but the confirmation email could not be sent"
	}
	respond(w, http.StatusCreated, msg, created.Loan)
}

// CheckEligibility handles GET /api/loans/eligibility?student_id=&book_id=
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	studentID, bookID := strings.TrimSpace(q.Get("student_id")), strings.TrimSpace(q.Get("book_id"))
	if studentID == "" || bookID == "" {
		fail(w, http.StatusBadRequest, "student_id and book_id are required", nil)
		return
	}

	elig, err := h.loans.CheckEligibility(r.Context(), studentID, bookID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "student may borrow this book", elig)
}

// GetLoan handles GET /api/loans/{id}
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "loan found", loan)
}

// UpdateLoan handles PUT /api/loans/{id}
// Only dates can be corrected here.
func (h *Handler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateLoanRequest
	if !h.bind(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	loan, err := h.loans.Update(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "loan updated", loan)
}

// ReturnLoan handles PATCH /api/loans/{id}/return
func (h *Handler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loans.Return(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "loan returned", loan)
}

// CancelLoan handles PATCH /api/loans/{id}/cancel
func (h *Handler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loans.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "loan cancelled", loan)
}

// DeleteLoan handles DELETE /api/loans/{id}
func (h *Handler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := h.loans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "loan deleted", nil)
}
