package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

// ListBooks handles GET /api/books?title=&author=&available=
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.BookFilter{Title: q.Get("title"), Author: q.Get("author")}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			fail(w, http.StatusBadRequest, "available must be true or false", nil)
			return
		}
		filter.Available = &available
	}

	books, err := h.books.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "books retrieved", books)
}

// CreateBook handles POST /api/books
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if !h.bind(w, r, &req) {
		return
	}
	book, err := h.books.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "book created", book)
}

// GetBook handles GET /api/books/{id}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "book found", book)
}

// UpdateBook handles PUT /api/books/{id}
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if !h.bind(w, r, &req) {
		return
	}
	book, err := h.books.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "book updated", book)
}

// ToggleAvailability handles PUT /api/books/{id}/availability
func (h *Handler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.ToggleAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	msg := "book marked unavailable"
	if book.Available {
		msg = "book marked available"
	}
	respond(w, http.StatusOK, msg, book)
}

// SetStock handles PUT /api/books/{id}/stock?stock=n
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := strconv.Atoi(r.URL.Query().Get("stock"))
	if err != nil {
		fail(w, http.StatusBadRequest, "stock must be an integer", nil)
		return
	}
	book, err := h.books.SetStock(r.Context(), chi.URLParam(r, "id"), stock)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "stock updated", book)
}

// DeleteBook handles DELETE /api/books/{id}
// The book is withdrawn, not removed.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.books.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "book withdrawn", nil)
}
