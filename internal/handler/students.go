package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

// ListStudents handles GET /api/students?email=
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.List(r.Context(), model.StudentFilter{Email: r.URL.Query().Get("email")})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "students retrieved", students)
}

// RegisterStudent handles POST /api/students
func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req model.StudentRequest
	if !h.bind(w, r, &req) {
		return
	}
	student, err := h.students.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "student registered", student)
}

// GetStudent handles GET /api/students/{id}
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.students.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "student found", student)
}

// GetStudentByMatriculation handles GET /api/students/matriculation/{number}
func (h *Handler) GetStudentByMatriculation(w http.ResponseWriter, r *http.Request) {
	student, err := h.students.FindByMatriculation(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "student found", student)
}

// UpdateStudent handles PUT /api/students/{id}
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req model.StudentRequest
	if !h.bind(w, r, &req) {
		return
	}
	student, err := h.students.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "student updated", student)
}

// DeleteStudent handles DELETE /api/students/{id}
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.students.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "student deleted", nil)
}
