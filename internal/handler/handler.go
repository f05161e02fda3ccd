// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// Handler holds all HTTP handlers for the library API.
type Handler struct {
	loans    *service.LoanService
	books    *service.CatalogService
	students *service.StudentService
	validate *validator.Validate
	logger   *slog.Logger
}

// New constructs a Handler.
func New(loans *service.LoanService, books *service.CatalogService, students *service.StudentService, logger *slog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("nocontrol", noControl)
	return &Handler{loans: loans, books: books, students: students, validate: v, logger: logger}
}

// noControl rejects strings carrying control characters such as CR and LF.
// Titles and names end up in mail headers.
func noControl(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
}

// Routes builds the router with the global middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(h.logger))
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/api/loans", func(r chi.Router) {
		r.Get("/", h.ListLoans)
		r.Post("/", h.CreateLoan)
		r.Get("/eligibility", h.CheckEligibility)
		r.Get("/{id}", h.GetLoan)
		r.Put("/{id}", h.UpdateLoan)
		r.Delete("/{id}", h.DeleteLoan)
		r.Patch("/{id}/return", h.ReturnLoan)
		r.Patch("/{id}/cancel", h.CancelLoan)
	})

	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", h.ListBooks)
		r.Post("/", h.CreateBook)
		r.Get("/{id}", h.GetBook)
		r.Put("/{id}", h.UpdateBook)
		r.Put("/{id}/availability", h.ToggleAvailability)
		r.Put("/{id}/stock", h.SetStock)
		r.Delete("/{id}", h.DeleteBook)
	})

	r.Route("/api/students", func(r chi.Router) {
		r.Get("/", h.ListStudents)
		r.Post("/", h.RegisterStudent)
		r.Get("/matriculation/{number}", h.GetStudentByMatriculation)
		r.Get("/{id}", h.GetStudent)
		r.Put("/{id}", h.UpdateStudent)
		r.Delete("/{id}", h.DeleteStudent)
	})

	return r
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes a success envelope.
func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, model.Response[any]{Data: data, Code: status, Message: message})
}

// fail writes an error envelope.
func fail(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, model.Response[any]{Data: data, Code: status, Message: message, Error: true})
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// bind decodes and validates a request body. It writes the 400 response
// itself and reports false when the request was rejected.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			fail(w, http.StatusBadRequest, "invalid input", nil)
			return false
		}
		fields := make([]model.FieldError, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, model.FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		fail(w, http.StatusBadRequest, "validation failed", fields)
		return false
	}
	return true
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
}
