package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

// CatalogService manages book records. Stock set here is an absolute
// correction; loan transitions adjust it through the ledger instead.
type CatalogService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store repository.Store, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = discardLogger()
	}
	return &CatalogService{store: store, logger: logger}
}

// Create adds a book. It is available unless the request says otherwise or
// there are no copies.
func (s *CatalogService) Create(ctx context.Context, req model.BookRequest) (*model.Book, error) {
	b := &model.Book{ID: uuid.NewString(), Available: true}
	if err := applyBookRequest(b, req); err != nil {
		return nil, err
	}
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.InsertBook(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "book created", slog.String("book_id", b.ID), slog.Int("stock", b.Stock))
	return b, nil
}

// Get returns a single book.
func (s *CatalogService) Get(ctx context.Context, id string) (*model.Book, error) {
	bookID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	var b *model.Book
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		b, err = r.FindBook(ctx, bookID)
		return err
	})
	return b, err
}

// List returns books matching filter ordered by title.
func (s *CatalogService) List(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	filter.Title = strings.TrimSpace(filter.Title)
	filter.Author = strings.TrimSpace(filter.Author)
	var books []model.Book
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		books, err = r.ListBooks(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// Update replaces a book's fields. Availability is kept when the request
// leaves it out.
func (s *CatalogService) Update(ctx context.Context, id string, req model.BookRequest) (*model.Book, error) {
	bookID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	var b *model.Book
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		b, err = tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if err := applyBookRequest(b, req); err != nil {
			return err
		}
		return tx.UpdateBook(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ToggleAvailability flips the manual availability flag. A book without
// copies cannot be made available.
func (s *CatalogService) ToggleAvailability(ctx context.Context, id string) (*model.Book, error) {
	bookID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	var b *model.Book
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		b, err = tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if !b.Available && b.Stock <= 0 {
			return repository.ErrBookOutOfStock
		}
		b.Available = !b.Available
		return tx.SetAvailability(ctx, bookID, b.Available)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "book availability changed",
		slog.String("book_id", b.ID), slog.Bool("available", b.Available))
	return b, nil
}

// SetStock sets the number of copies on the shelf. Zero copies also makes
// the book unavailable.
func (s *CatalogService) SetStock(ctx context.Context, id string, stock int) (*model.Book, error) {
	bookID, ok := canonicalID(id)
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	if stock < 0 {
		return nil, repository.ErrStockNegative
	}
	var b *model.Book
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		b, err = tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		b.Stock = stock
		if stock == 0 {
			b.Available = false
		}
		return tx.UpdateBook(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete withdraws a book from lending. The record stays so that past loans
// still resolve.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	bookID, ok := canonicalID(id)
	if !ok {
		return repository.ErrBookNotFound
	}
	return s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.SetAvailability(ctx, bookID, false)
	})
}

func applyBookRequest(b *model.Book, req model.BookRequest) error {
	title, author := strings.TrimSpace(req.Title), strings.TrimSpace(req.Author)
	if title == "" || author == "" || hasControl(title) || hasControl(author) {
		return repository.ErrInvalidInput
	}
	if req.Stock < 0 {
		return repository.ErrStockNegative
	}
	b.Title, b.Author, b.Stock = title, author, req.Stock
	if req.Available != nil {
		b.Available = *req.Available
	}
	if b.Stock == 0 {
		b.Available = false
	}
	return nil
}
