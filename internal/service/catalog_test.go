package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

func Test_CatalogService_Create(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	b, err := f.catalog.Create(ctx, model.BookRequest{Title: "  Dune ", Author: "Herbert", Stock: 2})
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.True(t, b.Available)
	assert.NotEmpty(t, b.ID)

	yes := true
	empty, err := f.catalog.Create(ctx, model.BookRequest{Title: "Emma", Author: "Austen", Stock: 0, Available: &yes})
	require.NoError(t, err)
	assert.False(t, empty.Available, "no copies means not available")

	_, err = f.catalog.Create(ctx, model.BookRequest{Title: "X", Author: "Y", Stock: -1})
	assert.ErrorIs(t, err, repository.ErrStockNegative)
	_, err = f.catalog.Create(ctx, model.BookRequest{Title: " ", Author: "Y", Stock: 1})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = f.catalog.Create(ctx, model.BookRequest{Title: "Dune\r\nBcc: x@example.com", Author: "Y", Stock: 1})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = f.catalog.Create(ctx, model.BookRequest{Title: "Dune", Author: "Her\x00bert", Stock: 1})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func Test_CatalogService_Update(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	b := f.addBook(t, "Dune", 2)

	updated, err := f.catalog.Update(ctx, b.ID, model.BookRequest{Title: "Dune Messiah", Author: "Herbert", Stock: 4})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, 4, updated.Stock)
	assert.True(t, updated.Available, "availability kept when omitted")

	_, err = f.catalog.Update(ctx, "7f1d7c39-8a3e-4b55-9d5c-1f0a1bb1a111", model.BookRequest{Title: "A", Author: "B"})
	assert.ErrorIs(t, err, repository.ErrBookNotFound)
}

func Test_CatalogService_ToggleAvailability(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	b := f.addBook(t, "Dune", 1)

	off, err := f.catalog.ToggleAvailability(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, off.Available)

	on, err := f.catalog.ToggleAvailability(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, on.Available)

	empty := f.addBook(t, "Emma", 0)
	_, err = f.catalog.ToggleAvailability(ctx, empty.ID)
	assert.ErrorIs(t, err, repository.ErrBookOutOfStock)
	assert.False(t, f.book(t, empty.ID).Available)
}

func Test_CatalogService_SetStock(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	b := f.addBook(t, "Dune", 1)

	got, err := f.catalog.SetStock(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.False(t, got.Available)

	got, err = f.catalog.SetStock(ctx, b.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	assert.False(t, got.Available, "restocking does not re-enable a withdrawn book")

	_, err = f.catalog.SetStock(ctx, b.ID, -1)
	assert.ErrorIs(t, err, repository.ErrStockNegative)
}

func Test_CatalogService_DeleteIsSoft(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	s := f.addStudent(t, "Ada", "M1")
	b := f.addBook(t, "Dune", 2)
	loan := f.lend(t, s.ID, b.ID)

	require.NoError(t, f.catalog.Delete(ctx, b.ID))
	got := f.book(t, b.ID)
	assert.False(t, got.Available)
	assert.Equal(t, 1, got.Stock)

	detail, err := f.loans.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", detail.Book.Title, "past loans still resolve the book")

	assert.ErrorIs(t, f.catalog.Delete(ctx, "bad-id"), repository.ErrBookNotFound)
}

func Test_CatalogService_List(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	empty, err := f.catalog.List(ctx, model.BookFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)

	f.addBook(t, "Dune", 1)
	f.addBook(t, "Emma", 0)
	yes := true
	books, err := f.catalog.List(ctx, model.BookFilter{Available: &yes})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}
