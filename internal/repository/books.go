package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

const bookColumns = `id, title, author, available, stock`

func scanBook(row pgx.Row) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Available, &b.Stock)
	return b, err
}

func (q *queries) getBook(ctx context.Context, id string, lock bool) (*model.Book, error) {
	sql := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	b, err := scanBook(q.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}

// FindBook returns a single book or ErrBookNotFound.
func (q *queries) FindBook(ctx context.Context, id string) (*model.Book, error) {
	return q.getBook(ctx, id, false)
}

// LockBook returns a single book and holds its row lock.
func (q *queries) LockBook(ctx context.Context, id string) (*model.Book, error) {
	return q.getBook(ctx, id, true)
}

// ListBooks returns books matching filter ordered by title.
func (q *queries) ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	ds := dialect.From(tableBooks).
		Select("id", "title", "author", "available", "stock").
		Order(goqu.I("title").Asc(), goqu.I("id").Asc())
	if filter.Title != "" {
		ds = ds.Where(goqu.I("title").ILike(likePattern(filter.Title)))
	}
	if filter.Author != "" {
		ds = ds.Where(goqu.I("author").ILike(likePattern(filter.Author)))
	}
	if filter.Available != nil {
		ds = ds.Where(goqu.I("available").Eq(*filter.Available))
	}

	sql, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list books query: %w", err)
	}
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	books, err := collect(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return books, nil
}

// InsertBook persists a new book. The caller assigns the ID.
func (q *queries) InsertBook(ctx context.Context, b *model.Book) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO books (id, title, author, available, stock)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.Title, b.Author, b.Available, b.Stock,
	)
	if err != nil {
		return wrap("insert book", err)
	}
	return nil
}

// UpdateBook replaces every mutable field of a book.
func (q *queries) UpdateBook(ctx context.Context, b *model.Book) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE books SET title = $2, author = $3, available = $4, stock = $5 WHERE id = $1`,
		b.ID, b.Title, b.Author, b.Available, b.Stock,
	)
	if err != nil {
		return wrap("update book", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// SetAvailability flips the available flag without touching stock.
func (q *queries) SetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := q.db.Exec(ctx, `UPDATE books SET available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}
