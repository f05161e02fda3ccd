package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
)

// DecrementStock takes one copy off the shelf in a single statement. The
// right-hand side of SET sees the pre-update row, so the availability check
// uses stock - 1.
func (q *queries) DecrementStock(ctx context.Context, bookID string) (*model.Book, error) {
	return q.adjustStock(ctx,
		`UPDATE books
		 SET stock = GREATEST(stock - 1, 0),
		     available = CASE WHEN stock - 1 <= 0 THEN FALSE ELSE available END
		 WHERE id = $1
		 RETURNING `+bookColumns,
		bookID,
	)
}

// IncrementStock puts one copy back and marks the book available.
func (q *queries) IncrementStock(ctx context.Context, bookID string) (*model.Book, error) {
	return q.adjustStock(ctx,
		`UPDATE books
		 SET stock = stock + 1,
		     available = TRUE
		 WHERE id = $1
		 RETURNING `+bookColumns,
		bookID,
	)
}

func (q *queries) adjustStock(ctx context.Context, sql, bookID string) (*model.Book, error) {
	b, err := scanBook(q.db.QueryRow(ctx, sql, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, wrap("adjust stock", err)
	}
	return &b, nil
}
