package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func Test_Translate(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want error
	}{
		{"active loan index", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintOneActiveLoan}, ErrDuplicateLoan},
		{"email", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintStudentEmail}, ErrDuplicateEmail},
		{"matriculation", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintStudentMatric}, ErrDuplicateMatriculation},
		{"student referenced", &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: constraintLoansStudentFK}, ErrStudentHasLoans},
		{"stock check", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: constraintBooksStockCheck}, ErrStockNegative},
		{"dates check", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: constraintLoanDatesCheck}, ErrInvalidDates},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintOneActiveLoan}), ErrDuplicateLoan},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translate(tt.err))
		})
	}

	other := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "something_else"}
	assert.Same(t, other, translate(other))

	plain := errors.New("connection reset")
	wrapped := wrap("insert loan", plain)
	assert.ErrorIs(t, wrapped, plain)
	assert.Equal(t, "insert loan: connection reset", wrapped.Error())
}

func Test_LikePattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%ada%`, likePattern("ada"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\d%`, likePattern(`c:\d`))
}
