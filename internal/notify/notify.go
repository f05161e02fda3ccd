// Package notify delivers loan confirmations and overdue reminders to
// students.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Notice is everything a message about one loan needs.
type Notice struct {
	LoanID      string
	StudentName string
	Email       string
	BookTitle   string
	BookAuthor  string
	LoanDate    time.Time
	DueDate     time.Time
	// DaysOverdue is only set on reminders.
	DaysOverdue int
}

// Sender delivers notices. Implementations must honour ctx.
type Sender interface {
	SendLoanConfirmation(ctx context.Context, n Notice) error
	SendOverdueReminder(ctx context.Context, n Notice) error
}

// LogSender writes notices to the log instead of delivering them. It is used
// when no SMTP server is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendLoanConfirmation(ctx context.Context, n Notice) error {
	s.logger.InfoContext(ctx, "loan confirmation",
		slog.String("loan_id", n.LoanID),
		slog.String("to", n.Email),
		slog.String("book", n.BookTitle),
		slog.String("due_date", n.DueDate.Format(time.DateOnly)),
	)
	return nil
}

func (s *LogSender) SendOverdueReminder(ctx context.Context, n Notice) error {
	s.logger.InfoContext(ctx, "overdue reminder",
		slog.String("loan_id", n.LoanID),
		slog.String("to", n.Email),
		slog.String("book", n.BookTitle),
		slog.Int("days_overdue", n.DaysOverdue),
	)
	return nil
}
