// Package reminder periodically emails students whose loans are overdue.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Shivanand-hulikatti/lending-library/internal/model"
	"github.com/Shivanand-hulikatti/lending-library/internal/notify"
)

// DefaultTimeout bounds one full sweep.
const DefaultTimeout = 5 * time.Minute

// OverdueLister returns the active loans past their due date, annotated.
type OverdueLister interface {
	Overdue(ctx context.Context) ([]model.LoanDetail, error)
}

// NoticeFunc turns a loan into a notice.
type NoticeFunc func(d *model.LoanDetail) notify.Notice

// Result summarises one sweep.
type Result struct {
	Overdue int
	Sent    int
	Failed  int
}

// Job sends one reminder per overdue loan.
type Job struct {
	loans   OverdueLister
	sender  notify.Sender
	notice  NoticeFunc
	timeout time.Duration
	logger  *slog.Logger
}

// NewJob constructs a Job.
func NewJob(loans OverdueLister, sender notify.Sender, notice NoticeFunc, logger *slog.Logger) *Job {
	return &Job{
		loans:   loans,
		sender:  sender,
		notice:  notice,
		timeout: DefaultTimeout,
		logger:  logger,
	}
}

// Run performs one sweep. A failed reminder is logged and counted; it does
// not stop the sweep.
func (j *Job) Run(ctx context.Context) (Result, error) {
	var res Result
	overdue, err := j.loans.Overdue(ctx)
	if err != nil {
		return res, fmt.Errorf("list overdue loans: %w", err)
	}
	res.Overdue = len(overdue)

	for i := range overdue {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d := &overdue[i]
		if err := j.sender.SendOverdueReminder(ctx, j.notice(d)); err != nil {
			res.Failed++
			j.logger.WarnContext(ctx, "overdue reminder failed",
				slog.String("loan_id", d.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Sent++
	}
	return res, nil
}

// Start schedules Run on spec and starts the scheduler. Overlapping sweeps
// are skipped. The caller stops the returned scheduler on shutdown.
func (j *Job) Start(spec string) (*cron.Cron, error) {
	logger := cronLogger{j.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()

		res, err := j.Run(ctx)
		if err != nil {
			j.logger.Error("overdue sweep failed", slog.String("error", err.Error()))
			return
		}
		j.logger.Info("overdue sweep finished",
			slog.Int("overdue", res.Overdue),
			slog.Int("sent", res.Sent),
			slog.Int("failed", res.Failed),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	j.logger.Info("overdue reminders scheduled", slog.String("schedule", spec))
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
