package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueued reports that a confirmation is still being delivered when the
// caller stopped waiting for it.
var ErrQueued = errors.New("confirmation queued for delivery")

// Dispatcher sends confirmations after a loan has been committed. Delivery
// runs on its own goroutine with its own deadline, so a caller that goes
// away does not abort the send, and the caller waits at most a bounded time.
type Dispatcher struct {
	sender  Sender
	wait    time.Duration
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. wait bounds how long Confirm blocks;
// timeout bounds the delivery itself.
func NewDispatcher(sender Sender, wait, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, wait: wait, timeout: timeout, logger: logger}
}

// Confirm delivers a loan confirmation. It returns the delivery error if the
// send finished within the wait, and ErrQueued otherwise.
func (d *Dispatcher) Confirm(ctx context.Context, n Notice) error {
	done := make(chan error, 1)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		err := d.sender.SendLoanConfirmation(sendCtx, n)
		if err != nil {
			d.logger.Warn("loan confirmation failed",
				slog.String("loan_id", n.LoanID),
				slog.String("to", n.Email),
				slog.String("error", err.Error()),
			)
		}
		done <- err
	}()

	timer := time.NewTimer(d.wait)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrQueued
	case <-ctx.Done():
		return ErrQueued
	}
}

// Close waits for in-flight deliveries to finish or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
