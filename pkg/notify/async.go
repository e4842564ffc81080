package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apnisec/issuetracker/pkg/issues"
)

// Observer is told the outcome of every delivery attempt.
type Observer func(kind Kind, err error)

// Async runs every notification on its own goroutine and returns at once.
// Deliveries use a context detached from the caller's cancellation, bounded by
// the configured timeout. Failures are logged and never returned.
type Async struct {
	next     Notifier
	logger   *logrus.Logger
	timeout  time.Duration
	observer Observer
	wg       sync.WaitGroup
}

// AsyncOption configures Async.
type AsyncOption func(*Async)

// WithObserver registers a delivery observer, typically a metrics counter.
func WithObserver(o Observer) AsyncOption {
	return func(a *Async) { a.observer = o }
}

// NewAsync wraps next. A non-positive timeout defaults to 15 seconds.
func NewAsync(next Notifier, logger *logrus.Logger, timeout time.Duration, opts ...AsyncOption) *Async {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	a := &Async{next: next, logger: logger, timeout: timeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Async) NotifyWelcome(ctx context.Context, to, name string) error {
	a.dispatch(ctx, KindWelcome, to, func(ctx context.Context) error {
		return a.next.NotifyWelcome(ctx, to, name)
	})
	return nil
}

func (a *Async) NotifyLogin(ctx context.Context, to, name string) error {
	a.dispatch(ctx, KindLogin, to, func(ctx context.Context) error {
		return a.next.NotifyLogin(ctx, to, name)
	})
	return nil
}

func (a *Async) NotifyProfileUpdated(ctx context.Context, to, name string, fields []string) error {
	a.dispatch(ctx, KindProfileUpdated, to, func(ctx context.Context) error {
		return a.next.NotifyProfileUpdated(ctx, to, name, fields)
	})
	return nil
}

func (a *Async) NotifyIssueCreated(ctx context.Context, to string, issue *issues.Issue) error {
	snapshot := *issue
	a.dispatch(ctx, KindIssueCreated, to, func(ctx context.Context) error {
		return a.next.NotifyIssueCreated(ctx, to, &snapshot)
	})
	return nil
}

func (a *Async) dispatch(parent context.Context, kind Kind, to string, send func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.WithFields(logrus.Fields{"kind": kind, "panic": r}).Error("Notification panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.timeout)
		defer cancel()

		err := send(ctx)
		if a.observer != nil {
			a.observer(kind, err)
		}
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "to": to}).Warn("Notification delivery failed")
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
