package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Dispatcher sends mail in the background. Each send runs on its own
// goroutine with a detached context so that the caller's request finishing
// (or its deadline expiring) does not cancel delivery.
type Dispatcher struct {
	mailer Mailer
	log    *zap.Logger
}

// NewDispatcher wraps a Mailer with asynchronous delivery.
func NewDispatcher(m Mailer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{mailer: m, log: log}
}

// Mailer exposes the wrapped delivery collaborator for synchronous use.
func (d *Dispatcher) Mailer() Mailer { return d.mailer }

// Go runs send in the background, logging a failure instead of returning it.
func (d *Dispatcher) Go(kind string, send func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("mail dispatch panic", zap.String("kind", kind), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			d.log.Warn("mail dispatch failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}
