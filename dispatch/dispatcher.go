// Package dispatch implements the concurrent dispatcher shared by the
// firehose, jetstream, and tap adapters: one independent goroutine per
// event, invoking the user callback and catching whatever it does —
// panic, error, or success — without ever affecting the engine, the
// cursor, or later events (spec §4.6, §5).
package dispatch

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Outcome is the normalized result of a user callback, used by Tap to
// decide whether to ack (spec §4.4's ack/nack table).
type Outcome int

const (
	// OutcomeOK covers Ok, Ok(_), and null/unit returns.
	OutcomeOK Outcome = iota
	// OutcomeError covers a returned error.
	OutcomeError
	// OutcomePanic covers a recovered panic.
	OutcomePanic
)

// Handler is the user-supplied callback invoked once per dispatched
// event. event is whichever of model.Commit, model.Sync, model.Identity,
// model.Account, model.Info, model.JetstreamCommit,
// model.JetstreamIdentity, model.JetstreamAccount, model.TapRecord, or
// model.TapIdentity the adapter constructed.
type Handler func(event any) error

// Dispatcher schedules one goroutine per event and invokes a Handler,
// catching panics and errors so they never propagate back into the
// engine or adapter goroutine.
type Dispatcher struct {
	handler Handler
	log     *logrus.Entry
}

// New constructs a Dispatcher. log receives "user-handler errors" class
// diagnostics (spec §7, class 5); a nil handler is treated as a no-op
// that always reports OutcomeOK.
func New(handler Handler, log *logrus.Entry) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "drinkup-dispatch")
	}
	return &Dispatcher{handler: handler, log: log}
}

// Dispatch schedules event on its own goroutine. done, if non-nil, is
// called with the outcome once the handler returns or panics — Tap uses
// it to decide whether to ack and to release flow credit; Firehose and
// Jetstream pass a callback that only calls engine.ReleaseCredit.
func (d *Dispatcher) Dispatch(event any, done func(Outcome)) {
	go func() {
		outcome := d.invoke(event)
		if done != nil {
			done(outcome)
		}
	}()
}

func (d *Dispatcher) invoke(event any) (outcome Outcome) {
	if d.handler == nil {
		return OutcomeOK
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("panic", fmt.Sprint(r)).Error("drinkup: user handler panicked")
			outcome = OutcomePanic
		}
	}()

	if err := d.handler(event); err != nil {
		d.log.WithError(err).Warn("drinkup: user handler returned an error")
		return OutcomeError
	}
	return OutcomeOK
}
