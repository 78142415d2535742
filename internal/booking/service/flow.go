package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-booking/internal/booking/deadline"
	"delivery-booking/internal/booking/lifecycle"
	"delivery-booking/internal/booking/pool"
	"delivery-booking/internal/booking/solicit"
	"delivery-booking/internal/channel"
	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"
)

// BookingChannel is the slice of the realtime channel the engine drives.
type BookingChannel interface {
	Bind(bookingID string) error
	Send(event string, payload any) error
	Subscribe(event string, h channel.Handler)
	Close() error
}

// Options carries the tunable timings. Zero values fall back to the
// production defaults.
type Options struct {
	SearchDeadline time.Duration // global driver-search budget
	RequestTimeout time.Duration // per-driver solicitation timeout
	CancelAckWait  time.Duration // bounded wait for a cancellation ack
	TickInterval   time.Duration // countdown granularity, tests shrink it
}

func (o *Options) fill() {
	if o.SearchDeadline == 0 {
		o.SearchDeadline = 600 * time.Second
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.CancelAckWait == 0 {
		o.CancelAckWait = 5 * time.Second
	}
	if o.TickInterval == 0 {
		o.TickInterval = time.Second
	}
}

// internal event queue entries; everything that can mutate booking state
// flows through this single union.
type engineEvent struct {
	candidates   []model.DriverCandidate
	hasCands     bool // discriminates candidate pushes; a null push is a valid empty set
	rideRequest  *channel.RideRequestStatusPayload
	rideStatus   *channel.RideStatusUpdatePayload
	cancelAck    *channel.CancelAckPayload
	timeoutFor   *int64 // solicitation timeout for driver id
	deadlineHit  bool
	cancelExpiry bool // cancel-ack wait lapsed
	userCancel   bool
	arrival      bool
	paymentDone  bool
}

// Engine owns one booking flow end to end: it binds the channel, runs the
// candidate search, reacts to pushes and user commands, and tears the
// session down once the lifecycle reaches a terminal state. Every state
// mutation happens on the Run goroutine; no two handlers interleave.
type Engine struct {
	opts      Options
	machine   *lifecycle.Machine
	pool      *pool.Pool
	solicitor *solicit.Solicitor
	deadman   *deadline.Manager
	ch        BookingChannel

	mu     sync.Mutex
	events chan engineEvent
	done   chan struct{}

	cancelTimer *time.Timer
}

func NewEngine(booking *model.Booking, ch BookingChannel, opts Options) *Engine {
	opts.fill()

	e := &Engine{
		opts:   opts,
		ch:     ch,
		events: make(chan engineEvent, 64),
		done:   make(chan struct{}),
	}

	e.machine = lifecycle.New(booking)
	e.pool = pool.New(booking.VehicleClass)
	e.solicitor = solicit.New(booking, e.machine, e.pool, ch,
		opts.RequestTimeout, func(driverID int64) {
			id := driverID
			e.post(engineEvent{timeoutFor: &id})
		})
	e.deadman = deadline.NewWithInterval(func() {
		e.post(engineEvent{deadlineHit: true})
	}, opts.TickInterval)

	ch.Subscribe(channel.EventNearbyDrivers, func(evt any) {
		if p, ok := evt.(channel.NearbyDriversPayload); ok {
			e.post(engineEvent{candidates: p.Drivers, hasCands: true})
		}
	})
	ch.Subscribe(channel.EventRideRequestStatus, func(evt any) {
		if p, ok := evt.(channel.RideRequestStatusPayload); ok {
			e.post(engineEvent{rideRequest: &p})
		}
	})
	ch.Subscribe(channel.EventRideStatusUpdate, func(evt any) {
		if p, ok := evt.(channel.RideStatusUpdatePayload); ok {
			e.post(engineEvent{rideStatus: &p})
		}
	})
	ch.Subscribe(channel.EventCancelAck, func(evt any) {
		if p, ok := evt.(channel.CancelAckPayload); ok {
			e.post(engineEvent{cancelAck: &p})
		}
	})

	return e
}

func (e *Engine) post(evt engineEvent) {
	select {
	case e.events <- evt:
	case <-e.done:
	}
}

// OnStatusChange registers an observer for committed transitions. Must be
// set before Run; the callback runs on the engine goroutine and must not
// block.
func (e *Engine) OnStatusChange(fn lifecycle.ChangeFunc) {
	e.machine.OnChange(fn)
}

// Status returns the current booking status.
func (e *Engine) Status() model.BookingStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Status()
}

// Booking returns the booking owned by this engine. Callers must treat it
// as read-only; only the engine mutates it.
func (e *Engine) Booking() *model.Booking {
	return e.machine.Booking()
}

// Remaining exposes the advisory search countdown for display.
func (e *Engine) Remaining() int { return e.deadman.Remaining() }

// Cancel requests a user-initiated cancellation.
func (e *Engine) Cancel() { e.post(engineEvent{userCancel: true}) }

// ReportArrival reports the device-local dropoff-reached determination.
func (e *Engine) ReportArrival() { e.post(engineEvent{arrival: true}) }

// ConfirmPayment reports that the payment handoff completed.
func (e *Engine) ConfirmPayment() { e.post(engineEvent{paymentDone: true}) }

// Done is closed once the flow has reached a terminal state.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Run drives the flow to a terminal state. It binds the channel, starts the
// search and then serializes every event on this goroutine.
func (e *Engine) Run(ctx context.Context) error {
	b := e.machine.Booking()

	if err := e.ch.Bind(b.ID); err != nil {
		return fmt.Errorf("bind channel: %w", err)
	}

	e.mu.Lock()
	err := e.machine.Apply(model.BookingSearchingForDriver)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.deadman.Start(int(e.opts.SearchDeadline / time.Second))

	if err := e.pool.Request(e.ch, b.Pickup); err != nil {
		e.shutdown()
		return err
	}

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()

		case evt := <-e.events:
			e.mu.Lock()
			e.handle(evt)
			terminal := e.machine.Status().Terminal()
			e.mu.Unlock()

			if terminal {
				e.shutdown()
				return nil
			}
		}
	}
}

// handle processes one event; runs under e.mu on the Run goroutine.
func (e *Engine) handle(evt engineEvent) {
	b := e.machine.Booking()

	switch {
	case evt.hasCands:
		if !e.machine.Status().Searching() {
			return
		}
		if err := e.solicitor.OnCandidates(evt.candidates); err != nil && !errors.Is(err, pool.ErrNoCandidates) {
			logger.Error("solicit_failed", "failed to solicit candidate", "", b.ID, err.Error())
		}

	case evt.rideRequest != nil:
		p := *evt.rideRequest
		if p.Status == "accepted" {
			if err := e.solicitor.OnAccepted(p); err != nil {
				var ite *lifecycle.InvalidTransitionError
				if errors.As(err, &ite) {
					// inconsistent acceptance, dropped above; nothing to do
					return
				}
				logger.Error("acceptance_failed", "failed to apply acceptance", "", b.ID, err.Error())
				return
			}
			// accepted: the search is over, the countdown comes down
			e.deadman.Cancel()
			logger.Info("booking_confirmed",
				fmt.Sprintf("driver %d confirmed, pickup code ready", p.DriverID), "", b.ID)
		} else {
			if err := e.solicitor.OnRejected(p.DriverID); err != nil && !errors.Is(err, pool.ErrNoCandidates) {
				logger.Error("resolicit_failed", "failed to advance to next candidate", "", b.ID, err.Error())
			}
		}

	case evt.rideStatus != nil:
		p := *evt.rideStatus
		if p.BookingID != b.ID {
			logger.Warn("ride_status_mismatch",
				fmt.Sprintf("ride status for booking %s ignored", p.BookingID), "", b.ID, "")
			return
		}
		if p.Status != "ride_started" {
			logger.Debug("ride_status_ignored", "unhandled ride status "+p.Status, "", b.ID)
			return
		}
		if err := e.machine.Apply(model.BookingInTransit); err != nil {
			logger.Warn("ride_started_rejected", "ride_started push out of order", "", b.ID, err.Error())
		}

	case evt.timeoutFor != nil:
		if err := e.solicitor.OnTimeout(*evt.timeoutFor); err != nil && !errors.Is(err, pool.ErrNoCandidates) {
			logger.Error("resolicit_failed", "failed to advance after timeout", "", b.ID, err.Error())
		}

	case evt.deadlineHit:
		if !e.machine.Status().Searching() {
			return
		}
		e.solicitor.Stop()
		if err := e.machine.Apply(model.BookingExpired); err != nil {
			logger.Warn("expire_rejected", "deadline expiry out of order", "", b.ID, err.Error())
			return
		}
		// tell the server the search was abandoned so drivers stop
		// being considered for it
		e.notifyCancel("Booking expired")

	case evt.userCancel:
		if !e.machine.CanApply(model.BookingCancelPending) {
			logger.Warn("cancel_rejected",
				fmt.Sprintf("cancel not allowed from %s", e.machine.Status()), "", b.ID, "")
			return
		}
		if err := e.machine.Apply(model.BookingCancelPending); err != nil {
			return
		}
		e.solicitor.Stop()
		e.deadman.Cancel()
		e.notifyCancel("Trip cancelled")
		e.cancelTimer = time.AfterFunc(e.opts.CancelAckWait, func() {
			e.post(engineEvent{cancelExpiry: true})
		})

	case evt.cancelAck != nil:
		if evt.cancelAck.BookingID != b.ID {
			return
		}
		e.finishCancel("cancellation acknowledged by server")

	case evt.cancelExpiry:
		e.finishCancel("cancellation ack wait lapsed, cancelling locally")

	case evt.arrival:
		if err := e.machine.Apply(model.BookingPaymentPending); err != nil {
			logger.Warn("arrival_rejected", "dropoff report out of order", "", b.ID, err.Error())
		}

	case evt.paymentDone:
		if err := e.machine.Apply(model.BookingCompleted); err != nil {
			logger.Warn("payment_rejected", "payment confirmation out of order", "", b.ID, err.Error())
		}
	}
}

func (e *Engine) notifyCancel(message string) {
	b := e.machine.Booking()
	if err := e.ch.Send(channel.EventCancelTrip, channel.CancelTripPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		Message:   message,
	}); err != nil {
		// best effort; local state advances regardless
		logger.Warn("cancel_notify_failed", "failed to send cancellation notice", "", b.ID, err.Error())
	}
}

func (e *Engine) finishCancel(reason string) {
	b := e.machine.Booking()
	if e.machine.Status() != model.BookingCancelPending {
		return
	}
	if e.cancelTimer != nil {
		e.cancelTimer.Stop()
		e.cancelTimer = nil
	}
	if err := e.machine.Apply(model.BookingCancelled); err != nil {
		logger.Error("cancel_failed", "failed to finish cancellation", "", b.ID, err.Error())
		return
	}
	logger.Info("booking_cancelled", reason, "", b.ID)
}

func (e *Engine) shutdown() {
	e.deadman.Cancel()

	e.mu.Lock()
	e.solicitor.Stop()
	if e.cancelTimer != nil {
		e.cancelTimer.Stop()
		e.cancelTimer = nil
	}
	e.mu.Unlock()

	select {
	case <-e.done:
	default:
		close(e.done)
	}
	_ = e.ch.Close()
}
