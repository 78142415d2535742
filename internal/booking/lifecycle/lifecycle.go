package lifecycle

import (
	"errors"
	"fmt"

	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"
)

// InvalidTransitionError marks an incoming event that does not match any
// edge from the current state. Such events are dropped and logged, never
// applied.
type InvalidTransitionError struct {
	From model.BookingStatus
	To   model.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

var ErrDriverAssigned = errors.New("driver already assigned")

// transitions is the full directed graph of booking statuses. Anything not
// listed here is rejected.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingCreated: {
		model.BookingSearchingForDriver,
	},
	model.BookingSearchingForDriver: {
		model.BookingRequestPending,
		model.BookingNoDriverAvailable,
		model.BookingCancelPending,
		model.BookingExpired,
	},
	model.BookingRequestPending: {
		model.BookingRequestPending, // next candidate, same phase
		model.BookingAccepted,
		model.BookingNoDriverAvailable,
		model.BookingCancelPending,
		model.BookingExpired,
	},
	model.BookingAccepted: {
		model.BookingConfirmed,
	},
	model.BookingConfirmed: {
		model.BookingInTransit,
		model.BookingCancelPending,
	},
	model.BookingInTransit: {
		model.BookingPaymentPending,
		model.BookingCancelPending,
	},
	model.BookingPaymentPending: {
		model.BookingCompleted,
	},
	model.BookingCancelPending: {
		model.BookingCancelled,
	},
}

// ChangeFunc observes committed transitions, e.g. to refresh a screen.
type ChangeFunc func(from, to model.BookingStatus)

// Machine owns the canonical booking status. All mutation goes through
// Apply; callers must drive it from a single goroutine (the flow engine's
// event loop).
type Machine struct {
	booking  *model.Booking
	onChange ChangeFunc
}

func New(b *model.Booking) *Machine {
	return &Machine{booking: b}
}

func (m *Machine) OnChange(fn ChangeFunc) { m.onChange = fn }

func (m *Machine) Status() model.BookingStatus { return m.booking.Status }

func (m *Machine) Booking() *model.Booking { return m.booking }

// CanApply reports whether the transition is an edge of the status graph.
func (m *Machine) CanApply(to model.BookingStatus) bool {
	for _, next := range transitions[m.booking.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Apply commits a transition, or rejects it with InvalidTransitionError if
// the edge is not in the graph.
func (m *Machine) Apply(to model.BookingStatus) error {
	from := m.booking.Status
	if !m.CanApply(to) {
		logger.Warn("transition_rejected",
			fmt.Sprintf("rejected transition %s -> %s", from, to), "", m.booking.ID, "")
		return &InvalidTransitionError{From: from, To: to}
	}

	m.booking.Status = to
	logger.Info("transition_applied",
		fmt.Sprintf("booking status %s -> %s", from, to), "", m.booking.ID)
	if m.onChange != nil {
		m.onChange(from, to)
	}
	return nil
}

// AssignDriver records the accepted driver. The assignment happens exactly
// once, on acceptance; later writes are refused.
func (m *Machine) AssignDriver(info model.DriverInfo) error {
	if m.booking.Driver != nil {
		return ErrDriverAssigned
	}
	m.booking.Driver = &info
	return nil
}
