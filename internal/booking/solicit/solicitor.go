package solicit

import (
	"errors"
	"fmt"
	"time"

	"delivery-booking/internal/booking/lifecycle"
	"delivery-booking/internal/booking/pool"
	"delivery-booking/internal/channel"
	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"
)

var ErrNotSearching = errors.New("booking is not in the search phase")

// Sender is the outbound half of the realtime channel.
type Sender interface {
	Send(event string, payload any) error
}

// TimeoutFunc is invoked when a solicited driver fails to answer in time.
// The flow engine routes it back onto its event loop, so Solicitor methods
// are only ever entered from one goroutine.
type TimeoutFunc func(driverID int64)

// Solicitor requests candidates one at a time, in pool order. At most one
// solicitation is outstanding; a rejection or timeout advances the cursor
// and emits the next request.
type Solicitor struct {
	booking   *model.Booking
	machine   *lifecycle.Machine
	pool      *pool.Pool
	sender    Sender
	timeout   time.Duration
	onTimeout TimeoutFunc

	timer    *time.Timer
	target   model.DriverCandidate
	active   bool
	received bool // at least one candidate push seen
}

func New(b *model.Booking, m *lifecycle.Machine, p *pool.Pool, sender Sender, timeout time.Duration, onTimeout TimeoutFunc) *Solicitor {
	return &Solicitor{
		booking:   b,
		machine:   m,
		pool:      p,
		sender:    sender,
		timeout:   timeout,
		onTimeout: onTimeout,
	}
}

// Target returns the driver currently solicited, if any.
func (s *Solicitor) Target() (model.DriverCandidate, bool) {
	return s.target, s.active
}

// OnCandidates installs a freshly pushed candidate set and solicits the
// next driver if no request is outstanding.
func (s *Solicitor) OnCandidates(drivers []model.DriverCandidate) error {
	s.pool.Replace(drivers)
	s.received = true
	if s.active {
		return nil
	}
	return s.solicitNext()
}

// OnAccepted handles an acceptance push. The acceptance must name the
// driver currently solicited; anything else is inconsistent input and is
// rejected without touching the state machine's target.
func (s *Solicitor) OnAccepted(p channel.RideRequestStatusPayload) error {
	if !s.active || p.DriverID != s.target.DriverID {
		logger.Warn("acceptance_mismatch",
			fmt.Sprintf("acceptance from driver %d does not match solicited driver", p.DriverID),
			"", s.booking.ID, "")
		return &lifecycle.InvalidTransitionError{
			From: s.machine.Status(),
			To:   model.BookingAccepted,
		}
	}

	s.stopTimer()
	s.active = false

	if err := s.machine.Apply(model.BookingAccepted); err != nil {
		return err
	}
	if err := s.machine.AssignDriver(model.DriverInfo{
		DriverID:      p.DriverID,
		Name:          p.DriverName,
		VehicleClass:  p.VehicleType,
		VehicleNumber: p.VehicleNumber,
		Phone:         p.Phone,
	}); err != nil {
		return err
	}
	return s.machine.Apply(model.BookingConfirmed)
}

// OnRejected handles an explicit rejection from the solicited driver and
// moves on to the next candidate. Rejections from other drivers are stale
// and ignored.
func (s *Solicitor) OnRejected(driverID int64) error {
	if !s.active || driverID != s.target.DriverID {
		logger.Debug("stale_rejection",
			fmt.Sprintf("ignoring rejection from driver %d", driverID), "", s.booking.ID)
		return nil
	}
	logger.Info("driver_rejected",
		fmt.Sprintf("driver %d rejected the booking", driverID), "", s.booking.ID)
	return s.advance()
}

// OnTimeout handles the per-request timer lapsing with no answer from the
// solicited driver.
func (s *Solicitor) OnTimeout(driverID int64) error {
	if !s.active || driverID != s.target.DriverID {
		return nil
	}
	logger.Info("solicitation_timeout",
		fmt.Sprintf("driver %d did not answer in time", driverID), "", s.booking.ID)
	return s.advance()
}

// Stop tears down any outstanding request; called when the flow leaves the
// search phase for any reason.
func (s *Solicitor) Stop() {
	s.stopTimer()
	s.active = false
}

func (s *Solicitor) advance() error {
	s.stopTimer()
	s.active = false
	s.pool.Advance()
	return s.solicitNext()
}

func (s *Solicitor) solicitNext() error {
	if !s.machine.Status().Searching() {
		return ErrNotSearching
	}

	candidate, ok := s.pool.Next()
	if !ok {
		if !s.received {
			// nothing pushed yet, keep waiting for candidates
			return nil
		}
		logger.Warn("pool_exhausted",
			"no drivers available for the requested vehicle class", "", s.booking.ID, "")
		if err := s.machine.Apply(model.BookingNoDriverAvailable); err != nil {
			return err
		}
		return pool.ErrNoCandidates
	}

	b := s.booking
	if err := s.sender.Send(channel.EventRequestBooking, channel.BookingRequestPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		DriverID:  candidate.DriverID,
		PickupAddress: channel.AddressPayload{
			Latitude:  b.Pickup.Latitude,
			Longitude: b.Pickup.Longitude,
			Name:      b.Pickup.Name,
		},
		DropoffAddress: channel.AddressPayload{
			Latitude:  b.Dropoff.Latitude,
			Longitude: b.Dropoff.Longitude,
			Name:      b.Dropoff.Name,
		},
		TotalPrice:    b.TotalPrice,
		VehicleName:   string(b.VehicleClass),
		SenderName:    b.SenderName,
		SenderPhone:   b.SenderPhone,
		ReceiverName:  b.ReceiverName,
		ReceiverPhone: b.ReceiverPhone,
		OTP:           b.OTP,
	}); err != nil {
		return fmt.Errorf("solicit driver %d: %w", candidate.DriverID, err)
	}

	if err := s.machine.Apply(model.BookingRequestPending); err != nil {
		return err
	}

	s.target = candidate
	s.active = true
	logger.Info("driver_solicited",
		fmt.Sprintf("requested driver %d (%s)", candidate.DriverID, candidate.VehicleClass),
		"", b.ID)

	driverID := candidate.DriverID
	if s.onTimeout != nil && s.timeout > 0 {
		s.timer = time.AfterFunc(s.timeout, func() {
			s.onTimeout(driverID)
		})
	}
	return nil
}

func (s *Solicitor) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
