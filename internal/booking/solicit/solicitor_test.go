package solicit

import (
	"errors"
	"testing"
	"time"

	"delivery-booking/internal/booking/lifecycle"
	"delivery-booking/internal/booking/pool"
	"delivery-booking/internal/channel"
	"delivery-booking/internal/common/model"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	requests []channel.BookingRequestPayload
	fail     error
}

func (r *recordingSender) Send(event string, payload any) error {
	if r.fail != nil {
		return r.fail
	}
	if event == channel.EventRequestBooking {
		r.requests = append(r.requests, payload.(channel.BookingRequestPayload))
	}
	return nil
}

func newFixture(t *testing.T) (*Solicitor, *lifecycle.Machine, *recordingSender) {
	t.Helper()
	booking := &model.Booking{
		ID:           "42",
		UserID:       7,
		VehicleClass: model.VehicleBike,
		Pickup:       model.Location{Name: "Warehouse", Latitude: 12.9, Longitude: 77.6},
		Dropoff:      model.Location{Name: "Market", Latitude: 13.0, Longitude: 77.7},
		TotalPrice:   250,
		OTP:          "0042",
		Status:       model.BookingSearchingForDriver,
	}
	m := lifecycle.New(booking)
	p := pool.New(booking.VehicleClass)
	sender := &recordingSender{}
	s := New(booking, m, p, sender, 0, nil)
	return s, m, sender
}

func bike(id int64) model.DriverCandidate {
	return model.DriverCandidate{DriverID: id, VehicleClass: model.VehicleBike}
}

func TestSolicitsCandidatesSequentially(t *testing.T) {
	s, m, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1), bike(2), bike(3)}))
	require.Len(t, sender.requests, 1)
	require.Equal(t, model.BookingRequestPending, m.Status())

	target, active := s.Target()
	require.True(t, active)
	require.Equal(t, int64(1), target.DriverID)
}

func TestExhaustionAfterAllRejections(t *testing.T) {
	s, m, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1), bike(2), bike(3)}))
	require.NoError(t, s.OnRejected(1))
	require.NoError(t, s.OnRejected(2))
	err := s.OnRejected(3)
	require.ErrorIs(t, err, pool.ErrNoCandidates)

	// exactly N sequential requests, then no driver available
	require.Len(t, sender.requests, 3)
	require.Equal(t, int64(1), sender.requests[0].DriverID)
	require.Equal(t, int64(2), sender.requests[1].DriverID)
	require.Equal(t, int64(3), sender.requests[2].DriverID)
	require.Equal(t, model.BookingNoDriverAvailable, m.Status())
}

func TestVehicleClassFilterSkipsOtherClasses(t *testing.T) {
	s, _, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{
		bike(1),
		{DriverID: 2, VehicleClass: model.VehicleTruck},
		bike(3),
	}))
	require.NoError(t, s.OnRejected(1))
	err := s.OnRejected(3)
	require.ErrorIs(t, err, pool.ErrNoCandidates)

	// solicitation order is [1, 3]; the truck is never requested
	require.Len(t, sender.requests, 2)
	require.Equal(t, int64(1), sender.requests[0].DriverID)
	require.Equal(t, int64(3), sender.requests[1].DriverID)
}

func TestAcceptanceConfirmsBooking(t *testing.T) {
	s, m, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{
		bike(1),
		{DriverID: 2, VehicleClass: model.VehicleTruck},
		bike(3),
	}))
	require.NoError(t, s.OnRejected(1))
	require.NoError(t, s.OnAccepted(channel.RideRequestStatusPayload{
		Status:        "accepted",
		DriverID:      3,
		DriverName:    "Ravi",
		VehicleType:   model.VehicleBike,
		VehicleNumber: "KA-01-1234",
		Phone:         "9999999999",
	}))

	require.Equal(t, model.BookingConfirmed, m.Status())
	require.NotNil(t, m.Booking().Driver)
	require.Equal(t, int64(3), m.Booking().Driver.DriverID)
	require.Equal(t, "Ravi", m.Booking().Driver.Name)

	// cursor history shows exactly two solicitations
	require.Len(t, sender.requests, 2)
}

func TestAcceptanceFromWrongDriverIsRejected(t *testing.T) {
	s, m, _ := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1), bike(2)}))

	err := s.OnAccepted(channel.RideRequestStatusPayload{Status: "accepted", DriverID: 2})
	var ite *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &ite)

	// the solicitation to driver 1 stays outstanding
	require.Equal(t, model.BookingRequestPending, m.Status())
	target, active := s.Target()
	require.True(t, active)
	require.Equal(t, int64(1), target.DriverID)
	require.Nil(t, m.Booking().Driver)
}

func TestStaleRejectionIsIgnored(t *testing.T) {
	s, m, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1), bike(2)}))
	require.NoError(t, s.OnRejected(99))

	require.Len(t, sender.requests, 1)
	require.Equal(t, model.BookingRequestPending, m.Status())
}

func TestTimeoutAdvancesLikeRejection(t *testing.T) {
	s, _, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1), bike(2)}))
	require.NoError(t, s.OnTimeout(1))

	require.Len(t, sender.requests, 2)
	require.Equal(t, int64(2), sender.requests[1].DriverID)

	// a timeout for a driver no longer solicited is a no-op
	require.NoError(t, s.OnTimeout(1))
	require.Len(t, sender.requests, 2)
}

func TestEmptyEligibleSetEndsSearch(t *testing.T) {
	s, m, sender := newFixture(t)

	err := s.OnCandidates([]model.DriverCandidate{
		{DriverID: 2, VehicleClass: model.VehicleTruck},
	})
	require.ErrorIs(t, err, pool.ErrNoCandidates)
	require.Empty(t, sender.requests)
	require.Equal(t, model.BookingNoDriverAvailable, m.Status())
}

func TestRequestCarriesBookingDetailsAndOTP(t *testing.T) {
	s, _, sender := newFixture(t)

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1)}))
	require.Len(t, sender.requests, 1)

	req := sender.requests[0]
	require.Equal(t, "42", req.BookingID)
	require.Equal(t, int64(7), req.UserID)
	require.Equal(t, "Warehouse", req.PickupAddress.Name)
	require.Equal(t, "Market", req.DropoffAddress.Name)
	require.Equal(t, "Bike", req.VehicleName)
	require.Equal(t, "0042", req.OTP)
}

func TestSendFailureSurfaces(t *testing.T) {
	s, _, sender := newFixture(t)
	sender.fail = errors.New("socket gone")

	err := s.OnCandidates([]model.DriverCandidate{bike(1)})
	require.Error(t, err)
}

func TestPerRequestTimerFires(t *testing.T) {
	booking := &model.Booking{
		ID: "42", VehicleClass: model.VehicleBike,
		Status: model.BookingSearchingForDriver,
	}
	m := lifecycle.New(booking)
	p := pool.New(booking.VehicleClass)
	sender := &recordingSender{}

	timedOut := make(chan int64, 1)
	s := New(booking, m, p, sender, 5*time.Millisecond, func(driverID int64) {
		timedOut <- driverID
	})

	require.NoError(t, s.OnCandidates([]model.DriverCandidate{bike(1)}))

	select {
	case id := <-timedOut:
		require.Equal(t, int64(1), id)
	case <-time.After(time.Second):
		t.Fatal("per-request timeout never fired")
	}
}
