package lifecycle

import (
	"testing"

	"delivery-booking/internal/common/model"

	"github.com/stretchr/testify/require"
)

var allStatuses = []model.BookingStatus{
	model.BookingCreated,
	model.BookingSearchingForDriver,
	model.BookingRequestPending,
	model.BookingAccepted,
	model.BookingConfirmed,
	model.BookingInTransit,
	model.BookingPaymentPending,
	model.BookingCompleted,
	model.BookingNoDriverAvailable,
	model.BookingCancelPending,
	model.BookingCancelled,
	model.BookingExpired,
}

func newMachine(status model.BookingStatus) *Machine {
	return New(&model.Booking{ID: "42", Status: status})
}

// For every state, every status not on an outgoing edge must be rejected
// and must leave the state untouched.
func TestTransitionTableIsExhaustive(t *testing.T) {
	for _, from := range allStatuses {
		allowed := map[model.BookingStatus]bool{}
		for _, to := range transitions[from] {
			allowed[to] = true
		}

		for _, to := range allStatuses {
			m := newMachine(from)
			err := m.Apply(to)
			if allowed[to] {
				require.NoError(t, err, "%s -> %s should be allowed", from, to)
				require.Equal(t, to, m.Status())
			} else {
				require.Error(t, err, "%s -> %s should be rejected", from, to)
				var ite *InvalidTransitionError
				require.ErrorAs(t, err, &ite)
				require.Equal(t, from, m.Status(), "rejected transition must not mutate state")
			}
		}
	}
}

func TestHappyPath(t *testing.T) {
	m := newMachine(model.BookingCreated)
	path := []model.BookingStatus{
		model.BookingSearchingForDriver,
		model.BookingRequestPending,
		model.BookingRequestPending, // next candidate
		model.BookingAccepted,
		model.BookingConfirmed,
		model.BookingInTransit,
		model.BookingPaymentPending,
		model.BookingCompleted,
	}
	for _, to := range path {
		require.NoError(t, m.Apply(to))
	}
	require.True(t, m.Status().Terminal())
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	for _, from := range allStatuses {
		if !from.Terminal() {
			continue
		}
		require.Empty(t, transitions[from], "%s is terminal", from)
	}
}

func TestOnChangeObservesCommittedTransitionsOnly(t *testing.T) {
	m := newMachine(model.BookingSearchingForDriver)

	var got [][2]model.BookingStatus
	m.OnChange(func(from, to model.BookingStatus) {
		got = append(got, [2]model.BookingStatus{from, to})
	})

	require.Error(t, m.Apply(model.BookingCompleted))
	require.Empty(t, got)

	require.NoError(t, m.Apply(model.BookingRequestPending))
	require.Equal(t, [][2]model.BookingStatus{
		{model.BookingSearchingForDriver, model.BookingRequestPending},
	}, got)
}

func TestAssignDriverHappensOnce(t *testing.T) {
	m := newMachine(model.BookingRequestPending)
	info := model.DriverInfo{DriverID: 7, Name: "Ravi"}

	require.NoError(t, m.AssignDriver(info))
	require.Equal(t, &info, m.Booking().Driver)

	err := m.AssignDriver(model.DriverInfo{DriverID: 8})
	require.ErrorIs(t, err, ErrDriverAssigned)
	require.Equal(t, int64(7), m.Booking().Driver.DriverID)
}
