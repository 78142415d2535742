package model

type VehicleClass string

const (
	VehicleBike         VehicleClass = "Bike"
	VehicleThreeWheeler VehicleClass = "3-wheeler"
	VehicleFourWheeler  VehicleClass = "4-wheeler"
	VehicleTruck        VehicleClass = "Truck"
)

type BookingStatus string

const (
	BookingCreated            BookingStatus = "CREATED"
	BookingSearchingForDriver BookingStatus = "SEARCHING_FOR_DRIVER"
	BookingRequestPending     BookingStatus = "REQUEST_PENDING"
	BookingAccepted           BookingStatus = "ACCEPTED"
	BookingConfirmed          BookingStatus = "CONFIRMED"
	BookingInTransit          BookingStatus = "IN_TRANSIT"
	BookingPaymentPending     BookingStatus = "PAYMENT_PENDING"
	BookingCompleted          BookingStatus = "COMPLETED"
	BookingNoDriverAvailable  BookingStatus = "NO_DRIVER_AVAILABLE"
	BookingCancelPending      BookingStatus = "CANCEL_PENDING"
	BookingCancelled          BookingStatus = "CANCELLED"
	BookingExpired            BookingStatus = "EXPIRED"
)

// Terminal reports whether the flow is finished and the booking can be
// dropped from memory.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingNoDriverAvailable, BookingCancelled, BookingExpired:
		return true
	}
	return false
}

// Searching reports whether the booking is still in the driver-search phase,
// i.e. the global search deadline is still armed.
func (s BookingStatus) Searching() bool {
	return s == BookingSearchingForDriver || s == BookingRequestPending
}
