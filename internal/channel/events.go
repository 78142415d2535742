package channel

import (
	"encoding/json"
	"fmt"

	"delivery-booking/internal/common/model"
)

// Event names on the booking channel. Names are fixed by the backend;
// the client treats the set as closed.
const (
	EventAssociateBooking  = "associateSocketWithBooking"
	EventRequestNearby     = "requestNearbyDrivers"
	EventNearbyDrivers     = "nearbyDrivers"
	EventRequestBooking    = "REQUEST_BOOKING"
	EventRideRequestStatus = "rideRequestStatus"
	EventRideStatusUpdate  = "rideStatusUpdate"
	EventCancelTrip        = "cancelTrip"
	EventCancelAck         = "cancelAck"
)

// Envelope is the wire framing for every channel message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type AssociateBookingPayload struct {
	BookingID string `json:"bookingId"`
	SocketID  string `json:"socketId"`
}

type RequestNearbyPayload struct {
	VehicleType model.VehicleClass `json:"vehicle_type"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
}

type NearbyDriversPayload struct {
	Drivers []model.DriverCandidate
}

type AddressPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

type BookingRequestPayload struct {
	BookingID      string         `json:"bookingId"`
	UserID         int64          `json:"userId"`
	DriverID       int64          `json:"driver_id"`
	PickupAddress  AddressPayload `json:"pickupAddress"`
	DropoffAddress AddressPayload `json:"dropoffAddress"`
	TotalPrice     float64        `json:"totalPrice"`
	VehicleName    string         `json:"vehicleName"`
	SenderName     string         `json:"sender_name"`
	SenderPhone    string         `json:"sender_phone"`
	ReceiverName   string         `json:"receiver_name"`
	ReceiverPhone  string         `json:"receiver_phone"`
	OTP            string         `json:"otp"`
}

type RideRequestStatusPayload struct {
	Status        string             `json:"status"`
	DriverID      int64              `json:"driver_id"`
	DriverName    string             `json:"driver_name"`
	VehicleType   model.VehicleClass `json:"vehicle_type"`
	VehicleNumber string             `json:"vehicle_number"`
	Phone         string             `json:"phone"`
}

type RideStatusUpdatePayload struct {
	BookingID     string             `json:"bookingId"`
	DriverID      int64              `json:"driver_id"`
	Status        string             `json:"status"`
	DriverName    string             `json:"driver_name"`
	VehicleType   model.VehicleClass `json:"vehicle_type"`
	VehicleNumber string             `json:"vehicle_number"`
}

type CancelTripPayload struct {
	BookingID string `json:"bookingId"`
	UserID    int64  `json:"userId"`
	Message   string `json:"message"`
}

type CancelAckPayload struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

// DecodeEvent validates and decodes a server push into its typed payload.
// Unknown event names and malformed payloads are rejected here so nothing
// untyped ever reaches the state machine.
func DecodeEvent(env Envelope) (any, error) {
	switch env.Type {
	case EventNearbyDrivers:
		var drivers []model.DriverCandidate
		if err := json.Unmarshal(env.Data, &drivers); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return NearbyDriversPayload{Drivers: drivers}, nil

	case EventRideRequestStatus:
		var p RideRequestStatusPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return p, nil

	case EventRideStatusUpdate:
		var p RideStatusUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return p, nil

	case EventCancelAck:
		var p CancelAckPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown event %q", env.Type)
	}
}
