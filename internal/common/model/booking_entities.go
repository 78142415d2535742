package model

import "time"

// Location is a named point used for both pickup and dropoff.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DriverCandidate is one nearby driver offered by the server for a search.
// Candidates live only for the duration of a search and are never persisted.
type DriverCandidate struct {
	DriverID     int64        `json:"driver_id"`
	VehicleClass VehicleClass `json:"vehicle_type"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
}

// DriverInfo is the accepted driver's contact card, populated from the
// acceptance push and immutable afterwards.
type DriverInfo struct {
	DriverID      int64        `json:"driver_id"`
	Name          string       `json:"driver_name"`
	VehicleClass  VehicleClass `json:"vehicle_type"`
	VehicleNumber string       `json:"vehicle_number"`
	Phone         string       `json:"phone"`
}

type Booking struct {
	ID            string        `json:"id"`
	UserID        int64         `json:"user_id"`
	Pickup        Location      `json:"pickup"`
	Dropoff       Location      `json:"dropoff"`
	VehicleClass  VehicleClass  `json:"vehicle_class"`
	GoodsType     string        `json:"goods_type"`
	TotalPrice    float64       `json:"total_price"`
	SenderName    string        `json:"sender_name"`
	SenderPhone   string        `json:"sender_phone"`
	ReceiverName  string        `json:"receiver_name"`
	ReceiverPhone string        `json:"receiver_phone"`
	Status        BookingStatus `json:"status"`
	Driver        *DriverInfo   `json:"driver,omitempty"`
	OTP           string        `json:"otp"`
	CreatedAt     time.Time     `json:"created_at"`
}
