package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"
)

// Client talks to the booking-creation REST collaborator.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateBookingRequest is the POST /vehicle-booking body. Status is always
// submitted as "pending"; the server owns every later status change.
type CreateBookingRequest struct {
	UserID         int64   `json:"user_id"`
	VehicleID      int64   `json:"vehicle_id"`
	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	GoodsType      string  `json:"goods_type"`
	TotalPrice     float64 `json:"total_price"`
	SenderName     string  `json:"sender_name"`
	SenderPhone    string  `json:"sender_phone"`
	ReceiverName   string  `json:"receiver_name"`
	ReceiverPhone  string  `json:"receiver_phone"`
	VehicleName    string  `json:"vehicle_name"`
	VehicleImage   string  `json:"vehicle_image"`
	Status         string  `json:"status"`
}

type createBookingResponse struct {
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
	Message string `json:"message"`
}

// CreateBooking posts the booking and returns the server-assigned numeric
// id, stringified, as the canonical booking identifier.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (string, error) {
	req.Status = "pending"

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal booking request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/vehicle-booking", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build booking request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read booking response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("booking_create_failed",
			fmt.Sprintf("booking creation returned %d", resp.StatusCode), "", "", string(raw))
		return "", fmt.Errorf("create booking: status %d", resp.StatusCode)
	}

	var parsed createBookingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse booking response: %w", err)
	}
	if parsed.Data.ID == 0 {
		return "", fmt.Errorf("booking response missing id")
	}

	id := strconv.FormatInt(parsed.Data.ID, 10)
	logger.Info("booking_created", "booking created", "", id)
	return id, nil
}

// NewBooking assembles the in-memory Booking handed to the flow engine once
// creation succeeded. The OTP must already be generated; it is threaded
// through unchanged from here on.
func NewBooking(id string, userID int64, req CreateBookingRequest, pickup, dropoff model.Location, otp string, createdAt time.Time) *model.Booking {
	return &model.Booking{
		ID:            id,
		UserID:        userID,
		Pickup:        pickup,
		Dropoff:       dropoff,
		VehicleClass:  model.VehicleClass(req.VehicleName),
		GoodsType:     req.GoodsType,
		TotalPrice:    req.TotalPrice,
		SenderName:    req.SenderName,
		SenderPhone:   req.SenderPhone,
		ReceiverName:  req.ReceiverName,
		ReceiverPhone: req.ReceiverPhone,
		Status:        model.BookingCreated,
		OTP:           otp,
		CreatedAt:     createdAt,
	}
}
