package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"delivery-booking/internal/booking/otp"
	"delivery-booking/internal/booking/rest"
	"delivery-booking/internal/booking/service"
	"delivery-booking/internal/channel"
	"delivery-booking/internal/common/auth"
	"delivery-booking/internal/common/config"
	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"
)

// deliveryRequest is the booking.json input: everything the review screen
// collects before the flow starts.
type deliveryRequest struct {
	VehicleID     int64          `json:"vehicle_id"`
	VehicleName   string         `json:"vehicle_name"`
	VehicleImage  string         `json:"vehicle_image"`
	GoodsType     string         `json:"goods_type"`
	TotalPrice    float64        `json:"total_price"`
	Pickup        model.Location `json:"pickup"`
	Dropoff       model.Location `json:"dropoff"`
	SenderName    string         `json:"sender_name"`
	SenderPhone   string         `json:"sender_phone"`
	ReceiverName  string         `json:"receiver_name"`
	ReceiverPhone string         `json:"receiver_phone"`
}

func run(cfg *config.Config, requestPath string) error {
	raw, err := os.ReadFile(requestPath)
	if err != nil {
		return fmt.Errorf("read delivery request: %w", err)
	}
	var req deliveryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse delivery request: %w", err)
	}
	if req.GoodsType == "" {
		req.GoodsType = "General • Loose"
	}

	userID, err := auth.UserIDFromToken(cfg.API.Token)
	if err != nil {
		return fmt.Errorf("user token: %w", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("generate pickup code: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restClient := rest.NewClient(cfg.API.BaseURL, cfg.API.Token)
	createReq := rest.CreateBookingRequest{
		UserID:         userID,
		VehicleID:      req.VehicleID,
		PickupAddress:  req.Pickup.Name,
		DropoffAddress: req.Dropoff.Name,
		GoodsType:      req.GoodsType,
		TotalPrice:     req.TotalPrice,
		SenderName:     req.SenderName,
		SenderPhone:    req.SenderPhone,
		ReceiverName:   req.ReceiverName,
		ReceiverPhone:  req.ReceiverPhone,
		VehicleName:    req.VehicleName,
		VehicleImage:   req.VehicleImage,
	}
	bookingID, err := restClient.CreateBooking(ctx, createReq)
	if err != nil {
		return err
	}

	booking := rest.NewBooking(bookingID, userID, createReq, req.Pickup, req.Dropoff, code, time.Now())

	ch, err := channel.Open(cfg.Channel.SocketURL, cfg.API.Token,
		time.Duration(cfg.Channel.DialTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	engine := service.NewEngine(booking, ch, service.Options{
		SearchDeadline: time.Duration(cfg.Booking.SearchDeadlineSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.Booking.RequestTimeoutSeconds) * time.Second,
		CancelAckWait:  time.Duration(cfg.Booking.CancelAckSeconds) * time.Second,
	})
	engine.OnStatusChange(func(from, to model.BookingStatus) {
		if to == model.BookingConfirmed {
			// the pickup code becomes user-visible here and never changes
			logger.Info("otp_visible",
				"pickup code: "+strings.Join(otp.Digits(booking.OTP), " "), "", booking.ID)
		}
	})

	// user actions arrive on stdin: cancel, arrived, paid
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch strings.TrimSpace(scanner.Text()) {
			case "cancel":
				engine.Cancel()
			case "arrived":
				engine.ReportArrival()
			case "paid":
				engine.ConfirmPayment()
			}
		}
	}()

	if err := engine.Run(ctx); err != nil {
		return fmt.Errorf("booking flow: %w", err)
	}

	logger.Info("flow_finished",
		fmt.Sprintf("booking finished with status %s", engine.Status()), "", booking.ID)
	return nil
}
