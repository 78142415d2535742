package main

import (
	"log"
	"os"

	"delivery-booking/internal/common/config"
	"delivery-booking/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger.SetServiceName("booking-client")
	logger.SetLevel(cfg.Log.Level)

	requestPath := "booking.json"
	if len(os.Args) > 1 {
		requestPath = os.Args[1]
	}

	if err := run(cfg, requestPath); err != nil {
		log.Fatalf("booking flow error: %v", err)
	}
}
