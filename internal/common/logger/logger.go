package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service"`
	Action    string `json:"action"`
	Message   string `json:"message"`
	Hostname  string `json:"hostname"`
	RequestID string `json:"request_id"`
	BookingID string `json:"booking_id,omitempty"`
	Error     *struct {
		Msg string `json:"msg"`
	} `json:"error,omitempty"`
}

var hostname, _ = os.Hostname()

var serviceName = "booking-client"

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var minLevel = levelInfo

func SetServiceName(name string) {
	serviceName = name
}

// SetLevel sets the minimum emitted level: DEBUG, INFO, WARN or ERROR.
func SetLevel(level string) {
	switch level {
	case "DEBUG":
		minLevel = levelDebug
	case "WARN":
		minLevel = levelWarn
	case "ERROR":
		minLevel = levelError
	default:
		minLevel = levelInfo
	}
}

func Info(action, message, requestID, bookingID string) {
	if minLevel > levelInfo {
		return
	}
	output(LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "INFO",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		BookingID: bookingID,
	})
}

func Debug(action, message, requestID, bookingID string) {
	if minLevel > levelDebug {
		return
	}
	output(LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "DEBUG",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		BookingID: bookingID,
	})
}

func Warn(action, message, requestID, bookingID, errMsg string) {
	if minLevel > levelWarn {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "WARN",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		BookingID: bookingID,
	}
	if errMsg != "" {
		entry.Error = &struct {
			Msg string `json:"msg"`
		}{Msg: errMsg}
	}
	output(entry)
}

func Error(action, message, requestID, bookingID, errMsg string) {
	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "ERROR",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		BookingID: bookingID,
	}
	entry.Error = &struct {
		Msg string `json:"msg"`
	}{Msg: errMsg}
	output(entry)
}

func output(entry LogEntry) {
	jsonData, _ := json.Marshal(entry)
	fmt.Println(string(jsonData))
}
