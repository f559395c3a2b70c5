package services

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/skip2/go-qrcode"

	"bount3-backend/core/escrow"
	"bount3-backend/models"
)

// EventService fans escrow events out to streaming consumers.
type EventService struct {
	eventChan chan escrow.Event
}

// NewEventService creates a new event service
func NewEventService() *EventService {
	return &EventService{
		eventChan: make(chan escrow.Event, 100),
	}
}

// GetEventChannel returns the event channel for broadcasting
func (s *EventService) GetEventChannel() chan escrow.Event {
	return s.eventChan
}

// BroadcastEvent broadcasts an event to all listeners
func (s *EventService) BroadcastEvent(evt escrow.Event) {
	select {
	case s.eventChan <- evt:
	default:
		// Channel full, drop event
	}
}

// QRCodeService handles QR code generation
type QRCodeService struct{}

// NewQRCodeService creates a new QR code service
func NewQRCodeService() *QRCodeService {
	return &QRCodeService{}
}

// GenerateQRCode generates a funding QR code for the requested address and amount
func (s *QRCodeService) GenerateQRCode(req models.QRCodeRequest) ([]byte, error) {
	uri := req.Address
	if req.Amount != "" {
		uri += "?amount=" + req.Amount
	}
	qr, err := qrcode.New(uri, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(256)); err != nil {
		return nil, fmt.Errorf("failed to encode QR code to PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// HealthService handles health check business logic
type HealthService struct{}

// NewHealthService creates a new health service
func NewHealthService() *HealthService {
	return &HealthService{}
}

// GetHealthStatus returns current health status
func (s *HealthService) GetHealthStatus() *models.HealthResponse {
	return &models.HealthResponse{
		Status:    "ok",
		Message:   "bount3 escrow backend running",
		Timestamp: time.Now().Unix(),
	}
}
