// Package protocol defines the realtime session wire contract: the event
// names exchanged with the mobile client and the structured error envelope.
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/catalog"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
)

// Client -> server events.
const (
	EventSetCartData  = "set-cart-data"
	EventScanCartQR   = "scan-cart-qr"
	EventStopScanning = "stop-cart-scanning"
	EventClearCart    = "clear-cart"
)

// Server -> client events.
const (
	EventCartDataSet         = "cart-data-set"
	EventCartConnected       = "cart-connected"
	EventProductsUpdate      = "products-update"
	EventProductStatesUpdate = "product-states-update"
	EventScanningStopped     = "scanning-stopped"
	EventCartCleared         = "cart-cleared"
	EventError               = "error"
)

// Stable error codes reported in error envelopes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeBadRequest   = "BAD_REQUEST"
	CodeInternal     = "INTERNAL"
)

// Message is the envelope for every frame on the realtime connection.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage pairs an event name with its payload before encoding.
type ServerMessage struct {
	Event   string
	Payload interface{}
}

// ErrorPayload is emitted for every failed command or scan. The connection
// and any live subscription survive the error.
type ErrorPayload struct {
	Success bool   `json:"success"`
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	ErrUnauthorized = errors.New("not authenticated")
	// ErrNoCartData is returned when a command arrives before set-cart-data.
	ErrNoCartData = errors.New("no cart data set for this connection")
	ErrBadPayload = errors.New("missing required field")
)

// CodeFor maps an error to its stable wire code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, repository.ErrCartNotFound), errors.Is(err, catalog.ErrProductNotFound):
		return CodeNotFound
	case errors.Is(err, repository.ErrCartInUse):
		return CodeConflict
	case errors.Is(err, ErrNoCartData), errors.Is(err, ErrBadPayload):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

// Error builds the error envelope for the given failed event.
func Error(event string, err error) ServerMessage {
	return ServerMessage{
		Event: EventError,
		Payload: ErrorPayload{
			Success: false,
			Event:   event,
			Code:    CodeFor(err),
			Message: err.Error(),
		},
	}
}
