package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidScanEvent = errors.New("invalid scan event")

// ScanEvent is one barcode report from the cart hardware. The upstream feed
// is a last-value store, so the same event may be delivered more than once;
// Key identifies a delivery for deduplication.
type ScanEvent struct {
	Barcode   string `json:"barcode"`
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
}

// Key is the dedup signature. Two deliveries of the same stored value share a
// key; a genuine repeat scan carries a new timestamp and therefore a new key.
func (e ScanEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.Barcode, e.Timestamp)
}

// Validate rejects malformed feed payloads at the ingress boundary. A zero
// count is allowed (no-op mutation); a negative one is not.
func (e ScanEvent) Validate() error {
	if e.Barcode == "" {
		return fmt.Errorf("%w: missing barcode", ErrInvalidScanEvent)
	}
	if e.Count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalidScanEvent, e.Count)
	}
	return nil
}
