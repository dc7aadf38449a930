package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
)

// Handler receives scan events for one physical cart. Handlers must tolerate
// re-delivery of the same stored value; the feed is a last-value channel, not
// a queue.
type Handler func(event domain.ScanEvent)

// Feed is the hardware-facing scan channel. Subscribe delivers the retained
// latest value immediately (when one exists) and every value published
// afterwards, until the returned cancel function is called. Clear drops the
// retained value; it does not disturb live subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, code string, handler Handler) (cancel func(), err error)
	Publish(ctx context.Context, code string, event domain.ScanEvent) error
	Clear(ctx context.Context, code string) error
}

// wireEvent is the raw payload written by the cart hardware. Count is
// optional and defaults to a single unit.
type wireEvent struct {
	Barcode   string `json:"barcode"`
	Count     *int   `json:"count,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func encodeEvent(event domain.ScanEvent) ([]byte, error) {
	count := event.Count
	raw := wireEvent{
		Barcode:   event.Barcode,
		Count:     &count,
		Timestamp: event.Timestamp,
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal scan event failed: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (domain.ScanEvent, error) {
	var raw wireEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.ScanEvent{}, fmt.Errorf("unmarshal scan event failed: %w", err)
	}

	count := 1
	if raw.Count != nil {
		count = *raw.Count
	}

	return domain.ScanEvent{
		Barcode:   raw.Barcode,
		Count:     count,
		Timestamp: raw.Timestamp,
	}, nil
}
