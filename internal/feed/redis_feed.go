package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisFeed bridges the cart hardware's realtime channel through Redis. The
// latest scan for a cart is retained under scan:<code>; change notifications
// fan out over a pub/sub channel of the same name. Subscribers therefore get
// the current value on attach and each write afterwards, matching the
// upstream latest-write-wins contract.
type RedisFeed struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewRedisFeed(client *redis.Client, log *logrus.Logger) *RedisFeed {
	return &RedisFeed{client: client, log: log}
}

func feedKey(code string) string {
	return fmt.Sprintf("scan:%s", code)
}

func (f *RedisFeed) Subscribe(ctx context.Context, code string, handler Handler) (func(), error) {
	key := feedKey(code)

	pubsub := f.client.Subscribe(ctx, key)
	// Force the subscription onto the wire before reading the retained value,
	// so no write can slip between the GET and the channel attach.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("feed subscribe failed: %w", err)
	}

	var retained *domain.ScanEvent
	data, err := f.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		event, errDecode := decodeEvent(data)
		if errDecode != nil {
			f.log.WithError(errDecode).WithField("code", code).Warn("discarding malformed retained scan payload")
		} else {
			retained = &event
		}
	case errors.Is(err, redis.Nil):
		// No scan recorded yet for this cart.
	default:
		pubsub.Close()
		return nil, fmt.Errorf("feed read retained value failed: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		if retained != nil {
			handler(*retained)
		}

		for msg := range pubsub.Channel() {
			event, errDecode := decodeEvent([]byte(msg.Payload))
			if errDecode != nil {
				f.log.WithError(errDecode).WithField("code", code).Warn("discarding malformed scan payload")
				continue
			}
			handler(event)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			pubsub.Close()
			<-done
		})
	}
	return cancel, nil
}

func (f *RedisFeed) Publish(ctx context.Context, code string, event domain.ScanEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	key := feedKey(code)
	if err := f.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("feed retain value failed: %w", err)
	}
	if err := f.client.Publish(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("feed publish failed: %w", err)
	}
	return nil
}

func (f *RedisFeed) Clear(ctx context.Context, code string) error {
	if err := f.client.Del(ctx, feedKey(code)).Err(); err != nil {
		return fmt.Errorf("feed clear failed: %w", err)
	}
	return nil
}
