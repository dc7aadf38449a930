// Package poller consumes checkout-completed events and releases the
// corresponding physical carts once payment has gone through.
package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/cache"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Poller struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	reader *kafka.Reader
	log    *logrus.Logger
}

func NewPoller(repo repository.CartRepository, cartCache cache.CartCache, log *logrus.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "smart-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo: repo, cache: cartCache, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.WithError(err).Warn("failed to read checkout message")
			}
			continue
		}
		p.processMessage(ctx, m.Value)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Warn("failed to close kafka reader")
	}
}

// processMessage releases one cart. Malformed messages are logged and
// skipped; a missing cart is not an error (it may have been cleared by the
// session already).
func (p *Poller) processMessage(ctx context.Context, value []byte) {
	var payload struct {
		Code   string `json:"code"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		p.log.WithError(err).Warn("skipping malformed checkout message")
		return
	}
	if payload.Code == "" {
		p.log.Warn("skipping checkout message without cart code")
		return
	}

	if _, err := p.repo.Clear(ctx, payload.Code); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		p.log.WithError(err).WithField("code", payload.Code).Error("failed to clear cart after checkout")
		return
	}

	if payload.UserID != "" {
		if err := p.cache.Delete(ctx, payload.UserID); err != nil {
			p.log.WithError(err).WithField("user_id", payload.UserID).Warn("failed to drop cart cache after checkout")
		}
	}

	p.log.WithFields(logrus.Fields{
		"code":    payload.Code,
		"user_id": payload.UserID,
	}).Info("cart released after checkout")
}
