// Package scanner bridges one physical cart's scan feed into cart mutations
// and broadcasts for the owning session.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/feed"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/protocol"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/service"
	"github.com/sirupsen/logrus"
)

const eventTimeout = 10 * time.Second

// CartMutator is the slice of the cart service the synchronizer needs.
type CartMutator interface {
	ApplyScan(ctx context.Context, userID, barcode string, count int) (*service.ScanResult, error)
	StateCounts(ctx context.Context) (*domain.StateCounts, error)
}

// Broadcaster delivers server messages to a broadcast group (one per user).
type Broadcaster interface {
	Broadcast(room string, msg protocol.ServerMessage)
}

// Synchronizer owns at most one live feed subscription. Start tears down any
// previous subscription before attaching, so consecutive starts never leak
// listeners. A generation counter gates the handler: an event still in flight
// when Stop (or a restart) bumps the generation is discarded before it can
// touch the cart.
type Synchronizer struct {
	feed      feed.Feed
	carts     CartMutator
	broadcast Broadcaster
	log       *logrus.Logger

	mu         sync.Mutex
	generation uint64
	cancel     func()
	lastKey    string
}

func New(scanFeed feed.Feed, carts CartMutator, broadcast Broadcaster, log *logrus.Logger) *Synchronizer {
	return &Synchronizer{
		feed:      scanFeed,
		carts:     carts,
		broadcast: broadcast,
		log:       log,
	}
}

// Start subscribes to the scan feed for the physical cart and routes each
// event into the user's cart. The user is also the broadcast room.
func (s *Synchronizer) Start(ctx context.Context, code, userID string) error {
	s.Stop()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.lastKey = ""
	s.mu.Unlock()

	cancel, err := s.feed.Subscribe(ctx, code, func(event domain.ScanEvent) {
		s.handle(gen, code, userID, event)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.generation {
		// A concurrent Stop won the race; drop the fresh subscription too.
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// Stop detaches the feed listener and resets the dedup key. Events delivered
// after Stop returns are no-ops. The feed's retained value is left in place;
// clearing it is the session's job on clear-cart.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.lastKey = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Active reports whether a subscription is live.
func (s *Synchronizer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Synchronizer) handle(gen uint64, code, userID string, event domain.ScanEvent) {
	s.mu.Lock()
	if gen != s.generation {
		// Stale subscription: a teardown or restart happened after delivery.
		s.mu.Unlock()
		return
	}

	if err := event.Validate(); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("code", code).Warn("rejected malformed scan event")
		return
	}

	key := event.Key()
	if key == s.lastKey {
		// Re-read of the unchanged retained value, must not double-apply.
		s.mu.Unlock()
		return
	}
	s.lastKey = key
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	result, err := s.carts.ApplyScan(ctx, userID, event.Barcode, event.Count)
	if err != nil {
		// One bad scan must not kill the stream.
		s.log.WithError(err).WithFields(logrus.Fields{
			"code":    code,
			"barcode": event.Barcode,
		}).Warn("failed to process scan event")
		s.broadcast.Broadcast(userID, protocol.Error(protocol.EventProductsUpdate, err))
		return
	}

	s.broadcast.Broadcast(userID, productsUpdate(result))

	// The counter broadcast is independent; its failure does not roll back
	// the cart mutation.
	counts, err := s.carts.StateCounts(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to load product state counts")
		return
	}
	s.broadcast.Broadcast(userID, protocol.ServerMessage{
		Event:   protocol.EventProductStatesUpdate,
		Payload: map[string]interface{}{"success": true, "stateCounts": counts},
	})
}

func productsUpdate(result *service.ScanResult) protocol.ServerMessage {
	quantity := 0
	if result.Item != nil {
		quantity = result.Item.Quantity
	}

	return protocol.ServerMessage{
		Event: protocol.EventProductsUpdate,
		Payload: map[string]interface{}{
			"success": true,
			"cartRef": result.Cart.ID,
			"cart":    result.Cart,
			"product": map[string]interface{}{
				"id":       result.Product.ID,
				"title":    result.Product.Title,
				"barcode":  result.Product.Barcode,
				"price":    result.Product.Price,
				"stock":    result.Product.Stock,
				"state":    result.Product.State,
				"quantity": quantity,
			},
		},
	}
}
