package realtime

import (
	"context"
	"sync"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/feed"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/protocol"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/scanner"
	"github.com/sirupsen/logrus"
)

// CartController is the slice of the cart service the session lifecycle
// needs.
type CartController interface {
	Claim(ctx context.Context, code, userID string) (*domain.Cart, error)
	ClearByCode(ctx context.Context, code string) (*domain.Cart, error)
}

// Session owns the lifecycle of one authenticated connection: which physical
// cart it is bound to, whether it is scanning, and the single Synchronizer
// that may hold a feed subscription on its behalf. All state lives here, not
// in a shared map, so teardown order is explicit.
type Session struct {
	client *Client
	hub    *Hub
	carts  CartController
	feed   feed.Feed
	sync   *scanner.Synchronizer
	log    *logrus.Entry

	mu       sync.Mutex
	code     string
	scanning bool
	inRoom   bool
}

func NewSession(client *Client, hub *Hub, carts CartController, mutator scanner.CartMutator, scanFeed feed.Feed, log *logrus.Logger) *Session {
	return &Session{
		client: client,
		hub:    hub,
		carts:  carts,
		feed:   scanFeed,
		sync:   scanner.New(scanFeed, mutator, hub, log),
		log: log.WithFields(logrus.Fields{
			"connection": client.ID,
			"user_id":    client.UserID,
		}),
	}
}

// SetCartData records which physical cart this connection will scan with.
// An active scan against a previously set cart is stopped first; persistent
// state is untouched.
func (s *Session) SetCartData(code string) (protocol.ServerMessage, error) {
	if code == "" {
		return protocol.ServerMessage{}, protocol.ErrBadPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning {
		s.sync.Stop()
		s.scanning = false
	}
	s.code = code

	s.log.WithField("code", code).Info("cart data set")
	return protocol.ServerMessage{
		Event: protocol.EventCartDataSet,
		Payload: map[string]interface{}{
			"success":      true,
			"physicalCode": code,
			"message":      "Cart data set successfully",
		},
	}, nil
}

// StartScan claims the bound cart and attaches the feed subscription. A scan
// already in progress is fully torn down first, so consecutive starts leave
// exactly one live listener.
func (s *Session) StartScan(ctx context.Context) (protocol.ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code == "" {
		return protocol.ServerMessage{}, protocol.ErrNoCartData
	}

	if s.scanning {
		s.sync.Stop()
		s.scanning = false
	}

	if _, err := s.carts.Claim(ctx, s.code, s.client.UserID); err != nil {
		return protocol.ServerMessage{}, err
	}

	if !s.inRoom {
		s.hub.Join(s.client.UserID, s.client)
		s.inRoom = true
	}

	if err := s.sync.Start(ctx, s.code, s.client.UserID); err != nil {
		return protocol.ServerMessage{}, err
	}
	s.scanning = true

	s.log.WithField("code", s.code).Info("cart scanning started")
	return protocol.ServerMessage{
		Event: protocol.EventCartConnected,
		Payload: map[string]interface{}{
			"success":      true,
			"physicalCode": s.code,
			"message":      "Successfully connected to cart and started scanning",
		},
	}, nil
}

// StopScan detaches the feed subscription but keeps the cart contents and
// the binding. A stop without an active scan is a no-op.
func (s *Session) StopScan() (protocol.ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code == "" {
		return protocol.ServerMessage{}, protocol.ErrNoCartData
	}

	msg := "Cart scanning was not active"
	if s.scanning {
		s.sync.Stop()
		s.scanning = false
		msg = "Cart scanning stopped successfully"
		s.log.WithField("code", s.code).Info("cart scanning stopped")
	}

	return protocol.ServerMessage{
		Event: protocol.EventScanningStopped,
		Payload: map[string]interface{}{
			"success": true,
			"message": msg,
		},
	}, nil
}

// ClearCart stops scanning, empties and unbinds the persistent cart, and
// drops the feed's retained value. The connection returns to the unbound
// state and may claim another cart.
func (s *Session) ClearCart(ctx context.Context) (protocol.ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code == "" {
		return protocol.ServerMessage{}, protocol.ErrNoCartData
	}

	if err := s.clearLocked(ctx); err != nil {
		return protocol.ServerMessage{}, err
	}

	return protocol.ServerMessage{
		Event: protocol.EventCartCleared,
		Payload: map[string]interface{}{
			"success": true,
			"message": "Cart cleared successfully",
		},
	}, nil
}

// OnDisconnect releases everything the connection held. Invoked by the
// transport on every exit path; failures are logged, never retried, because
// the peer is already gone.
func (s *Session) OnDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code != "" {
		if err := s.clearLocked(context.Background()); err != nil {
			s.log.WithError(err).Warn("cleanup on disconnect failed")
		}
	}

	if s.inRoom {
		s.hub.Leave(s.client.UserID, s.client)
		s.inRoom = false
	}
	s.client.Close()
	s.log.Info("client disconnected")
}

func (s *Session) clearLocked(ctx context.Context) error {
	if s.scanning {
		s.sync.Stop()
		s.scanning = false
	}

	code := s.code
	if _, err := s.carts.ClearByCode(ctx, code); err != nil {
		return err
	}
	if err := s.feed.Clear(ctx, code); err != nil {
		s.log.WithError(err).WithField("code", code).Warn("failed to clear retained scan value")
	}

	s.code = ""
	s.log.WithField("code", code).Info("cart cleared")
	return nil
}

// Scanning reports whether a feed subscription is live for this session.
func (s *Session) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// BoundCode returns the physical code this session is bound to, if any.
func (s *Session) BoundCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}
