package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/cache"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/catalog"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ScanResult is the outcome of one applied scan: the refreshed cart and the
// line the scan touched. Item is nil when the delta removed the line or was
// a zero-quantity no-op on a missing line.
type ScanResult struct {
	Cart    *domain.Cart
	Product *domain.Product
	Item    *domain.CartItem
}

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog catalog.ProductCatalog
	log     *logrus.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cartCache cache.CartCache, productCatalog catalog.ProductCatalog, log *logrus.Logger) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cartCache,
		catalog: productCatalog,
		log:     log,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("cart cache get failed") // log cache error but continue
		}

		cart, errGet := s.repo.FindByUser(ctx, userID)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				s.log.WithError(errSet).Warn("cart cache set failed")
			}
		}()

		return cart, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// FindByCode looks a cart up by its printed code.
func (s *CartService) FindByCode(ctx context.Context, code string) (*domain.Cart, error) {
	return s.repo.FindByCode(ctx, code)
}

// CreateCart provisions an inactive physical cart with the given code.
func (s *CartService) CreateCart(ctx context.Context, code string) (*domain.Cart, error) {
	return s.repo.Create(ctx, code)
}

// Claim binds the physical cart to the user for a shopping session.
// Re-claiming a cart already held by the same user is idempotent.
func (s *CartService) Claim(ctx context.Context, code, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Claim(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

// ApplyScan resolves the barcode and applies the quantity delta to the
// user's cart. It is the single mutation path for scan events, whether they
// arrive from the live feed or from an alternate source.
func (s *CartService) ApplyScan(ctx context.Context, userID, barcode string, count int) (*ScanResult, error) {
	product, err := s.catalog.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.ApplyDelta(ctx, userID, product, count)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"barcode": barcode,
		}).Error("failed to apply scan delta")
		return nil, err
	}

	s.invalidateCache(userID)

	return &ScanResult{
		Cart:    cart,
		Product: product,
		Item:    cart.Item(product.ID),
	}, nil
}

// ApplyScanByCode applies a scan addressed by the physical cart code, for
// sources that know the cart but not the shopper. The cart must be claimed;
// the delta lands on whoever holds it.
func (s *CartService) ApplyScanByCode(ctx context.Context, code, barcode string, count int) (*ScanResult, error) {
	cart, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !cart.Active || cart.UserID == "" {
		return nil, fmt.Errorf("cart %s is not claimed: %w", code, repository.ErrCartNotFound)
	}

	return s.ApplyScan(ctx, cart.UserID, barcode, count)
}

// ClearByCode empties the cart, unbinds its user and marks it inactive.
func (s *CartService) ClearByCode(ctx context.Context, code string) (*domain.Cart, error) {
	// Look up the bound user first so the cache entry can be dropped too.
	var boundUser string
	if existing, err := s.repo.FindByCode(ctx, code); err == nil {
		boundUser = existing.UserID
	}

	cart, err := s.repo.Clear(ctx, code)
	if err != nil {
		return nil, err
	}

	if boundUser != "" {
		s.invalidateCache(boundUser)
	}
	return cart, nil
}

// StateCounts reports the shelf-state tallies broadcast alongside cart
// updates.
func (s *CartService) StateCounts(ctx context.Context) (*domain.StateCounts, error) {
	return s.catalog.StateCounts(ctx)
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.WithError(err).Warn("cart cache invalidate failed")
	}
}
