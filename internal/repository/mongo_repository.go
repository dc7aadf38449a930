package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxCASRetries bounds the optimistic-lock retry loop in ApplyDelta. A single
// cart receives events from one feed subscription, so contention is rare.
const maxCASRetries = 16

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m mongoRepository) Create(ctx context.Context, code string) (*domain.Cart, error) {
	now := time.Now()
	cart := &domain.Cart{
		ID:        primitive.NewObjectID().Hex(),
		Code:      code,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := m.collection.InsertOne(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (m mongoRepository) FindByCode(ctx context.Context, code string) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"code": code})
}

func (m mongoRepository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"user_id": userID, "active": true})
}

func (m mongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m mongoRepository) Claim(ctx context.Context, code, userID string) (*domain.Cart, error) {
	filter := bson.M{
		"code": code,
		"$or": []bson.M{
			{"active": false},
			{"user_id": userID},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"user_id":    userID,
			"active":     true,
			"updated_at": time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to claim cart: %w", err)
	}

	if result.MatchedCount == 0 {
		// Either the cart does not exist or it is held by another user.
		if _, errFind := m.FindByCode(ctx, code); errFind != nil {
			return nil, errFind
		}
		return nil, ErrCartInUse
	}

	return m.FindByCode(ctx, code)
}

func (m mongoRepository) ApplyDelta(ctx context.Context, userID string, product *domain.Product, qty int) (*domain.Cart, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		cart, err := m.FindByUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		applyDelta(cart, product, qty, now)

		filter := bson.M{
			"_id":     cart.ID,
			"version": cart.Version,
		}
		update := bson.M{
			"$set": bson.M{
				"items":       cart.Items,
				"total_price": cart.TotalPrice,
				"updated_at":  now,
			},
			"$inc": bson.M{"version": 1},
		}

		result, err := m.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to update cart items: %w", err)
		}

		if result.MatchedCount == 1 {
			cart.Version++
			cart.UpdatedAt = now
			return cart, nil
		}
		// Lost the race against a concurrent write, re-read and retry.
	}

	return nil, fmt.Errorf("cart update contention for user %s", userID)
}

// applyDelta merges qty into the cart line for the product, creating the line
// if absent and dropping it when the quantity reaches zero or below. The
// total is recomputed from scratch afterwards.
func applyDelta(cart *domain.Cart, product *domain.Product, qty int, now time.Time) {
	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			idx = i
			break
		}
	}

	switch {
	case idx >= 0:
		cart.Items[idx].Quantity += qty
		if cart.Items[idx].Quantity <= 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		}
	case qty > 0:
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Barcode:   product.Barcode,
			UnitPrice: product.Price,
			Quantity:  qty,
			AddedAt:   now,
		})
	}

	cart.RecomputeTotal()
}

func (m mongoRepository) Clear(ctx context.Context, code string) (*domain.Cart, error) {
	filter := bson.M{"code": code}
	update := bson.M{
		"$set": bson.M{
			"items":       []domain.CartItem{},
			"total_price": float64(0),
			"active":      false,
			"updated_at":  time.Now(),
		},
		"$unset": bson.M{"user_id": ""},
		"$inc":   bson.M{"version": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, ErrCartNotFound
	}

	return m.FindByCode(ctx, code)
}

// EnsureIndexes creates the cart collection indexes. Called once at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}

	_, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
