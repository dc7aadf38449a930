package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCatalog struct {
	collection *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) ProductCatalog {
	return &mongoCatalog{
		collection: db.Collection("products"),
	}
}

func (m mongoCatalog) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	var product domain.Product

	filter := bson.M{"barcode": barcode}
	err := m.collection.FindOne(ctx, filter).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (m mongoCatalog) StateCounts(ctx context.Context) (*domain.StateCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$state",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate product states: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		State string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode product states: %w", err)
	}

	counts := &domain.StateCounts{}
	for _, row := range rows {
		switch row.State {
		case domain.StateAvailable:
			counts.Available = row.Count
		case domain.StateLow:
			counts.Low = row.Count
		case domain.StateOut:
			counts.Out = row.Count
		}
	}
	counts.Total = counts.Available + counts.Low + counts.Out

	return counts, nil
}
