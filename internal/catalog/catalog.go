package catalog

import (
	"context"
	"errors"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// ProductCatalog resolves scanned barcodes and reports shelf-state tallies.
type ProductCatalog interface {
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	StateCounts(ctx context.Context) (*domain.StateCounts, error)
}
