package store

import (
	"context"
	"errors"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// CatalogReader serves the chat resolver from the database.
type CatalogReader struct {
	db database.DBTX
}

func NewCatalogReader(db database.DBTX) *CatalogReader {
	return &CatalogReader{db: db}
}

// SearchProducts returns active products matching every keyword, newest first.
func (r *CatalogReader) SearchProducts(ctx context.Context, keywords []string, limit int) ([]models.Product, error) {
	return SearchProducts(ctx, r.db, ProductFilter{
		Keywords:   keywords,
		ActiveOnly: true,
		Limit:      limit,
	})
}

// FindCategory returns the first category whose name contains text and its
// number of active products. A nil category means no match.
func (r *CatalogReader) FindCategory(ctx context.Context, text string) (*models.Category, int, error) {
	category, err := FindCategoryByName(ctx, r.db, text)
	if err != nil {
		if errors.Is(err, database.ErrCategoryNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	count, err := CountActiveProducts(ctx, r.db, category.ID)
	if err != nil {
		return nil, 0, err
	}

	return category, count, nil
}
