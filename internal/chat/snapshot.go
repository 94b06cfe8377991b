package chat

import (
	"context"
	"sort"
	"strings"

	"github.com/safar/storefront/internal/models"
)

// Snapshot is an in-memory Catalog, used in tests and for demos without a
// database.
type Snapshot struct {
	Categories []models.Category
	Products   []models.Product
}

func (s *Snapshot) SearchProducts(_ context.Context, keywords []string, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.Products {
		if !p.IsActive || !matchesAll(p, keywords) {
			continue
		}
		if p.CategoryName == "" {
			p.CategoryName = s.categoryName(p.CategoryID)
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Snapshot) FindCategory(_ context.Context, text string) (*models.Category, int, error) {
	categories := make([]models.Category, len(s.Categories))
	copy(categories, s.Categories)
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	needle := strings.ToLower(text)
	for _, c := range categories {
		if !strings.Contains(strings.ToLower(c.Name), needle) {
			continue
		}
		count := 0
		for _, p := range s.Products {
			if p.CategoryID == c.ID && p.IsActive {
				count++
			}
		}
		return &c, count, nil
	}
	return nil, 0, nil
}

func (s *Snapshot) categoryName(id int64) string {
	for _, c := range s.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func matchesAll(p models.Product, keywords []string) bool {
	title := strings.ToLower(p.Title)
	description := strings.ToLower(p.Description)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if !strings.Contains(title, kw) && !strings.Contains(description, kw) {
			return false
		}
	}
	return true
}
