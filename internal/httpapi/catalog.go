package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

const (
	defaultCatalogPageSize = 24
	maxCatalogPageSize     = 100
)

// ProductDTO presents a product with its money rendered to two decimals and
// media references resolved to URLs.
type ProductDTO struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	CategoryID      int64  `json:"category_id"`
	Category        string `json:"category,omitempty"`
	Price           string `json:"price"`
	DiscountPercent int    `json:"discount_percent"`
	DiscountedPrice string `json:"discounted_price"`
	Stock           int    `json:"stock"`
	InStock         bool   `json:"in_stock"`
	Thumbnail       string `json:"thumbnail,omitempty"`
}

type ImageDTO struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

type ProductDetailDTO struct {
	ProductDTO
	Images []ImageDTO `json:"images"`
}

type CategoryDetailDTO struct {
	Category models.Category `json:"category"`
	Products []ProductDTO    `json:"products"`
}

// mediaURL resolves path, logging and dropping it when resolution fails.
func (s *Server) mediaURL(ctx context.Context, path string) string {
	url, err := s.media.URL(ctx, path)
	if err != nil {
		s.logger.Warn("resolve media url", zap.String("path", path), zap.Error(err))
		return ""
	}
	return url
}

func (s *Server) productDTO(ctx context.Context, p models.Product) ProductDTO {
	return ProductDTO{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Description:     p.Description,
		CategoryID:      p.CategoryID,
		Category:        p.CategoryName,
		Price:           models.FormatMoney(p.Price),
		DiscountPercent: models.ClampDiscount(p.DiscountPercent),
		DiscountedPrice: models.FormatMoney(p.DiscountedPrice()),
		Stock:           p.Stock,
		InStock:         p.InStock(),
		Thumbnail:       s.mediaURL(ctx, p.Thumbnail),
	}
}

func (s *Server) productDTOs(ctx context.Context, products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, s.productDTO(ctx, p))
	}
	return out
}

// listProducts searches active products by q over title and description.
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := store.ProductFilter{ActiveOnly: true}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		filter.Keywords = []string{q}
	}
	page := queryInt(r, "page", 1, 0)
	pageSize := queryInt(r, "page_size", defaultCatalogPageSize, maxCatalogPageSize)

	result, err := store.ListProducts(ctx, s.db, filter, page, pageSize)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, store.OffsetPage[ProductDTO]{
		Items:      s.productDTOs(ctx, result.Items),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := store.GetProductBySlug(ctx, s.db, chi.URLParam(r, "slug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	images, err := store.ListProductImages(ctx, s.db, product.ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	detail := ProductDetailDTO{
		ProductDTO: s.productDTO(ctx, *product),
		Images:     make([]ImageDTO, 0, len(images)),
	}
	for _, img := range images {
		detail.Images = append(detail.Images, ImageDTO{
			URL:     s.mediaURL(ctx, img.Path),
			AltText: img.AltText,
		})
	}

	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), s.db, true)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, err := store.GetCategoryBySlug(ctx, s.db, chi.URLParam(r, "slug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	products, err := store.SearchProducts(ctx, s.db, store.ProductFilter{
		CategoryID: category.ID,
		ActiveOnly: true,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CategoryDetailDTO{
		Category: *category,
		Products: s.productDTOs(ctx, products),
	})
}
