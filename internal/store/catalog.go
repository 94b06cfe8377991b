package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `
	p.id, p.category_id, c.name, p.title, p.slug, p.description, p.price,
	p.discount_percent, p.stock, p.thumbnail, p.is_active, p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.CategoryName,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.DiscountPercent,
		&p.Stock,
		&p.Thumbnail,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// resolveSlug returns explicit when it is already a clean slug, or the slug
// derived from name when explicit is empty. Either way the result is non-empty.
func resolveSlug(explicit, name string) (string, error) {
	if explicit != "" {
		if models.Slugify(explicit) != explicit {
			return "", fmt.Errorf("%w: slug %q is not URL-safe", database.ErrInvalidInput, explicit)
		}
		return explicit, nil
	}
	slug := models.Slugify(name)
	if slug == "" {
		return "", fmt.Errorf("%w: no usable slug in %q", database.ErrInvalidInput, name)
	}
	return slug, nil
}

type CategoryParams struct {
	Name     string
	Slug     string
	Icon     string
	IsActive bool
}

func CreateCategory(ctx context.Context, db database.DBTX, params CategoryParams) (*models.Category, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", database.ErrInvalidInput)
	}
	slug, err := resolveSlug(params.Slug, name)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", name, err)
	}

	category := &models.Category{}
	query := `
		INSERT INTO categories (name, slug, icon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, name, slug, icon, is_active, created_at, updated_at`

	err = db.QueryRowContext(ctx, query, name, slug, params.Icon, params.IsActive).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Icon,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("create category %q: %w", name, database.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func ListCategories(ctx context.Context, db database.DBTX, activeOnly bool) ([]models.Category, error) {
	query := `
		SELECT id, name, slug, icon, is_active, created_at, updated_at
		FROM categories
		WHERE ($1 = FALSE OR is_active)
		ORDER BY id`

	rows, err := db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func GetCategoryBySlug(ctx context.Context, db database.DBTX, slug string) (*models.Category, error) {
	query := `
		SELECT id, name, slug, icon, is_active, created_at, updated_at
		FROM categories
		WHERE slug = $1 AND is_active`

	return getCategory(ctx, db, query, slug)
}

// FindCategoryByName returns the first category, in id order, whose name
// contains text case-insensitively.
func FindCategoryByName(ctx context.Context, db database.DBTX, text string) (*models.Category, error) {
	query := `
		SELECT id, name, slug, icon, is_active, created_at, updated_at
		FROM categories
		WHERE name ILIKE $1
		ORDER BY id
		LIMIT 1`

	return getCategory(ctx, db, query, containsPattern(text))
}

func getCategory(ctx context.Context, db database.DBTX, query string, arg any) (*models.Category, error) {
	c := &models.Category{}
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Icon,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func CountActiveProducts(ctx context.Context, db database.DBTX, categoryID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = $1 AND is_active`,
		categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products in category %d: %w", categoryID, err)
	}
	return count, nil
}

// DeleteCategory refuses to remove a category that still has products.
func DeleteCategory(ctx context.Context, db database.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete category %d: %w", id, database.ErrInUse)
		}
		return fmt.Errorf("delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCategoryNotFound
	}

	return nil
}

type ProductParams struct {
	CategoryID      int64
	Title           string
	Slug            string
	Description     string
	Price           decimal.Decimal
	DiscountPercent int
	Stock           int
	Thumbnail       string
	IsActive        bool
}

func (p ProductParams) validate() error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: product title is required", database.ErrInvalidInput)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", database.ErrInvalidInput)
	case p.DiscountPercent < 0 || p.DiscountPercent > 100:
		return fmt.Errorf("%w: discount_percent must be between 0 and 100", database.ErrInvalidInput)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", database.ErrInvalidInput)
	}
	return nil
}

func CreateProduct(ctx context.Context, db database.DBTX, params ProductParams) (*models.Product, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	slug, err := resolveSlug(params.Slug, params.Title)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", params.Title, err)
	}

	var id int64
	query := `
		INSERT INTO products (category_id, title, slug, description, price, discount_percent, stock, thumbnail, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`

	err = db.QueryRowContext(ctx, query,
		params.CategoryID,
		strings.TrimSpace(params.Title),
		slug,
		params.Description,
		params.Price.Round(2),
		params.DiscountPercent,
		params.Stock,
		params.Thumbnail,
		params.IsActive,
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("create product %q: %w", slug, database.ErrAlreadyExists)
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct loads a product regardless of its active flag.
func GetProduct(ctx context.Context, db database.DBTX, id int64) (*models.Product, error) {
	return getProduct(ctx, db, `SELECT`+productColumns+productFrom+` WHERE p.id = $1`, id)
}

// GetProductBySlug loads an active product.
func GetProductBySlug(ctx context.Context, db database.DBTX, slug string) (*models.Product, error) {
	return getProduct(ctx, db, `SELECT`+productColumns+productFrom+` WHERE p.slug = $1 AND p.is_active`, slug)
}

func getProduct(ctx context.Context, db database.DBTX, query string, arg any) (*models.Product, error) {
	product := &models.Product{}
	if err := scanProduct(db.QueryRowContext(ctx, query, arg), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// SearchProducts returns products matching filter, newest first.
func SearchProducts(ctx context.Context, db database.DBTX, filter ProductFilter) ([]models.Product, error) {
	where, args := filter.where()
	query := `SELECT` + productColumns + productFrom + ` WHERE ` + where + `
		ORDER BY p.created_at DESC, p.id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func ListProducts(ctx context.Context, db database.DBTX, filter ProductFilter, page, pageSize int) (*OffsetPage[models.Product], error) {
	where, args := filter.where()

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	products, err := SearchProducts(ctx, db, filter)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

// UpdateProductPricing changes the live price of a product. Open carts follow
// the new price; placed orders keep their frozen unit prices.
func UpdateProductPricing(ctx context.Context, db database.DBTX, id int64, price decimal.Decimal, discountPercent int) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", database.ErrInvalidInput)
	}
	if discountPercent < 0 || discountPercent > 100 {
		return fmt.Errorf("%w: discount_percent must be between 0 and 100", database.ErrInvalidInput)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET price = $1, discount_percent = $2, updated_at = NOW()
		 WHERE id = $3`,
		price.Round(2), discountPercent, id)
	if err != nil {
		return fmt.Errorf("update product pricing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func AddProductImage(ctx context.Context, db database.DBTX, productID int64, path, altText string) (*models.ProductImage, error) {
	image := &models.ProductImage{}
	query := `
		INSERT INTO product_images (product_id, path, alt_text, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, product_id, path, alt_text, created_at`

	err := db.QueryRowContext(ctx, query, productID, path, altText).Scan(
		&image.ID,
		&image.ProductID,
		&image.Path,
		&image.AltText,
		&image.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("add product image: %w", err)
	}

	return image, nil
}

func ListProductImages(ctx context.Context, db database.DBTX, productID int64) ([]models.ProductImage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, path, alt_text, created_at
		 FROM product_images
		 WHERE product_id = $1
		 ORDER BY id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	var images []models.ProductImage
	for rows.Next() {
		var image models.ProductImage
		if err := rows.Scan(&image.ID, &image.ProductID, &image.Path, &image.AltText, &image.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return images, nil
}
