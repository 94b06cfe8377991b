package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/identity"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type demoCategory struct {
	name string
	icon string
}

type demoProduct struct {
	title       string
	category    string
	description string
}

var demoCategories = []demoCategory{
	{"Electronics", "📱"},
	{"Laptops", "💻"},
	{"Phones", "📱"},
	{"Accessories", "🎧"},
	{"Fashion", "👟"},
}

var demoProducts = []demoProduct{
	{"Nova Phone X", "Phones", "Flagship phone with stunning camera and battery life."},
	{"AeroBook 14", "Laptops", "Ultra-light laptop with 11th-gen CPU and 16GB RAM."},
	{"BassMax Headphones", "Accessories", "Wireless over-ear headphones with ANC."},
	{"Urban Sneaker", "Fashion", "Comfortable sneakers for daily wear."},
	{"4K Action Cam", "Electronics", "Shoot epic adventures in 4K with stabilization."},
}

var discounts = []int{0, 5, 10, 15, 20}

func main() {
	userEmail := flag.String("user", "demo@example.com", "email of the demo user")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed access token, 0 to skip")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	ctx := context.Background()
	db, err := database.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	faker := gofakeit.New(0)

	created, err := seedCatalog(ctx, db, faker, log)
	if err != nil {
		log.Fatal("seed catalog", zap.Error(err))
	}
	log.Info("seeded demo catalog", zap.Int("new_products", created))

	user, err := demoUser(ctx, db, *userEmail, faker)
	if err != nil {
		log.Fatal("seed demo user", zap.Error(err))
	}
	log.Info("demo user ready", zap.Int64("user_id", user.ID), zap.String("email", user.Email))

	if *tokenTTL > 0 {
		token, err := identity.NewTokens(cfg.Auth).Issue(user.ID, *tokenTTL)
		if err != nil {
			log.Fatal("issue token", zap.Error(err))
		}
		fmt.Println(token)
	}
}

// seedCatalog creates the demo categories and products that do not exist yet
// and returns the number of products created. Prices, discounts and stock are
// random.
func seedCatalog(ctx context.Context, db *sql.DB, faker *gofakeit.Faker, log *zap.Logger) (int, error) {
	categories := make(map[string]int64, len(demoCategories))
	for _, c := range demoCategories {
		category, err := store.CreateCategory(ctx, db, store.CategoryParams{
			Name:     c.name,
			Icon:     c.icon,
			IsActive: true,
		})
		if errors.Is(err, database.ErrAlreadyExists) {
			category, err = store.GetCategoryBySlug(ctx, db, models.Slugify(c.name))
		}
		if err != nil {
			return 0, fmt.Errorf("category %s: %w", c.name, err)
		}
		categories[c.name] = category.ID
	}

	created := 0
	for _, p := range demoProducts {
		file := strings.ReplaceAll(strings.ToLower(p.title), " ", "_")
		product, err := store.CreateProduct(ctx, db, store.ProductParams{
			CategoryID:      categories[p.category],
			Title:           p.title,
			Description:     p.description,
			Price:           decimal.NewFromInt(int64(faker.Number(49, 1499))),
			DiscountPercent: faker.RandomInt(discounts),
			Stock:           faker.Number(5, 40),
			Thumbnail:       "seed/" + file + "_thumb.jpg",
			IsActive:        true,
		})
		if errors.Is(err, database.ErrAlreadyExists) {
			log.Debug("product exists, skipping", zap.String("title", p.title))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("product %s: %w", p.title, err)
		}

		for i := 1; i <= 2; i++ {
			path := fmt.Sprintf("seed/%s_g%d.jpg", file, i)
			alt := fmt.Sprintf("%s gallery %d", p.title, i)
			if _, err := store.AddProductImage(ctx, db, product.ID, path, alt); err != nil {
				return created, err
			}
		}
		created++
	}

	return created, nil
}

func demoUser(ctx context.Context, db *sql.DB, email string, faker *gofakeit.Faker) (*models.User, error) {
	user, err := store.GetUserByEmail(ctx, db, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return store.CreateUser(ctx, db, email, faker.Name())
	}
	return user, err
}
