// Command seed-db loads demo data for local development: a catalog from
// a products JSON file, a demo user with a saved address, and an API
// key hashed the same way the server hashes them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopkart/storefront/internal/handler"
	"github.com/shopkart/storefront/internal/storage/postgres"
)

type productJSON struct {
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	Price         decimal.Decimal  `json:"price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	StockQuantity int              `json:"stock_quantity"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedDemoUser(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed demo user")
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products (name, slug, price, sale_price, stock_quantity, is_active)
	VALUES ($1, $2, $3, $4, $5, TRUE)
	ON CONFLICT (slug) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		sale_price = EXCLUDED.sale_price,
		stock_quantity = EXCLUDED.stock_quantity,
		is_active = TRUE,
		updated_at = now()`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.Name, p.Slug, p.Price, p.SalePrice, p.StockQuantity,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Slug)
		}

		slog.Info("upserted product", slog.String("slug", p.Slug), slog.String("name", p.Name))
	}

	return nil
}

const upsertCouponSQL = `INSERT INTO coupons
	(code, type, value, min_order_amount, max_discount_amount, valid_from, valid_to, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	ON CONFLICT (UPPER(code)) DO UPDATE SET
		type = EXCLUDED.type,
		value = EXCLUDED.value,
		min_order_amount = EXCLUDED.min_order_amount,
		max_discount_amount = EXCLUDED.max_discount_amount,
		valid_from = EXCLUDED.valid_from,
		valid_to = EXCLUDED.valid_to,
		is_active = TRUE,
		updated_at = now()`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	now := time.Now()
	year := now.AddDate(1, 0, 0)

	coupons := []struct {
		code        string
		typ         string
		value       decimal.Decimal
		minOrder    decimal.Decimal
		maxDiscount decimal.Decimal
	}{
		{"WELCOME10", "PERCENT", decimal.NewFromInt(10), decimal.NewFromInt(150), decimal.NewFromInt(30)},
		{"FLAT50", "FIXED", decimal.NewFromInt(50), decimal.NewFromInt(500), decimal.Zero},
		{"FESTIVE20", "PERCENT", decimal.NewFromInt(20), decimal.NewFromInt(1000), decimal.NewFromInt(200)},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.typ, c.value, c.minOrder, c.maxDiscount, now, year,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

const (
	upsertUserSQL = `INSERT INTO users (email, name) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertAPIKeySQL = `INSERT INTO api_keys (user_id, key_hash, name, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET is_active = TRUE`

	countAddressesSQL = `SELECT COUNT(*) FROM addresses WHERE user_id = $1`

	insertAddressSQL = `INSERT INTO addresses
		(user_id, full_name, phone, address_line1, address_line2, city, state, pincode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

func seedDemoUser(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding demo user and API key")

	var userID int64
	if err := pool.QueryRow(ctx, upsertUserSQL, "demo@example.com", "Demo Customer").Scan(&userID); err != nil {
		return errors.Wrap(err, "upsert demo user")
	}

	keyHash := handler.HashAPIKey(apiKey, []byte(pepper))
	if _, err := pool.Exec(ctx, upsertAPIKeySQL, userID, keyHash, "Demo key"); err != nil {
		return errors.Wrap(err, "upsert demo API key")
	}

	var addresses int
	if err := pool.QueryRow(ctx, countAddressesSQL, userID).Scan(&addresses); err != nil {
		return errors.Wrap(err, "count demo addresses")
	}
	if addresses == 0 {
		if _, err := pool.Exec(ctx, insertAddressSQL,
			userID, "Demo Customer", "9999999999",
			"42 MG Road", "Near Central Mall", "Bengaluru", "Karnataka", "560001",
		); err != nil {
			return errors.Wrap(err, "insert demo address")
		}
	}

	slog.Info("demo user ready", slog.Int64("user_id", userID))
	return nil
}
