// Command coupon-ingest imports promotional codes from large gzipped
// dumps supplied by the marketing pipeline. A code is considered
// legitimate when it appears in at least two of the three dump files;
// the cross-check runs in two passes with one bloom filter per file so
// the full code set never has to fit in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/shopkart/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	dumpCount     = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	writeBatch    = 500
)

// codeRule is the discount rule applied to a known promotional code.
// Unknown-but-valid codes fall back to defaultRule.
type codeRule struct {
	discountType string
	value        decimal.Decimal
	minOrder     decimal.Decimal
	maxDiscount  decimal.Decimal
}

var codeRules = map[string]codeRule{
	"FIFTYOFF": {discountType: "PERCENT", value: decimal.NewFromInt(50), maxDiscount: decimal.NewFromInt(500)},
	"SIXTYOFF": {discountType: "PERCENT", value: decimal.NewFromInt(60), maxDiscount: decimal.NewFromInt(600)},
	"HAPPYHRS": {discountType: "PERCENT", value: decimal.NewFromInt(18)},
	"OVER9000": {discountType: "FIXED", value: decimal.NewFromInt(90), minOrder: decimal.NewFromInt(900)},
	"GNULINUX": {discountType: "PERCENT", value: decimal.NewFromInt(15)},
}

var defaultRule = codeRule{
	discountType: "PERCENT",
	value:        decimal.NewFromInt(10),
	maxDiscount:  decimal.NewFromInt(100),
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing couponbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	dumps := make([]string, dumpCount)
	for i := range dumps {
		dumps[i] = filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))
		if _, err := os.Stat(dumps[i]); err != nil {
			return errors.Wrapf(err, "check dump %s", dumps[i])
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("dumps", dumpCount))

	filters, err := buildFilters(ctx, dumps)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: cross-checking dumps")

	codes, err := crossCheck(ctx, dumps, filters)
	if err != nil {
		return errors.Wrap(err, "cross-check dumps")
	}

	slog.Info("valid codes found", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeCoupons(ctx, pool, codes)
}

// buildFilters streams each dump once, concurrently, producing one
// bloom filter per dump.
func buildFilters(ctx context.Context, dumps []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(dumps))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range dumps {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		filters[i] = filter
		n := i + 1

		g.Go(func() error {
			var seen uint64
			err := eachLine(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				filter.AddString(code)
				if seen++; seen%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("dump", n), slog.Uint64("codes", seen))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "filter dump %d", n)
			}
			slog.Info("pass 1 complete", slog.Int("dump", n), slog.Uint64("codes", seen))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// crossCheck re-streams each dump and tests its codes against the
// other dumps' filters. Per code it accumulates a bitmask of dumps the
// code was seen in; two or more set bits makes the code valid.
func crossCheck(ctx context.Context, dumps []string, filters []*bloom.BloomFilter) ([]string, error) {
	perDump := make([]map[string]uint, len(dumps))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range dumps {
		hits := make(map[string]uint)
		perDump[i] = hits
		self := i
		bit := uint(1) << uint(i)

		g.Go(func() error {
			var seen uint64
			err := eachLine(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				if seen++; seen%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.Int("dump", self+1), slog.Uint64("codes", seen))
				}
				for j, f := range filters {
					if j == self {
						continue
					}
					if f.TestString(code) {
						hits[code] |= bit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "cross-check dump %d", self+1)
			}
			slog.Info("pass 2 complete",
				slog.Int("dump", self+1),
				slog.Uint64("codes", seen),
				slog.Int("candidates", len(hits)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, hits := range perDump {
		for code, mask := range hits {
			merged[code] |= mask
		}
	}

	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}
	return valid, nil
}

// eachLine streams a gzip-compressed dump line by line.
func eachLine(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
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
		valid_to = EXCLUDED.valid_to,
		is_active = TRUE,
		updated_at = now()`

// writeCoupons upserts the valid codes in batches, valid for one year
// from the ingest run.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)))

	validFrom := time.Now()
	validTo := validFrom.AddDate(1, 0, 0)

	for start := 0; start < len(codes); start += writeBatch {
		end := min(start+writeBatch, len(codes))

		var batch pgx.Batch
		for _, code := range codes[start:end] {
			rule, ok := codeRules[code]
			if !ok {
				rule = defaultRule
			}
			batch.Queue(upsertCouponSQL,
				code, rule.discountType, rule.value,
				rule.minOrder, rule.maxDiscount, validFrom, validTo,
			)
		}

		if err := pool.SendBatch(ctx, &batch).Close(); err != nil {
			return errors.Wrapf(err, "upsert batch at %d", start)
		}
		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(codes)))
	}

	return nil
}
