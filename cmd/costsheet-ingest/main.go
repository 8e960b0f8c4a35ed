// Command costsheet-ingest imports supplier cost sheets into the product
// catalog. Suppliers deliver large gzipped files of "SKU;COST" lines that
// overlap but disagree; a SKU is trusted only when at least two sheets
// list it, and the lowest listed cost wins.
//
// The files are too large to hold in memory, so ingestion runs in two
// streaming passes: pass 1 builds a bloom filter per file, pass 2
// re-streams each file and keeps SKUs that any other file's filter also
// contains.
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
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/voltstore/pricing-api/internal/domain/catalog"
	"github.com/voltstore/pricing-api/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 10_000_000
	minSKULen     = 4
	maxSKULen     = 32
	writeBatch    = 1000
)

// candidate tracks which files listed a SKU and the lowest cost seen.
type candidate struct {
	fileMask uint
	cost     decimal.Decimal
}

// fileResult holds candidate SKUs found in a single file during pass 2.
type fileResult struct {
	candidates map[string]candidate
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing costsheetN.gz files")
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
		slog.Error("costsheet ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("costsheet ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("costsheet%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find SKUs appearing in 2+ files, keeping the lowest cost.
	slog.Info("pass 2: finding cross-validated SKUs")

	updates, err := findValidCosts(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid costs")
	}

	slog.Info("cross-validated SKUs found", slog.Int("count", len(updates)))

	if len(updates) == 0 {
		slog.Info("no cost updates to apply")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeCosts(ctx, postgres.NewProductRepository(pool), updates); err != nil {
		return errors.Wrap(err, "write cost updates to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(sku string, _ decimal.Decimal) {
			filter.AddString(sku)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_lines", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findValidCosts re-streams each file and checks SKUs against OTHER files'
// bloom filters. A SKU is valid if it appears in 2 or more files; the
// lowest cost across all listings wins.
func findValidCosts(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]catalog.CostUpdate, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-file candidates: OR the file masks, keep the lowest cost.
	merged := make(map[string]candidate)
	for _, r := range results {
		for sku, c := range r.candidates {
			m, ok := merged[sku]
			if !ok {
				merged[sku] = c
				continue
			}
			m.fileMask |= c.fileMask
			if c.cost.LessThan(m.cost) {
				m.cost = c.cost
			}
			merged[sku] = m
		}
	}

	var updates []catalog.CostUpdate
	for sku, c := range merged {
		if bits.OnesCount(c.fileMask) >= 2 {
			updates = append(updates, catalog.CostUpdate{SKU: sku, CostPrice: c.cost})
		}
	}

	return updates, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]candidate)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(sku string, cost decimal.Decimal) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}

			// Keep the SKU only if some OTHER file's bloom filter has it.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(sku) {
					c, ok := candidates[sku]
					if !ok {
						candidates[sku] = candidate{fileMask: fileBit, cost: cost}
						return
					}
					if cost.LessThan(c.cost) {
						c.cost = cost
					}
					candidates[sku] = c
					return
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_lines", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed cost sheet and calls fn for each
// well-formed "SKU;COST" line. Malformed lines, out-of-bound SKU lengths,
// and negative costs are skipped.
func streamGzFile(ctx context.Context, path string, fn func(sku string, cost decimal.Decimal)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		sku, rawCost, ok := strings.Cut(scanner.Text(), ";")
		if !ok || len(sku) < minSKULen || len(sku) > maxSKULen {
			continue
		}
		cost, err := decimal.NewFromString(rawCost)
		if err != nil || cost.IsNegative() {
			continue
		}
		fn(sku, cost)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeCosts applies the cost updates in batches.
func writeCosts(ctx context.Context, repo *postgres.ProductRepository, updates []catalog.CostUpdate) error {
	slog.Info("writing cost updates to database", slog.Int("count", len(updates)))

	for start := 0; start < len(updates); start += writeBatch {
		end := min(start+writeBatch, len(updates))
		if err := repo.UpsertCosts(ctx, updates[start:end]); err != nil {
			return errors.Wrapf(err, "upsert batch at %d", start)
		}
		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(updates)))
	}

	return nil
}
