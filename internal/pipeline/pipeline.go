// Package pipeline drives the two-stage crawl and the export. The overview
// stage records one summary per nomination listed for each category and
// year; the detail stage drains the summaries still pending and stores the
// people found on each nomination page.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/nomination-archive-crawler/internal/export"
	"github.com/JakeFAU/nomination-archive-crawler/internal/metrics"
	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/parser"
)

// Config is fixed for the lifetime of a Pipeline.
type Config struct {
	MinYear    int
	MaxYear    int
	Categories []nomination.Category
	BaseURL    string
	ExportPath string
}

// Validate checks the year range and categories.
func (c Config) Validate() error {
	if c.MinYear <= 0 {
		return fmt.Errorf("min year must be positive, got %d", c.MinYear)
	}
	if c.MaxYear < c.MinYear {
		return fmt.Errorf("max year %d is before min year %d", c.MaxYear, c.MinYear)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for _, category := range c.Categories {
		if !category.Valid() {
			return fmt.Errorf("unknown category %d", int(category))
		}
	}
	return nil
}

// OverviewStats summarizes an overview sweep.
type OverviewStats struct {
	Pages    int
	Found    int
	Inserted int
	Skipped  int
}

// DetailStats summarizes a detail sweep.
type DetailStats struct {
	Nominations   int
	People        int
	UnknownFields int
}

// Report is the outcome of a full run.
type Report struct {
	RunID      string
	Overview   OverviewStats
	Detail     DetailStats
	ExportURI  string
	ExportRows int
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithExportResolver overrides how export destinations are opened.
func WithExportResolver(resolve export.Resolver) Option {
	return func(p *Pipeline) {
		p.resolve = resolve
	}
}

// WithIDGenerator sets the source of run ids.
func WithIDGenerator(ids IDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = ids
	}
}

// Pipeline runs the crawl stages sequentially against one store.
type Pipeline struct {
	cfg      Config
	urls     URLs
	fetcher  nomination.Fetcher
	store    nomination.Store
	overview *parser.OverviewParser
	exporter *export.Exporter
	resolve  export.Resolver
	ids      IDGenerator
	logger   *zap.Logger
}

// New validates cfg and wires the stages.
func New(cfg Config, fetcher nomination.Fetcher, store nomination.Store, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	urls, err := NewURLs(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Categories = slices.Clone(cfg.Categories)

	p := &Pipeline{
		cfg:     cfg,
		urls:    urls,
		fetcher: fetcher,
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.overview = parser.NewOverviewParser(logger.Named("overview"))
	p.exporter = export.NewExporter(p.resolve, urls.Detail, logger.Named("export"))
	metrics.Init()
	return p, nil
}

// URLs returns the page address builder in use.
func (p *Pipeline) URLs() URLs {
	return p.urls
}

// Run executes the overview, detail, and export stages in order. Any stage
// failure stops the run.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report
	if p.ids != nil {
		id, err := p.ids.NewID()
		if err != nil {
			return report, fmt.Errorf("generate run id: %w", err)
		}
		report.RunID = id
	}
	logger := p.logger.With(zap.String("run_id", report.RunID))
	logger.Info("crawl starting",
		zap.Int("min_year", p.cfg.MinYear),
		zap.Int("max_year", p.cfg.MaxYear),
		zap.Int("categories", len(p.cfg.Categories)),
	)

	var err error
	if report.Overview, err = p.RunOverview(ctx); err != nil {
		return report, err
	}
	if report.Detail, err = p.RunDetails(ctx); err != nil {
		return report, err
	}
	if report.ExportURI, report.ExportRows, err = p.Export(ctx); err != nil {
		return report, err
	}
	logger.Info("crawl finished",
		zap.Int("summaries_found", report.Overview.Found),
		zap.Int("summaries_inserted", report.Overview.Inserted),
		zap.Int("details_fetched", report.Detail.Nominations),
		zap.Int("export_rows", report.ExportRows),
	)
	return report, nil
}

// RunOverview fetches every listing page in category then year order and
// stores the summaries it finds. The first fetch failure aborts the sweep.
func (p *Pipeline) RunOverview(ctx context.Context) (OverviewStats, error) {
	var stats OverviewStats
	for _, category := range p.cfg.Categories {
		for year := p.cfg.MinYear; year <= p.cfg.MaxYear; year++ {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("overview canceled: %w", err)
			}
			found, inserted, skipped, err := p.overviewPage(ctx, category, year)
			stats.Found += found
			stats.Inserted += inserted
			stats.Skipped += skipped
			if err != nil {
				return stats, err
			}
			stats.Pages++
		}
	}
	p.logger.Info("overview complete",
		zap.Int("pages", stats.Pages),
		zap.Int("found", stats.Found),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped_rows", stats.Skipped),
	)
	return stats, nil
}

func (p *Pipeline) overviewPage(ctx context.Context, category nomination.Category, year int) (found, inserted, skipped int, err error) {
	url := p.urls.Listing(category, year)
	start := time.Now()
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObservePage(metrics.StageOverview, metrics.StatusError, time.Since(start))
		return 0, 0, 0, fmt.Errorf("overview %s %d: %w", category, year, err)
	}
	metrics.ObservePage(metrics.StageOverview, metrics.StatusSuccess, time.Since(start))

	result := p.overview.Parse(doc)
	skipped = len(result.Skipped)
	metrics.ObserveSkipped(metrics.StageOverview, skipped)
	if len(result.Listings) == 0 {
		p.logger.Warn("listing page yielded no nominations",
			zap.String("prize", category.DisplayName()),
			zap.Int("year", year),
			zap.Int("tables", result.Tables),
			zap.Int("nomination_tables", result.NominationTables),
		)
	}

	for _, listing := range result.Listings {
		ok, err := p.store.SaveSummary(ctx, nomination.Summary{
			ID:         listing.ID,
			Category:   category,
			Year:       year,
			Nominees:   listing.Nominees,
			Nominators: listing.Nominators,
		})
		if err != nil {
			return found, inserted, skipped, fmt.Errorf("overview %s %d: %w", category, year, err)
		}
		found++
		if ok {
			inserted++
		}
		metrics.ObserveSummary(ok)
	}
	p.logger.Info("listing page stored",
		zap.String("prize", category.DisplayName()),
		zap.Int("year", year),
		zap.Int("found", found),
		zap.Int("inserted", inserted),
	)
	return found, inserted, skipped, nil
}

// RunDetails drains the pending summaries, fetching and storing each detail
// page before marking it fetched. The first failure aborts the sweep and
// leaves the failing nomination pending.
func (p *Pipeline) RunDetails(ctx context.Context) (DetailStats, error) {
	var stats DetailStats
	for {
		pending, err := p.store.PendingSummaries(ctx)
		if err != nil {
			return stats, fmt.Errorf("list pending nominations: %w", err)
		}
		metrics.SetPending(len(pending))
		if len(pending) == 0 {
			break
		}
		p.logger.Info("fetching nomination details", zap.Int("pending", len(pending)))

		for i, summary := range pending {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("details canceled: %w", err)
			}
			people, unknown, err := p.detailPage(ctx, summary)
			if err != nil {
				return stats, err
			}
			stats.Nominations++
			stats.People += people
			stats.UnknownFields += unknown
			metrics.SetPending(len(pending) - i - 1)
		}
	}
	p.logger.Info("details complete",
		zap.Int("nominations", stats.Nominations),
		zap.Int("people", stats.People),
		zap.Int("unknown_fields", stats.UnknownFields),
	)
	return stats, nil
}

func (p *Pipeline) detailPage(ctx context.Context, summary nomination.Summary) (people, unknown int, err error) {
	url := p.urls.Detail(summary.ID)
	start := time.Now()
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObservePage(metrics.StageDetail, metrics.StatusError, time.Since(start))
		return 0, 0, fmt.Errorf("detail %d: %w", summary.ID, err)
	}
	metrics.ObservePage(metrics.StageDetail, metrics.StatusSuccess, time.Since(start))

	page, err := parser.ParseDetail(doc)
	if err != nil {
		return 0, 0, fmt.Errorf("detail %d: %w", summary.ID, err)
	}
	persons, unknownFields := page.People(summary.ID)
	if len(unknownFields) > 0 {
		metrics.ObserveSkipped(metrics.StageDetail, len(unknownFields))
		p.logger.Debug("dropping unrecognized fields",
			zap.Int64("nomination_id", summary.ID),
			zap.Strings("fields", unknownFields),
		)
	}

	n, err := p.store.SaveDetail(ctx, summary.ID, persons)
	if err != nil {
		return 0, 0, fmt.Errorf("detail %d: %w", summary.ID, err)
	}
	metrics.ObservePeople(n)
	if err := p.store.MarkFetched(ctx, summary.ID); err != nil {
		return 0, 0, fmt.Errorf("detail %d: %w", summary.ID, err)
	}
	p.logger.Info("nomination stored",
		zap.Int64("nomination_id", summary.ID),
		zap.String("prize", summary.Category.DisplayName()),
		zap.Int("year", summary.Year),
		zap.Int("people", len(persons)),
		zap.Int("inserted", n),
	)
	return n, len(unknownFields), nil
}

// Export writes every stored nomination to the configured export path and
// returns the written URI and row count.
func (p *Pipeline) Export(ctx context.Context) (string, int, error) {
	records, err := p.store.AllRecords(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("load records: %w", err)
	}
	uri, rows, err := p.exporter.Export(ctx, records, p.cfg.ExportPath)
	if err != nil {
		return "", 0, err
	}
	metrics.ObserveExport(rows)
	return uri, rows, nil
}
