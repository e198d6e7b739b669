package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pagesift/pagesift/internal/cache"
	"github.com/pagesift/pagesift/internal/embed"
	"github.com/pagesift/pagesift/internal/extract"
	"github.com/pagesift/pagesift/internal/fetch"
	"github.com/pagesift/pagesift/internal/harvest"
	"github.com/pagesift/pagesift/internal/model"
	"github.com/pagesift/pagesift/internal/pdfseg"
	"github.com/pagesift/pagesift/internal/robots"
)

// ErrNoItems is returned when a full run produced zero content items. Per
// the exit code policy this is the only condition that exits nonzero.
var ErrNoItems = fmt.Errorf("no content items extracted")

// App sequences the scraping pipeline: fetch, classify, extract, assemble.
// Sources are processed one at a time; no state is shared across them
// beyond the output being appended to.
type App struct {
	cfg       Config
	fetcher   pageFetcher
	extractor *extract.Extractor
	harvester *harvest.Harvester
	detector  *embed.Detector
	segmenter *pdfseg.Segmenter
	robots    *robots.Manager
	httpCache *cache.HTTPCache

	pdfWarned bool
}

func New(cfg Config) (*App, error) {
	cfg.applyDefaults()

	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			_, _ = cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir}
	}

	a.fetcher = &httpFetcher{client: &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             a.httpCache,
		RedirectMaxHops:   5,
	}}
	a.extractor = &extract.Extractor{Min: cfg.Thresholds}
	a.harvester = &harvest.Harvester{Min: cfg.Thresholds}
	a.detector = &embed.Detector{Min: cfg.Thresholds}
	a.segmenter = &pdfseg.Segmenter{
		ChunkSize:   cfg.ChunkSize,
		MaxChapters: 8,
		BookAuthor:  cfg.BookAuthor,
		Min:         cfg.Thresholds,
	}
	if cfg.RespectRobots {
		a.robots = &robots.Manager{UserAgent: cfg.UserAgent}
	}
	return a, nil
}

// Run processes every configured source and writes the output artifact.
func (a *App) Run(ctx context.Context) error {
	out := a.Scrape(ctx)

	if err := writeOutput(a.cfg.OutputPath, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Int("items", len(out.Items)).Str("out", a.cfg.OutputPath).Msg("wrote output")

	if len(out.Items) == 0 {
		return ErrNoItems
	}
	return nil
}

// Scrape runs the pipeline for all sources and returns the assembled
// output. A failing source contributes zero items; it never stops the
// batch.
func (a *App) Scrape(ctx context.Context) model.ScrapedOutput {
	items := make([]model.ContentItem, 0)
	for _, source := range a.cfg.Sources {
		log.Info().Str("source", source).Msg("processing source")
		items = append(items, a.processSource(ctx, source)...)
	}
	return model.ScrapedOutput{TeamID: a.cfg.TeamID, Items: items}
}
