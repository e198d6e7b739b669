package app

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagesift/pagesift/internal/fetch"
	"github.com/pagesift/pagesift/internal/harvest"
	"github.com/pagesift/pagesift/internal/model"
	"github.com/pagesift/pagesift/internal/pdfseg"
	"github.com/pagesift/pagesift/internal/robots"
)

// pageFetcher abstracts the two fetch paths so the pipeline can be tested
// without a network.
type pageFetcher interface {
	get(ctx context.Context, url string) ([]byte, error)
	render(ctx context.Context, url string) ([]byte, error)
}

type httpFetcher struct {
	client *fetch.Client
}

func (f *httpFetcher) get(ctx context.Context, url string) ([]byte, error) {
	return f.client.Get(ctx, url)
}

func (f *httpFetcher) render(ctx context.Context, url string) ([]byte, error) {
	return f.client.RenderAndFetch(ctx, url)
}

// indexIndicators mark a URL as a section listing rather than a single
// article.
var indexIndicators = []string{
	"/blog", "/posts", "/articles", "/learn", "/topics",
	"/resource", "/resources", "/news",
}

func isIndexURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, ind := range indexIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func (a *App) processSource(ctx context.Context, source string) []model.ContentItem {
	if strings.HasSuffix(strings.ToLower(source), ".pdf") {
		return a.scrapePDF(source)
	}
	if isIndexURL(source) {
		return a.scrapeIndex(ctx, source)
	}
	return a.scrapeArticle(ctx, source)
}

func (a *App) scrapePDF(path string) []model.ContentItem {
	items, err := a.segmenter.ParseFile(path)
	if err != nil {
		if errors.Is(err, pdfseg.ErrNoReader) && !a.pdfWarned {
			a.pdfWarned = true
			log.Warn().Err(err).Msg("pdf support unavailable; skipping pdf sources")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("pdf parse failed; skipping source")
		}
		return nil
	}
	return items
}

// scrapeIndex discovers post URLs on an index page and extracts each one in
// turn, throttled by the configured delay. When no URL qualifies, the page
// itself is segmented for embedded posts.
func (a *App) scrapeIndex(ctx context.Context, indexURL string) []model.ContentItem {
	body, err := a.fetchPage(ctx, indexURL)
	if err != nil {
		log.Warn().Err(err).Str("url", indexURL).Msg("index fetch failed; skipping source")
		return nil
	}

	postURLs := a.harvester.DiscoverPostURLs(body, indexURL)
	log.Info().Int("count", len(postURLs)).Str("url", indexURL).Msg("discovered post urls")

	if len(postURLs) == 0 {
		embedded := a.detector.ExtractEmbeddedPosts(body, indexURL)
		if len(embedded) == 0 {
			log.Info().Str("url", indexURL).Msg("no post urls and no embedded content")
			return nil
		}
		log.Info().Int("count", len(embedded)).Str("url", indexURL).Msg("found embedded posts")
		if len(embedded) > a.cfg.MaxPostsPerSource {
			embedded = embedded[:a.cfg.MaxPostsPerSource]
		}
		return embedded
	}

	if len(postURLs) > a.cfg.MaxPostsPerSource {
		postURLs = postURLs[:a.cfg.MaxPostsPerSource]
	}

	delay := a.cfg.RequestDelay
	var rules robots.Rules
	if a.robots != nil {
		r, rerr := a.robots.RulesFor(ctx, indexURL)
		if rerr != nil {
			log.Debug().Err(rerr).Str("url", indexURL).Msg("robots lookup failed; proceeding without rules")
		} else {
			rules = r
			// A stricter crawl delay from robots.txt wins over our own.
			if cd := rules.CrawlDelayFor(a.cfg.UserAgent); cd != nil && *cd > delay {
				delay = *cd
			}
		}
	}

	var items []model.ContentItem
	for i, postURL := range postURLs {
		if i > 0 {
			sleep(ctx, delay)
		}
		if a.robots != nil && !rules.IsAllowed(a.cfg.UserAgent, urlPath(postURL)) {
			log.Debug().Str("url", postURL).Msg("disallowed by robots; skipping")
			continue
		}
		log.Info().Int("n", i+1).Int("of", len(postURLs)).Str("url", postURL).Msg("scraping post")
		items = append(items, a.scrapeArticle(ctx, postURL)...)
	}
	return items
}

// scrapeArticle fetches one page and extracts it into at most one item.
// Sub-threshold content yields nothing rather than an empty item.
func (a *App) scrapeArticle(ctx context.Context, pageURL string) []model.ContentItem {
	body, err := a.fetchPage(ctx, pageURL)
	if err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("fetch failed; skipping url")
		return nil
	}

	art := a.extractor.Extract(body, pageURL)
	content := strings.TrimSpace(art.Markdown)
	if len(content) < a.cfg.Thresholds.MinArticleChars {
		log.Warn().Str("url", pageURL).Msg("no meaningful content extracted")
		return nil
	}

	title := art.Title
	if title == "" {
		title = pageURL
	}
	log.Info().Str("title", truncate(title, 50)).Str("url", pageURL).Msg("extracted article")

	return []model.ContentItem{{
		Title:       title,
		Content:     content,
		ContentType: model.TypeBlog,
		SourceURL:   pageURL,
		Author:      art.Author,
	}}
}

// fetchPage runs the fast path and falls back to the rendering fetch when
// the fast path fails outright or returns a page with suspiciously few
// hyperlinks.
func (a *App) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	body, err := a.fetcher.get(ctx, pageURL)
	if err != nil {
		rendered, rerr := a.fetcher.render(ctx, pageURL)
		if rerr != nil {
			return nil, err
		}
		return rendered, nil
	}

	if harvest.CountAnchors(body) <= a.cfg.Thresholds.RenderLinkThreshold {
		rendered, rerr := a.fetcher.render(ctx, pageURL)
		if rerr == nil && len(rendered) > 0 {
			return rendered, nil
		}
		if rerr != nil && !errors.Is(rerr, fetch.ErrRenderUnavailable) {
			log.Debug().Err(rerr).Str("url", pageURL).Msg("render fetch failed; using fast-path body")
		}
	}
	return body, nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	p := u.Path
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
