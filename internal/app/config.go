package app

import (
	"time"

	"github.com/pagesift/pagesift/internal/model"
)

// Config holds runtime configuration for one scraper run. Precedence is
// flags > config file > environment > defaults; main assembles the final
// value before calling New.
type Config struct {
	// Sources are URLs or PDF paths, processed in order.
	Sources []string
	// OutputPath receives the ScrapedOutput JSON.
	OutputPath string
	// TeamID is an opaque identifier copied into the output.
	TeamID string

	// MaxPostsPerSource caps how many posts one index page contributes.
	MaxPostsPerSource int
	// RequestDelay is the pause between successive per-post fetches
	// within the same index.
	RequestDelay time.Duration
	// FetchTimeout bounds each fast-path fetch.
	FetchTimeout time.Duration
	UserAgent    string

	// Cache controls.
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// RespectRobots honors robots.txt rules and crawl delays for per-post
	// fetches. Off by default.
	RespectRobots bool

	// Book settings for PDF sources.
	BookAuthor string
	ChunkSize  int

	Verbose bool

	// Thresholds tunes the heuristic cascade; the zero value means
	// defaults.
	Thresholds model.Thresholds
}

func (c *Config) applyDefaults() {
	if c.TeamID == "" {
		c.TeamID = "pagesift"
	}
	if c.OutputPath == "" {
		c.OutputPath = "scraped_content.json"
	}
	if c.MaxPostsPerSource <= 0 {
		c.MaxPostsPerSource = 5
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = 500 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "pagesift/1.0 (+https://github.com/pagesift/pagesift)"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 2000
	}
	if c.Thresholds == (model.Thresholds{}) {
		c.Thresholds = model.DefaultThresholds()
	}
}
