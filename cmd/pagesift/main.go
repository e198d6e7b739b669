package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pagesift/pagesift/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath  string
		outputPath  string
		teamID      string
		sourcesFlag string
		maxPosts    int
		delay       time.Duration
		timeout     time.Duration
		userAgent   string
		cacheDir    string
		cacheMaxAge time.Duration
		cacheClear  bool
		robotsOn    bool
		bookAuthor  string
		chunkSize   int
		verbose     bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.StringVar(&outputPath, "output", "", "Path to write the output JSON (default scraped_content.json)")
	flag.StringVar(&teamID, "team.id", "", "Team identifier stamped into the output")
	flag.StringVar(&sourcesFlag, "sources", "", "Comma-separated source URLs or PDF paths (also accepted as positional args)")
	flag.IntVar(&maxPosts, "max.posts", 0, "Maximum posts scraped per index page (default 5)")
	flag.DurationVar(&delay, "delay", 0, "Delay between per-post fetches within one index (default 500ms)")
	flag.DurationVar(&timeout, "timeout", 0, "Per-request fetch timeout (default 20s)")
	flag.StringVar(&userAgent, "ua", "", "Custom User-Agent for fetches")
	flag.StringVar(&cacheDir, "cache.dir", "", "HTTP cache directory; empty disables caching")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&robotsOn, "robots", false, "Honor robots.txt rules and crawl delays for per-post fetches")
	flag.StringVar(&bookAuthor, "book.author", "", "Author attribution for items produced from PDF sources")
	flag.IntVar(&chunkSize, "book.chunkSize", 0, "Character budget per book chunk (default 2000)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		OutputPath:        outputPath,
		TeamID:            teamID,
		MaxPostsPerSource: maxPosts,
		RequestDelay:      delay,
		FetchTimeout:      timeout,
		UserAgent:         userAgent,
		CacheDir:          cacheDir,
		CacheMaxAge:       cacheMaxAge,
		CacheClear:        cacheClear,
		RespectRobots:     robotsOn,
		BookAuthor:        bookAuthor,
		ChunkSize:         chunkSize,
		Verbose:           verbose,
	}

	cfg.Sources = append(cfg.Sources, flag.Args()...)
	if s := strings.TrimSpace(sourcesFlag); s != "" {
		for _, part := range strings.Split(s, ",") {
			if v := strings.TrimSpace(part); v != "" {
				cfg.Sources = append(cfg.Sources, v)
			}
		}
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("read config file")
			os.Exit(1)
		}
		app.MergeFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if len(cfg.Sources) == 0 {
		fmt.Fprintln(os.Stderr, "no sources given; pass URLs or PDF paths as arguments")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		// Exit code policy: nonzero only when the whole run produced no
		// content; everything else completed with warnings.
		if errors.Is(err, app.ErrNoItems) {
			os.Exit(2)
		}
		os.Exit(0)
	}
}

func run(cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(context.Background())
}
