package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment
// variables. Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.TeamID == "" {
		cfg.TeamID = os.Getenv("TEAM_ID")
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = os.Getenv("OUTPUT_PATH")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("USER_AGENT")
	}
	if cfg.BookAuthor == "" {
		cfg.BookAuthor = os.Getenv("BOOK_AUTHOR")
	}

	if cfg.MaxPostsPerSource == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("MAX_POSTS"))); err == nil && n > 0 {
			cfg.MaxPostsPerSource = n
		}
	}
	if cfg.ChunkSize == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("CHUNK_SIZE"))); err == nil && n > 0 {
			cfg.ChunkSize = n
		}
	}

	setDuration := func(dst *time.Duration, envKey string) {
		if *dst != 0 {
			return
		}
		if s := os.Getenv(envKey); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.RequestDelay, "REQUEST_DELAY")
	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.Verbose, "VERBOSE")
}
