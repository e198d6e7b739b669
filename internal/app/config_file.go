package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections map
// naturally to the flag namespace.
type FileConfig struct {
	Sources []string `yaml:"sources" json:"sources"`
	Output  string   `yaml:"output" json:"output"`
	TeamID  string   `yaml:"teamID" json:"teamID"`

	Max struct {
		Posts int `yaml:"posts" json:"posts"`
	} `yaml:"max" json:"max"`

	Fetch struct {
		Delay     time.Duration `yaml:"delay" json:"delay"`
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
		UserAgent string        `yaml:"userAgent" json:"userAgent"`
		Robots    bool          `yaml:"robots" json:"robots"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Book struct {
		Author    string `yaml:"author" json:"author"`
		ChunkSize int    `yaml:"chunkSize" json:"chunkSize"`
	} `yaml:"book" json:"book"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// MergeFileConfig fills unset cfg fields from fc. Explicit cfg values win.
func MergeFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = append(cfg.Sources, fc.Sources...)
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.TeamID == "" {
		cfg.TeamID = fc.TeamID
	}
	if cfg.MaxPostsPerSource == 0 {
		cfg.MaxPostsPerSource = fc.Max.Posts
	}
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = fc.Fetch.Delay
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if !cfg.RespectRobots {
		cfg.RespectRobots = fc.Fetch.Robots
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear {
		cfg.CacheClear = fc.Cache.Clear
	}
	if cfg.BookAuthor == "" {
		cfg.BookAuthor = fc.Book.Author
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = fc.Book.ChunkSize
	}
	if !cfg.Verbose {
		cfg.Verbose = fc.Verbose
	}
}
