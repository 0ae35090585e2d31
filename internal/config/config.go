package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-project configuration file.
const ProjectConfigName = ".routenav.yaml"

// Config represents the complete routenav configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Routes  RoutesConfig `yaml:"routes" json:"routes"`
	Cache   CacheConfig  `yaml:"cache" json:"cache"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Server  ServerConfig `yaml:"server" json:"server"`
}

// PathsConfig configures which files enter the file index.
type PathsConfig struct {
	// Exclude holds doublestar globs matched against the slash-separated
	// path relative to the project root.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// RoutesConfig selects the files handed to the route parser.
type RoutesConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// CacheConfig configures the persisted snapshots.
type CacheConfig struct {
	// Timeout is how long a snapshot stays valid after its last scan or delta.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Path is the SQLite database holding both snapshots.
	// Empty uses ~/.routenav/cache.db.
	Path string `yaml:"path" json:"path"`
	// Backend is "sqlite" (default) or "memory".
	Backend string `yaml:"backend" json:"backend"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last event before queued
	// changes are applied.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
	// FullRefreshSchedule is an optional cron spec that forces a full
	// rescan while watching, e.g. "@every 30m".
	FullRefreshSchedule string `yaml:"full_refresh_schedule" json:"full_refresh_schedule"`
	// MaxPending caps the number of distinct paths queued in one window.
	MaxPending int `yaml:"max_pending" json:"max_pending"`
}

// SearchConfig holds the ranking knobs. The defaults reproduce the weights
// the navigator has always shipped with.
type SearchConfig struct {
	FileNameWeight   float64 `yaml:"file_name_weight" json:"file_name_weight"`
	FilePathWeight   float64 `yaml:"file_path_weight" json:"file_path_weight"`
	FileFolderWeight float64 `yaml:"file_folder_weight" json:"file_folder_weight"`
	// FileThreshold is the minimum combined fuzzy score for a file.
	FileThreshold float64 `yaml:"file_threshold" json:"file_threshold"`

	RouteURLWeight     float64 `yaml:"route_url_weight" json:"route_url_weight"`
	RouteMemberWeight  float64 `yaml:"route_member_weight" json:"route_member_weight"`
	RouteOwnerWeight   float64 `yaml:"route_owner_weight" json:"route_owner_weight"`
	RouteCommentWeight float64 `yaml:"route_comment_weight" json:"route_comment_weight"`
	// RouteThreshold is the minimum combined fuzzy score for a route.
	RouteThreshold float64 `yaml:"route_threshold" json:"route_threshold"`
	// TypoSimilarity is the Jaro-Winkler floor for the typo-tolerant
	// route layer (0 disables it).
	TypoSimilarity float32 `yaml:"typo_similarity" json:"typo_similarity"`

	NameMatchLimit  int `yaml:"name_match_limit" json:"name_match_limit"`
	ShortQueryLimit int `yaml:"short_query_limit" json:"short_query_limit"`
	FallbackLimit   int `yaml:"fallback_limit" json:"fallback_limit"`
	MixedRouteLimit int `yaml:"mixed_route_limit" json:"mixed_route_limit"`
	MixedFileLimit  int `yaml:"mixed_file_limit" json:"mixed_file_limit"`
	// MaxResults caps a single-mode result list.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// ResultCacheSize is the number of query results kept in the LRU.
	ResultCacheSize int `yaml:"result_cache_size" json:"result_cache_size"`
}

// ServerConfig configures logging and the optional metrics endpoint.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
	// MetricsAddr serves Prometheus metrics while watching or serving,
	// e.g. "127.0.0.1:9464". Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/target/**",
	"**/build/**",
	"**/.git/**",
	"**/dist/**",
	"**/.vscode/**",
	"**/.idea/**",
	"**/logs/**",
	"**/*.log",
	"**/*.class",
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Exclude: append([]string(nil), defaultExcludePatterns...),
		},
		Routes: RoutesConfig{
			Include: []string{"**/*.java"},
			Exclude: []string{"**/node_modules/**", "**/target/**", "**/build/**"},
		},
		Cache: CacheConfig{
			Timeout: 5 * time.Minute,
			Path:    "",
			Backend: "sqlite",
		},
		Watch: WatchConfig{
			Debounce:   1200 * time.Millisecond,
			MaxPending: 10000,
		},
		Search: SearchConfig{
			FileNameWeight:     3,
			FilePathWeight:     1,
			FileFolderWeight:   0.5,
			FileThreshold:      0.1,
			RouteURLWeight:     3,
			RouteMemberWeight:  1.5,
			RouteOwnerWeight:   0.8,
			RouteCommentWeight: 1,
			RouteThreshold:     0.5,
			TypoSimilarity:     0.85,
			NameMatchLimit:     50,
			ShortQueryLimit:    100,
			FallbackLimit:      50,
			MixedRouteLimit:    20,
			MixedFileLimit:     30,
			MaxResults:         100,
			ResultCacheSize:    256,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// DataDir returns ~/.routenav, falling back to the temp dir.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".routenav")
	}
	return filepath.Join(home, ".routenav")
}

// CachePath returns the cache database for the workspace at root. An
// explicit cache.path wins; otherwise each workspace gets its own file
// under ~/.routenav/cache named by a hash of its root.
func (c *Config) CachePath(root string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	sum := xxhash.Sum64String(filepath.Clean(root))
	return filepath.Join(DataDir(), "cache", fmt.Sprintf("%016x.db", sum))
}

// GetUserConfigPath returns the path to the user/global configuration file:
//   - $XDG_CONFIG_HOME/routenav/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/routenav/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "routenav", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "routenav", "config.yaml")
	}
	return filepath.Join(home, ".config", "routenav", "config.yaml")
}

// loadUserConfig loads the user configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var cfg Config
	if err := readYAML(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/routenav/config.yaml)
//  3. Project config (.routenav.yaml in project root)
//  4. Environment variables (ROUTENAV_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads .routenav.yaml, or .routenav.yml as a fallback.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigName, ".routenav.yml"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		var parsed Config
		if err := readYAML(path, &parsed); err != nil {
			return err
		}
		c.mergeWith(&parsed)
		return nil
	}
	return nil
}

func readYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Exclusions extend the defaults; route globs replace them.
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = appendUnique(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if len(other.Routes.Include) > 0 {
		c.Routes.Include = other.Routes.Include
	}
	if len(other.Routes.Exclude) > 0 {
		c.Routes.Exclude = other.Routes.Exclude
	}

	if other.Cache.Timeout != 0 {
		c.Cache.Timeout = other.Cache.Timeout
	}
	if other.Cache.Path != "" {
		c.Cache.Path = other.Cache.Path
	}
	if other.Cache.Backend != "" {
		c.Cache.Backend = other.Cache.Backend
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.FullRefreshSchedule != "" {
		c.Watch.FullRefreshSchedule = other.Watch.FullRefreshSchedule
	}
	if other.Watch.MaxPending != 0 {
		c.Watch.MaxPending = other.Watch.MaxPending
	}

	mergeFloat(&c.Search.FileNameWeight, other.Search.FileNameWeight)
	mergeFloat(&c.Search.FilePathWeight, other.Search.FilePathWeight)
	mergeFloat(&c.Search.FileFolderWeight, other.Search.FileFolderWeight)
	mergeFloat(&c.Search.FileThreshold, other.Search.FileThreshold)
	mergeFloat(&c.Search.RouteURLWeight, other.Search.RouteURLWeight)
	mergeFloat(&c.Search.RouteMemberWeight, other.Search.RouteMemberWeight)
	mergeFloat(&c.Search.RouteOwnerWeight, other.Search.RouteOwnerWeight)
	mergeFloat(&c.Search.RouteCommentWeight, other.Search.RouteCommentWeight)
	mergeFloat(&c.Search.RouteThreshold, other.Search.RouteThreshold)
	if other.Search.TypoSimilarity != 0 {
		c.Search.TypoSimilarity = other.Search.TypoSimilarity
	}
	mergeInt(&c.Search.NameMatchLimit, other.Search.NameMatchLimit)
	mergeInt(&c.Search.ShortQueryLimit, other.Search.ShortQueryLimit)
	mergeInt(&c.Search.FallbackLimit, other.Search.FallbackLimit)
	mergeInt(&c.Search.MixedRouteLimit, other.Search.MixedRouteLimit)
	mergeInt(&c.Search.MixedFileLimit, other.Search.MixedFileLimit)
	mergeInt(&c.Search.MaxResults, other.Search.MaxResults)
	mergeInt(&c.Search.ResultCacheSize, other.Search.ResultCacheSize)

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.MetricsAddr != "" {
		c.Server.MetricsAddr = other.Server.MetricsAddr
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func appendUnique(base []string, extra ...string) []string {
	seen := make(map[string]bool, len(base))
	for _, p := range base {
		seen[p] = true
	}
	for _, p := range extra {
		if !seen[p] {
			base = append(base, p)
			seen[p] = true
		}
	}
	return base
}

// applyEnvOverrides applies ROUTENAV_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROUTENAV_CACHE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.Timeout = d
		}
	}
	if v := os.Getenv("ROUTENAV_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("ROUTENAV_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("ROUTENAV_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Watch.Debounce = d
		}
	}
	if v := os.Getenv("ROUTENAV_FULL_REFRESH_SCHEDULE"); v != "" {
		c.Watch.FullRefreshSchedule = v
	}
	if v := os.Getenv("ROUTENAV_EXCLUDE"); v != "" {
		c.Paths.Exclude = appendUnique(c.Paths.Exclude, splitList(v)...)
	}
	if v := os.Getenv("ROUTENAV_ROUTE_INCLUDE"); v != "" {
		c.Routes.Include = splitList(v)
	}
	if v := os.Getenv("ROUTENAV_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("ROUTENAV_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("ROUTENAV_RESULT_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.ResultCacheSize = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c.Cache.Timeout <= 0 {
		return fmt.Errorf("cache.timeout must be positive, got %s", c.Cache.Timeout)
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("cache.backend must be 'sqlite' or 'memory', got %s", c.Cache.Backend)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be non-negative, got %s", c.Watch.Debounce)
	}
	if c.Watch.MaxPending < 0 {
		return fmt.Errorf("watch.max_pending must be non-negative, got %d", c.Watch.MaxPending)
	}
	if c.Watch.FullRefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Watch.FullRefreshSchedule); err != nil {
			return fmt.Errorf("watch.full_refresh_schedule %q: %w", c.Watch.FullRefreshSchedule, err)
		}
	}

	if len(c.Routes.Include) == 0 {
		return fmt.Errorf("routes.include must not be empty")
	}

	weights := map[string]float64{
		"file_name_weight":     c.Search.FileNameWeight,
		"file_path_weight":     c.Search.FilePathWeight,
		"file_folder_weight":   c.Search.FileFolderWeight,
		"route_url_weight":     c.Search.RouteURLWeight,
		"route_member_weight":  c.Search.RouteMemberWeight,
		"route_owner_weight":   c.Search.RouteOwnerWeight,
		"route_comment_weight": c.Search.RouteCommentWeight,
	}
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("search.%s must be non-negative, got %f", name, w)
		}
	}
	if c.Search.TypoSimilarity < 0 || c.Search.TypoSimilarity > 1 {
		return fmt.Errorf("search.typo_similarity must be between 0 and 1, got %f", c.Search.TypoSimilarity)
	}
	limits := map[string]int{
		"name_match_limit":  c.Search.NameMatchLimit,
		"short_query_limit": c.Search.ShortQueryLimit,
		"fallback_limit":    c.Search.FallbackLimit,
		"mixed_route_limit": c.Search.MixedRouteLimit,
		"mixed_file_limit":  c.Search.MixedFileLimit,
		"max_results":       c.Search.MaxResults,
	}
	for name, n := range limits {
		if n <= 0 {
			return fmt.Errorf("search.%s must be positive, got %d", name, n)
		}
	}
	if c.Search.ResultCacheSize < 0 {
		return fmt.Errorf("search.result_cache_size must be non-negative, got %d", c.Search.ResultCacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .routenav.yaml file. Falls back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) ||
			fileExists(filepath.Join(currentDir, ProjectConfigName)) {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			return absDir, nil
		}
		currentDir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
