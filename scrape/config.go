package scrape

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/blang/semver/v4"
	"github.com/goccy/go-yaml"

	"github.com/SambhavSurthi/codolio-scraper/file"
)

// Scrape modes. Every supported platform maps to one of these; the
// special "codolio" pseudo platform always runs a full scrape.
const (
	ModeFull    = "full"
	ModeContest = "contest"
	ModeGeneric = "generic"
)

// PlatformFull is the pseudo platform name for the aggregate profile
// page that combines every site.
const PlatformFull = "codolio"

//go:embed selectors.yaml
var defaultSelectors []byte

// Tab describes one platform tab above the contest graph on the full
// profile page. Key doubles as the prefix for every derived output
// field, so its casing is part of the wire format and must not be
// normalized.
type Tab struct {
	Label string `yaml:"label"`
	Key   string `yaml:"key"`
}

// HistoryKey is the output field holding the tab's refined history.
func (t Tab) HistoryKey() string { return t.Key + "_rating" }

// TotalKey is the output field holding the tab's contest count.
func (t Tab) TotalKey() string { return t.Key + "_total_contest" }

// CurrentRatingKey is the output field for the tab's current rating.
func (t Tab) CurrentRatingKey() string { return t.Key + "_current_rating" }

// MaxRatingKey is the output field for the tab's max rating.
func (t Tab) MaxRatingKey() string { return t.Key + "_max-rating" }

// Heading is the upper-case section heading the ratings card uses.
func (t Tab) Heading() string { return strings.ToUpper(t.Key) }

// SweepConfig sets the synthetic pointer sweep over the contest graph.
// The defaults trace an SVG roughly 220 columns wide with a short
// vertical fan at each column, pausing briefly so the chart's hover
// handlers can fire.
type SweepConfig struct {
	XSteps        int `yaml:"xSteps"`
	YSweepPixels  int `yaml:"ySweepPixels"`
	YSweepStep    int `yaml:"ySweepStep"`
	EventPauseMs  int `yaml:"eventPauseMs"`
	ClickWaitSec  int `yaml:"clickWaitSec"`
	ClickSettleMs int `yaml:"clickSettleMs"`
	PreSweepSec   int `yaml:"preSweepSec"`
}

// EventPause is the delay between dispatched pointer events.
func (s SweepConfig) EventPause() time.Duration {
	return time.Duration(s.EventPauseMs) * time.Millisecond
}

// ClickWait is how long to wait for the panel to react to a tab click.
func (s SweepConfig) ClickWait() time.Duration {
	return time.Duration(s.ClickWaitSec) * time.Second
}

// ClickSettle is the extra settle after a panel change is detected.
func (s SweepConfig) ClickSettle() time.Duration {
	return time.Duration(s.ClickSettleMs) * time.Millisecond
}

// PreSweep is the settle before sweeping a single-platform graph.
func (s SweepConfig) PreSweep() time.Duration {
	return time.Duration(s.PreSweepSec) * time.Second
}

// Config holds everything about the target site that can rot: URLs,
// XPaths, CSS selectors, timing. It is loaded from YAML and can be
// swapped at runtime through a Store.
type Config struct {
	BaseURL   string `yaml:"baseUrl"`
	UserAgent string `yaml:"userAgent"`
	// MinBrowserVersion refuses browsers the selectors were never
	// tested on. Checked when a browser launches, empty disables it.
	MinBrowserVersion string `yaml:"minBrowserVersion"`
	ViewportWidth     int    `yaml:"viewportWidth"`
	ViewportHeight    int    `yaml:"viewportHeight"`

	NavTimeoutSec   int    `yaml:"navTimeoutSec"`
	ReadyTimeoutSec int    `yaml:"readyTimeoutSec"`
	ReadyText       string `yaml:"readyText"`
	SettleSec       int    `yaml:"settleSec"`

	GraphContainer     string `yaml:"graphContainer"`
	HeatmapSelector    string `yaml:"heatmapSelector"`
	HeatmapTooltipAttr string `yaml:"heatmapTooltipAttr"`

	Sweep SweepConfig `yaml:"sweep"`

	// Full profile page.
	BasicStats    map[string]string `yaml:"basicStats"`
	ProblemSites  map[string]string `yaml:"problemSites"`
	ProblemLabels []string          `yaml:"problemLabels"`
	Levels        []string          `yaml:"levels"`

	CompetitiveXpath  string `yaml:"competitiveXpath"`
	TabTotalTmpl      string `yaml:"tabTotalTmpl"`
	CurrentRatingTmpl string `yaml:"currentRatingTmpl"`
	ContestTabs       []Tab  `yaml:"contestTabs"`

	// Single platform pages.
	SimpleStats           map[string]string `yaml:"simpleStats"`
	TotalSolvedXpath      string            `yaml:"totalSolvedXpath"`
	LevelXpathTmpl        string            `yaml:"levelXpathTmpl"`
	ContestRatingXpath    string            `yaml:"contestRatingXpath"`
	ContestRatingFallback string            `yaml:"contestRatingFallback"`
	ContestTotalXpath     string            `yaml:"contestTotalXpath"`
	ContestLevelXpath     string            `yaml:"contestLevelXpath"`
	LevelPlatforms        []string          `yaml:"levelPlatforms"`

	// Platform name to scrape mode.
	Platforms map[string]string `yaml:"platforms"`
}

// NavTimeout bounds page navigation.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// ReadyTimeout bounds the wait for the first recognizable page text.
func (c Config) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSec) * time.Second
}

// Settle is the render wait after a page loads.
func (c Config) Settle() time.Duration {
	return time.Duration(c.SettleSec) * time.Second
}

// ProfileURL returns the aggregate profile page for a user.
func (c Config) ProfileURL(username string) string {
	return c.BaseURL + "/profile/" + url.PathEscape(username) + "/problemSolving"
}

// PlatformURL returns the per-platform profile page for a user.
func (c Config) PlatformURL(username, platform string) string {
	return c.ProfileURL(username) + "/" + url.PathEscape(platform)
}

// Mode returns the scrape mode for a platform name, or an error if the
// platform is not configured.
func (c Config) Mode(platform string) (string, error) {
	if platform == PlatformFull {
		return ModeFull, nil
	}
	m, ok := c.Platforms[platform]
	if !ok {
		return "", fmt.Errorf("unknown platform: %v", platform)
	}
	return m, nil
}

// HasLevel reports whether the platform page carries a contest level
// heading (currently only codeforces).
func (c Config) HasLevel(platform string) bool {
	for _, p := range c.LevelPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Validate checks the config for the mistakes a hand-edited selector
// file is most likely to contain.
func (c Config) Validate() error {
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("baseUrl: %w", err)
	}
	if c.MinBrowserVersion != "" {
		if _, err := semver.ParseTolerant(c.MinBrowserVersion); err != nil {
			return fmt.Errorf("minBrowserVersion %v: %w", c.MinBrowserVersion, err)
		}
	}
	if c.GraphContainer == "" {
		return fmt.Errorf("graphContainer must be set")
	}
	if c.HeatmapSelector == "" || c.HeatmapTooltipAttr == "" {
		return fmt.Errorf("heatmap selector and tooltip attribute must be set")
	}
	if c.Sweep.XSteps < 2 {
		return fmt.Errorf("sweep.xSteps must be at least 2, got %v", c.Sweep.XSteps)
	}
	if c.Sweep.YSweepStep <= 0 {
		return fmt.Errorf("sweep.ySweepStep must be positive, got %v", c.Sweep.YSweepStep)
	}
	if c.Sweep.YSweepPixels < 0 {
		return fmt.Errorf("sweep.ySweepPixels must not be negative, got %v", c.Sweep.YSweepPixels)
	}
	if len(c.ContestTabs) == 0 {
		return fmt.Errorf("contestTabs must not be empty")
	}
	for _, t := range c.ContestTabs {
		if t.Label == "" || t.Key == "" {
			return fmt.Errorf("contest tab needs label and key: %+v", t)
		}
	}
	for name, mode := range c.Platforms {
		if mode != ModeContest && mode != ModeGeneric {
			return fmt.Errorf("platform %v: unknown mode %v", name, mode)
		}
	}
	if c.Platforms[PlatformFull] != "" {
		return fmt.Errorf("platform name %v is reserved", PlatformFull)
	}
	return nil
}

// DefaultConfig returns the selector config compiled into the binary.
func DefaultConfig() (Config, error) {
	var c Config
	if err := yaml.Unmarshal(defaultSelectors, &c); err != nil {
		return Config{}, fmt.Errorf("Error parsing built-in selectors: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("built-in selectors invalid: %w", err)
	}
	return c, nil
}

// LoadConfig reads and validates a selector config file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("Error parsing %v: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}

// WriteDefaultConfig writes the embedded selector profile to path so
// operators have a file to edit. An existing file is left alone.
func WriteDefaultConfig(path string) error {
	if file.Exists(path) {
		return nil
	}
	return os.WriteFile(path, defaultSelectors, 0644)
}

// Store holds the active selector config and hands out consistent
// snapshots to concurrent scrapes while a reload swaps it.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore returns a Store seeded with cfg.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Current returns the active config.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set swaps the active config.
func (s *Store) Set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
