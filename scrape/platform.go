package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-rod/rod"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

var reMaxRating = regexp.MustCompile(`\(max\s*:\s*(\d+)\)`)

// maxRatingFromHTML pulls "(max : NNNN)" out of the raw page markup.
// The span holding it has no stable class, so a page-wide regex is the
// sturdiest way to find it.
func maxRatingFromHTML(html string) string {
	m := reMaxRating.FindStringSubmatch(html)
	if m == nil {
		return "0"
	}
	return m[1]
}

// scrapeContest walks a platform page that carries contest data:
// stats, heatmap, problem counts, the ratings block, and one graph
// sweep for the platform's contest history.
func (s *Scraper) scrapeContest(ctx context.Context, page *rod.Page, cfg Config, username, platform string, emit ProgressFunc) (*data.Profile, error) {
	if err := s.open(ctx, page, cfg, cfg.PlatformURL(username, platform), emit); err != nil {
		return nil, err
	}

	p := data.NewProfile()

	emit("basicStats", "")
	for key, xpath := range cfg.SimpleStats {
		p.BasicStats[key] = textByXPath(page, xpath)
	}

	emit("heatmap", "")
	p.Heatmap = s.heatmap(page, cfg)

	emit("problemsSolved", "")
	p.ProblemsSolved["total_solved"] = textByXPath(page, cfg.TotalSolvedXpath)
	for _, level := range cfg.Levels {
		p.ProblemsSolved[strings.ToLower(level)] = textByXPath(page, fmt.Sprintf(cfg.LevelXpathTmpl, level))
	}

	rank := p.Rankings()

	emit("contestRankings", "")
	rating := textByXPath(page, cfg.ContestRatingXpath)
	if rating == "0" {
		rating = textByXPath(page, cfg.ContestRatingFallback)
	}
	rank.Summary["rating"] = rating

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("Error reading page content: %w", err)
	}
	rank.Summary["maxRating"] = maxRatingFromHTML(html)

	rank.Summary["total_contests"] = textByXPath(page, cfg.ContestTotalXpath)

	if cfg.HasLevel(platform) {
		lvl := textByXPath(page, cfg.ContestLevelXpath)
		if lvl == "0" {
			lvl = ""
		}
		rank.Summary["contestLevel"] = lvl
	}

	emit("history", platform)
	if err := sleepCtx(ctx, cfg.Sweep.PreSweep()); err != nil {
		return nil, err
	}
	snaps, err := s.sweep(ctx, page, cfg)
	if err != nil {
		return nil, fmt.Errorf("Error sweeping contest history: %w", err)
	}
	rank.History["contest_history"] = data.RefineSnapshots(snaps)

	return p, nil
}

// scrapeGeneric walks a platform page without contest data: stats,
// heatmap, and problem counts only.
func (s *Scraper) scrapeGeneric(ctx context.Context, page *rod.Page, cfg Config, username, platform string, emit ProgressFunc) (*data.Profile, error) {
	if err := s.open(ctx, page, cfg, cfg.PlatformURL(username, platform), emit); err != nil {
		return nil, err
	}

	p := data.NewProfile()

	emit("basicStats", "")
	for key, xpath := range cfg.SimpleStats {
		p.BasicStats[key] = textByXPath(page, xpath)
	}

	emit("heatmap", "")
	p.Heatmap = s.heatmap(page, cfg)

	emit("problemsSolved", "")
	p.ProblemsSolved["total_solved"] = textByXPath(page, cfg.TotalSolvedXpath)
	for _, level := range cfg.Levels {
		p.ProblemsSolved[strings.ToLower(level)] = textByXPath(page, fmt.Sprintf(cfg.LevelXpathTmpl, level))
	}

	return p, nil
}
