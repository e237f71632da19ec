package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

// scrapeFull walks the aggregate profile page: stat cards, problem
// counters, the per-platform ratings grid, the submission heatmap, and
// finally a graph sweep per platform tab. The heatmap is read before
// the tab clicks because switching tabs re-renders the page section
// containing it.
func (s *Scraper) scrapeFull(ctx context.Context, page *rod.Page, cfg Config, username string, emit ProgressFunc) (*data.Profile, error) {
	if err := s.open(ctx, page, cfg, cfg.ProfileURL(username), emit); err != nil {
		return nil, err
	}

	p := data.NewProfile()

	emit("basicStats", "")
	for key, xpath := range cfg.BasicStats {
		p.BasicStats[key] = textByXPath(page, xpath)
	}

	emit("problemsSolved", "")
	for _, label := range cfg.ProblemLabels {
		v := evalString(page, statByLabelJS, label)
		if v == "" {
			v = "0"
		}
		p.ProblemsSolved[strings.ToLower(label)] = v
	}
	for _, level := range cfg.Levels {
		v := evalString(page, levelSiblingJS, level)
		if v == "" {
			v = "0"
		}
		p.ProblemsSolved[strings.ToLower(level)] = v
	}
	if cfg.CompetitiveXpath != "" {
		p.ProblemsSolved["competitive_programming"] = firstLine(textByXPath(page, cfg.CompetitiveXpath))
	}
	for key, xpath := range cfg.ProblemSites {
		p.ProblemsSolved[key] = textByXPath(page, xpath)
	}

	rank := p.Rankings()

	emit("contestRankings", "")
	rank.Summary["total_contests"] = p.BasicStats["total_contests"]
	for _, tab := range cfg.ContestTabs {
		rank.Summary[tab.TotalKey()] = textByXPath(page, fmt.Sprintf(cfg.TabTotalTmpl, tab.Label))
	}
	for _, tab := range cfg.ContestTabs {
		rank.Summary[tab.CurrentRatingKey()] = textByXPath(page, fmt.Sprintf(cfg.CurrentRatingTmpl, tab.Heading()))

		v := evalString(page, maxRatingJS, tab.Heading())
		if v == "" {
			v = "0"
		}
		rank.Summary[tab.MaxRatingKey()] = v
	}

	emit("heatmap", "")
	p.Heatmap = s.heatmap(page, cfg)

	for _, tab := range cfg.ContestTabs {
		emit("history", tab.Label)
		pts, err := s.tabHistory(ctx, page, cfg, tab)
		if err != nil {
			return nil, fmt.Errorf("Error sweeping %v history: %w", tab.Label, err)
		}
		rank.History[tab.HistoryKey()] = pts
	}

	return p, nil
}

// tabHistory clicks a platform tab and sweeps the graph below it. A
// tab that cannot be clicked yields an empty history rather than an
// error, matching how profiles without that platform render.
func (s *Scraper) tabHistory(ctx context.Context, page *rod.Page, cfg Config, tab Tab) ([]data.ContestPoint, error) {
	if !clickByText(page, tab.Label) {
		return []data.ContestPoint{}, nil
	}

	old, err := readPanel(page, cfg.GraphContainer)
	if err != nil {
		return nil, err
	}
	waitPanelChange(page, cfg, old)
	if err := sleepCtx(ctx, cfg.Sweep.ClickSettle()); err != nil {
		return nil, err
	}

	snaps, err := s.sweep(ctx, page, cfg)
	if err != nil {
		return nil, err
	}
	return data.RefineSnapshots(snaps), nil
}

// heatmap reads the submission calendar, best effort: a profile
// without one yields an empty list.
func (s *Scraper) heatmap(page *rod.Page, cfg Config) []data.HeatmapCell {
	res, err := page.Eval(heatmapJS, cfg.HeatmapSelector, cfg.HeatmapTooltipAttr)
	if err != nil {
		return []data.HeatmapCell{}
	}
	b, err := json.Marshal(res.Value)
	if err != nil {
		return []data.HeatmapCell{}
	}
	var rects []data.HeatmapRect
	if err := json.Unmarshal(b, &rects); err != nil {
		return []data.HeatmapCell{}
	}
	return data.ParseHeatmap(rects)
}

func firstLine(s string) string {
	if s == "" {
		return "0"
	}
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
