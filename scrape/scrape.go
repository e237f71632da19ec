package scrape

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-rod/rod"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

// ProgressFunc receives stage updates while a scrape runs. Stage is a
// short identifier like "basicStats"; detail narrows it down when one
// stage repeats, like the platform label during history sweeps.
type ProgressFunc func(stage, detail string)

// Scraper runs profile scrapes against a browser engine. One Scraper
// runs one scrape at a time; the worker layer provides the queueing.
type Scraper struct {
	engine *Engine
	store  *Store
	log    *log.Logger
}

// NewScraper returns a scraper using engine for pages and store for
// the active selector config.
func NewScraper(engine *Engine, store *Store) *Scraper {
	return &Scraper{
		engine: engine,
		store:  store,
		log:    log.New(os.Stderr, "Scrape: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// Scrape runs the scrape req asks for. progress may be nil.
func (s *Scraper) Scrape(ctx context.Context, req data.ScrapeRequest, progress ProgressFunc) (*data.Profile, error) {
	cfg := s.store.Current()

	mode, err := cfg.Mode(req.Platform)
	if err != nil {
		return nil, err
	}

	emit := func(stage, detail string) {
		if progress != nil {
			progress(stage, detail)
		}
	}

	page, err := s.engine.Page(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.log.Println("Error closing page:", err)
		}
	}()

	switch mode {
	case ModeFull:
		return s.scrapeFull(ctx, page, cfg, req.Username, emit)
	case ModeContest:
		return s.scrapeContest(ctx, page, cfg, req.Username, req.Platform, emit)
	case ModeGeneric:
		return s.scrapeGeneric(ctx, page, cfg, req.Username, req.Platform, emit)
	}
	return nil, fmt.Errorf("unknown scrape mode %v", mode)
}

// open navigates to url and waits for the page to become readable.
// A missing ready marker is logged but not fatal, partial profiles
// still render most sections.
func (s *Scraper) open(ctx context.Context, page *rod.Page, cfg Config, url string, emit ProgressFunc) error {
	emit("load", url)

	if err := page.Timeout(cfg.NavTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("Error navigating to %v: %w", url, err)
	}
	if err := page.Timeout(cfg.NavTimeout()).WaitLoad(); err != nil {
		return fmt.Errorf("Error waiting for %v to load: %w", url, err)
	}

	if cfg.ReadyText != "" {
		if _, err := page.Timeout(cfg.ReadyTimeout()).ElementR("*", cfg.ReadyText); err != nil {
			s.log.Printf("Ready text %q not found, continuing: %v", cfg.ReadyText, err)
		}
	}

	return sleepCtx(ctx, cfg.Settle())
}
