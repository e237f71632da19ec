package scrape

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// EngineOptions configure the managed browser.
type EngineOptions struct {
	// Bin is the Chromium binary to launch. Empty lets the launcher
	// resolve one (including its own managed download).
	Bin string
	// NoSandbox disables the Chromium sandbox, needed when the
	// process runs as root in a container.
	NoSandbox bool
}

// Engine owns one headless Chromium and hands out pages configured for
// scraping. Pages from one engine share the browser, so a worker wraps
// an engine and serializes its scrapes.
type Engine struct {
	opts  EngineOptions
	store *Store
	log   *log.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	wsURL    string
	product  string
	restarts int
}

// NewEngine returns an engine that reads page settings from store.
func NewEngine(opts EngineOptions, store *Store) *Engine {
	return &Engine{
		opts:  opts,
		store: store,
		log:   log.New(os.Stderr, "Engine: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// Start launches the browser and connects to it.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")
	if e.opts.Bin != "" {
		l = l.Bin(e.opts.Bin)
	}
	if e.opts.NoSandbox {
		l = l.Set("no-sandbox")
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("Error launching browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("Error connecting to browser: %w", err)
	}

	ver, err := b.Version()
	if err != nil {
		_ = b.Close()
		l.Kill()
		return fmt.Errorf("Error reading browser version: %w", err)
	}

	// the selector profile knows which browsers it was tested on
	if min := e.store.Current().MinBrowserVersion; min != "" {
		if err := CheckBrowserVersion(ver.Product, min); err != nil {
			_ = b.Close()
			l.Kill()
			return err
		}
	}

	e.launcher = l
	e.browser = b
	e.wsURL = u
	e.product = ver.Product
	e.log.Println("Browser connected:", ver.Product)
	return nil
}

// Stop closes the browser and cleans up its user data dir.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			e.log.Println("Error closing browser:", err)
			e.launcher.Kill()
		}
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
	e.wsURL = ""
}

// Restart replaces a wedged browser with a fresh one. Launch failures
// are retried with backoff, sleeping outside the lock so status readers
// are not held up.
func (e *Engine) Restart() error {
	e.mu.Lock()
	e.stopLocked()
	e.restarts++
	restarts := e.restarts
	e.mu.Unlock()

	e.log.Println("Restarting browser, restart count:", restarts)

	var err error
	for attempt := 0; ; attempt++ {
		e.mu.Lock()
		err = e.startLocked()
		e.mu.Unlock()
		if err == nil {
			return nil
		}
		if attempt >= 3 {
			break
		}
		delay := expBackoff(attempt+1, 30*time.Second)
		e.log.Printf("Error starting browser, retry in %v: %v", delay, err)
		time.Sleep(delay)
	}

	return err
}

// Restarts returns how many times the browser has been restarted.
func (e *Engine) Restarts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restarts
}

// Version returns the connected browser's product string.
func (e *Engine) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.product
}

// DevtoolsURL returns the browser's devtools websocket endpoint.
func (e *Engine) DevtoolsURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wsURL
}

// Page opens a blank page bound to ctx with the configured viewport and
// user agent. The caller must Close it.
func (e *Engine) Page(ctx context.Context) (*rod.Page, error) {
	e.mu.Lock()
	b := e.browser
	e.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("browser not started")
	}

	cfg := e.store.Current()

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("Error creating page: %w", err)
	}
	page = page.Context(ctx)

	if cfg.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: cfg.UserAgent,
		})
		if err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("Error setting user agent: %w", err)
		}
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("Error setting viewport: %w", err)
	}

	return page, nil
}
