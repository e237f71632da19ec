// Package scrape drives a headless Chromium browser to extract
// competitive-programming profiles from codolio.com. The page structure
// (XPaths, CSS selectors, sweep timing) lives in a YAML config that can
// be reloaded at runtime, so selector rot can be patched without a
// redeploy. The package exposes one entry point, Scraper.Scrape, which
// dispatches to a full-profile, contest-page, or generic-page walk
// depending on the requested platform.
package scrape
