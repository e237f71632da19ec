// Package worker runs scrape requests from the NATS queue group
// against a headless browser. Each worker serializes its scrapes,
// publishes job progress and periodic health reports, and restarts its
// browser after repeated failures.
package worker
