// Package api serves the scraper's HTTP surface: the legacy profile
// endpoints, the v1 job and admin endpoints, and the devtools debug
// proxy. Handlers never touch the database directly; everything goes
// through NATS requests to the store and workers.
package api
