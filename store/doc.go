// Package store owns the service's durable state: the sqlite profile
// cache and job table, plus the bus handlers that front them. The
// store is the only process that touches the database; the API and the
// scrape workers reach it over NATS.
package store
