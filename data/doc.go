// Package data defines the types that flow between the API, the message
// bus, the store, and the scrape workers. Everything here is plain data;
// the wire format (JSON) mirrors the response shapes the legacy service
// returned, so fields that look odd (flattened contest maps, nullable
// history points) are odd on purpose.
package data
