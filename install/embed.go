// Package install downloads the pinned browser build and carries the
// embedded files a host install needs.
package install

import "embed"

// Content holds the systemd unit shipped with release builds
//
//go:embed codoscraper.service
var Content embed.FS
