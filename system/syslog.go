//go:build !windows

// Package system holds the small host integrations the scraper daemon
// needs when it runs as a service instead of in a container.
package system

import (
	"log"
	"log/syslog"
)

// EnableSyslog enables logging to syslog
func EnableSyslog() error {
	lgr, err := syslog.New(syslog.LOG_NOTICE, "CODOSCRAPER")
	if err != nil {
		return err
	}

	log.SetOutput(lgr)

	return nil
}
