package server

import (
	"os"
	"path"
	"testing"
	"time"
)

func TestArgsPort(t *testing.T) {
	t.Setenv("CS_DATA", t.TempDir())
	t.Setenv("PORT", "")

	o, err := Args(nil, "test")
	if err != nil {
		t.Fatal("Error parsing args: ", err)
	}
	if o.Port != "5000" {
		t.Errorf("default port, exp: 5000, got: %v", o.Port)
	}

	t.Setenv("PORT", "6001")
	o, err = Args(nil, "test")
	if err != nil {
		t.Fatal("Error parsing args: ", err)
	}
	if o.Port != "6001" {
		t.Errorf("env port, exp: 6001, got: %v", o.Port)
	}

	// the flag wins over the environment
	o, err = Args([]string{"-port", "7001"}, "test")
	if err != nil {
		t.Fatal("Error parsing args: ", err)
	}
	if o.Port != "7001" {
		t.Errorf("flag port, exp: 7001, got: %v", o.Port)
	}

	t.Setenv("PORT", "http")
	if _, err := Args(nil, "test"); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestArgsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CS_DATA", dir)
	t.Setenv("PORT", "")
	t.Setenv("CS_WORKERS", "3")
	t.Setenv("CS_CACHE_TTL", "30m")
	t.Setenv("CS_TWILIO_TO", "+15551230000, +15551230001")
	t.Setenv("CS_INFLUX_URL", "http://localhost:8086")
	t.Setenv("CS_INFLUX_BUCKET", "scrapes")

	o, err := Args(nil, "test")
	if err != nil {
		t.Fatal("Error parsing args: ", err)
	}

	if o.Workers != 3 {
		t.Errorf("workers, exp: 3, got: %v", o.Workers)
	}
	if o.CacheTTL != 30*time.Minute {
		t.Errorf("cache ttl, exp: 30m, got: %v", o.CacheTTL)
	}
	if len(o.TwilioTo) != 2 || o.TwilioTo[1] != "+15551230001" {
		t.Errorf("twilio to, got: %v", o.TwilioTo)
	}
	if o.Influx == nil || o.Influx.Bucket != "scrapes" {
		t.Errorf("influx config, got: %+v", o.Influx)
	}
	if o.StoreFile != path.Join(dir, "codoscraper.sqlite") {
		t.Errorf("store file, got: %v", o.StoreFile)
	}

	// the selector profile gets written out for operators to edit
	if _, err := os.Stat(path.Join(dir, "selectors.yaml")); err != nil {
		t.Error("selector profile not written: ", err)
	}

	t.Setenv("CS_WORKERS", "two")
	if _, err := Args(nil, "test"); err == nil {
		t.Error("expected error for invalid worker count")
	}
}
