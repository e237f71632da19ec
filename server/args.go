package server

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/install"
	"github.com/SambhavSurthi/codolio-scraper/scrape"
	"github.com/SambhavSurthi/codolio-scraper/store"
	"github.com/SambhavSurthi/codolio-scraper/system"
)

// Args parses common scraper command line options. Most settings also
// have a CS_* environment fallback; the HTTP port additionally honors
// the conventional PORT variable, defaulting to 5000.
func Args(args []string, appVersion string) (Options, error) {
	defaultNatsServer := "nats://127.0.0.1:4222"

	// =============================================
	// Command line options
	// =============================================
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	flagPort := flags.String("port", "", "HTTP port, overrides $PORT")
	flagDebugHTTP := flags.Bool("debugHttp", false, "dump http requests")
	flagDebugLifecycle := flags.Bool("debugLifecycle", false, "debug program lifecycle")
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagNatsDisableServer := flags.Bool("natsDisableServer", false, "disable NATS server (if you want to run NATS separately)")
	flagStore := flags.String("store", "codoscraper.sqlite", "cache store file")
	flagSelectors := flags.String("selectors", "selectors.yaml", "selector profile, created with defaults if missing")
	flagWorkers := flags.Int("workers", 0, "number of browser workers, default 1")
	flagBrowserBin := flags.String("browserBin", "", "Chromium binary for workers")
	flagNoSandbox := flags.Bool("noSandbox", false, "disable the Chromium sandbox (containers running as root)")
	flagAuthToken := flags.String("token", "", "NATS auth token")
	flagAdminPass := flags.String("adminPass", "", "password for the admin endpoints, open when empty")
	flagSyslog := flags.Bool("syslog", false, "log to syslog instead of stdout")

	if err := flags.Parse(args); err != nil {
		return Options{}, err
	}

	// =============================================
	// General setup
	// =============================================

	dataDir := os.Getenv("CS_DATA")
	if dataDir == "" {
		dataDir = "./"
	}

	storeFilePath := path.Join(dataDir, *flagStore)

	// make sure there is a selector profile for operators to edit
	selectorsPath := path.Join(dataDir, *flagSelectors)
	if err := scrape.WriteDefaultConfig(selectorsPath); err != nil {
		return Options{}, fmt.Errorf("Error writing selector profile: %w", err)
	}

	// =============================================
	// NATS stuff
	// =============================================

	natsPort := 4222

	natsPortE := os.Getenv("CS_NATS_PORT")
	if natsPortE != "" {
		n, err := strconv.Atoi(natsPortE)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing CS_NATS_PORT: %v", err)
		}
		natsPort = n
	}

	// monitoring endpoint is off unless asked for
	natsHTTPPort := 0

	natsHTTPPortE := os.Getenv("CS_NATS_HTTP_PORT")
	if natsHTTPPortE != "" {
		n, err := strconv.Atoi(natsHTTPPortE)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing CS_NATS_HTTP_PORT: %v", err)
		}
		natsHTTPPort = n
	}

	natsServer := *flagNatsServer
	// only consider env if command line option is something different
	// than default
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("CS_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	natsTLSCert := os.Getenv("CS_NATS_TLS_CERT")
	natsTLSKey := os.Getenv("CS_NATS_TLS_KEY")
	natsTLSTimeoutS := os.Getenv("CS_NATS_TLS_TIMEOUT")

	natsTLSTimeout := 0.5

	if natsTLSTimeoutS != "" {
		var err error
		natsTLSTimeout, err = strconv.ParseFloat(natsTLSTimeoutS, 64)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing nats TLS timeout: %v", err)
		}
	}

	authToken := os.Getenv("CS_AUTH_TOKEN")
	if *flagAuthToken != "" {
		authToken = *flagAuthToken
	}

	adminPass := os.Getenv("CS_ADMIN_PASS")
	if *flagAdminPass != "" {
		adminPass = *flagAdminPass
	}

	if *flagSyslog {
		err := system.EnableSyslog()
		if err != nil {
			return Options{}, fmt.Errorf("Error enabling syslog: %v", err)
		}
	}

	// =============================================
	// Scraping
	// =============================================

	workers := 1

	workersE := os.Getenv("CS_WORKERS")
	if workersE != "" {
		n, err := strconv.Atoi(workersE)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing CS_WORKERS: %v", err)
		}
		workers = n
	}
	if *flagWorkers > 0 {
		workers = *flagWorkers
	}

	browserBin := os.Getenv("CS_BROWSER_BIN")
	if *flagBrowserBin != "" {
		browserBin = *flagBrowserBin
	}
	if browserBin == "" {
		// fall back to a browser installed with `codoscraper install-browser`
		browserBin = install.InstalledBrowser(dataDir)
	}

	var cacheTTL time.Duration

	cacheTTLE := os.Getenv("CS_CACHE_TTL")
	if cacheTTLE != "" {
		var err error
		cacheTTL, err = time.ParseDuration(cacheTTLE)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing CS_CACHE_TTL: %v", err)
		}
	}

	// =============================================
	// Metrics and alerting
	// =============================================

	var influx *store.InfluxConfig

	if url := os.Getenv("CS_INFLUX_URL"); url != "" {
		influx = &store.InfluxConfig{
			URL:    url,
			Token:  os.Getenv("CS_INFLUX_TOKEN"),
			Org:    os.Getenv("CS_INFLUX_ORG"),
			Bucket: os.Getenv("CS_INFLUX_BUCKET"),
		}
	}

	var twilioTo []string

	if to := os.Getenv("CS_TWILIO_TO"); to != "" {
		for _, num := range strings.Split(to, ",") {
			num = strings.TrimSpace(num)
			if num != "" {
				twilioTo = append(twilioTo, num)
			}
		}
	}

	// =============================================
	// HTTP port, conventional PORT variable wins
	// over nothing but the -port flag
	// =============================================

	port := *flagPort
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "5000"
	}

	if _, err := strconv.Atoi(port); err != nil {
		return Options{}, fmt.Errorf("Error parsing PORT %q: %v", port, err)
	}

	o := Options{
		StoreFile:         storeFilePath,
		SelectorsFile:     selectorsPath,
		Port:              port,
		Workers:           workers,
		BrowserBin:        browserBin,
		NoSandbox:         *flagNoSandbox,
		DebugHTTP:         *flagDebugHTTP,
		DebugLifecycle:    *flagDebugLifecycle,
		NatsServer:        natsServer,
		NatsDisableServer: *flagNatsDisableServer,
		NatsPort:          natsPort,
		NatsHTTPPort:      natsHTTPPort,
		NatsTLSCert:       natsTLSCert,
		NatsTLSKey:        natsTLSKey,
		NatsTLSTimeout:    natsTLSTimeout,
		AuthToken:         authToken,
		AdminPass:         adminPass,
		CacheTTL:          cacheTTL,
		AppVersion:        appVersion,
		Influx:            influx,
		TwilioSID:         os.Getenv("CS_TWILIO_SID"),
		TwilioAuth:        os.Getenv("CS_TWILIO_AUTH"),
		TwilioFrom:        os.Getenv("CS_TWILIO_FROM"),
		TwilioTo:          twilioTo,
	}

	return o, nil
}
