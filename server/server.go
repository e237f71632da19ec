// Package server wires the scraper service together: embedded NATS
// server, cache store, browser workers, selector config watcher, and
// the HTTP API, all supervised as one unit.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/oklog/run"

	"github.com/SambhavSurthi/codolio-scraper/api"
	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/msg"
	"github.com/SambhavSurthi/codolio-scraper/scrape"
	"github.com/SambhavSurthi/codolio-scraper/store"
	"github.com/SambhavSurthi/codolio-scraper/worker"
)

// ErrServerStopped is returned when the server is stopped
var ErrServerStopped = errors.New("Server stopped")

// Options used for starting the scraper service
type Options struct {
	StoreFile string
	// SelectorsFile is the selector profile to load and watch. Empty
	// runs on the built-in profile without hot reload.
	SelectorsFile string
	// Port is the HTTP listen port
	Port string
	// Workers is how many browser workers to run
	Workers int
	// WorkerName is the base name for workers, hostname when empty
	WorkerName string
	// Scraper overrides the browser scraper in every worker. Tests
	// use this to run the stack without Chromium.
	Scraper           worker.Scraper
	BrowserBin        string
	NoSandbox         bool
	DebugHTTP         bool
	DebugLifecycle    bool
	NatsServer        string
	NatsDisableServer bool
	NatsPort          int
	NatsHTTPPort      int
	NatsTLSCert       string
	NatsTLSKey        string
	NatsTLSTimeout    float64
	AuthToken         string
	// AdminPass protects the admin endpoints, which are open when it
	// is empty
	AdminPass  string
	CacheTTL   time.Duration
	AppVersion string
	Influx     *store.InfluxConfig
	TwilioSID  string
	TwilioAuth string
	TwilioFrom string
	TwilioTo   []string
}

// Server represents a scraper server process
type Server struct {
	nc          *nats.Conn
	options     Options
	natsServer  *natsserver.Server
	httpAPI     *api.Server
	chStop      chan struct{}
	chWaitStart chan struct{}
}

// NewServer creates a new server
func NewServer(o Options) (*Server, *nats.Conn, error) {
	nc, err := bus.Connect(o.NatsServer, o.AuthToken, "Server")

	return &Server{
		nc:          nc,
		options:     o,
		chStop:      make(chan struct{}),
		chWaitStart: make(chan struct{}),
	}, nc, err
}

// Run the server -- only returns if there is an error
func (s *Server) Run() error {
	var g run.Group

	logLS := func(m ...any) {}

	if s.options.DebugLifecycle {
		logLS = func(m ...any) {
			log.Println(m...)
		}
	}

	o := s.options

	// the selector config feeds the workers and tells the API which
	// platforms exist
	var cfg scrape.Config
	var err error

	if o.SelectorsFile != "" {
		cfg, err = scrape.LoadConfig(o.SelectorsFile)
	} else {
		cfg, err = scrape.DefaultConfig()
	}

	if err != nil {
		return fmt.Errorf("Error loading selector config: %w", err)
	}

	selectors := scrape.NewStore(cfg)

	// workers and the http api hold bus subscriptions against the
	// store, so the store waits on this before shutting down
	var storeWg sync.WaitGroup

	// everything below holds a nats connection, so the nats server
	// waits on this before shutting down
	var natsWg sync.WaitGroup

	// ====================================
	// Nats server
	// ====================================
	natsOptions := natsServerOptions{
		Port:       o.NatsPort,
		HTTPPort:   o.NatsHTTPPort,
		Auth:       o.AuthToken,
		TLSCert:    o.NatsTLSCert,
		TLSKey:     o.NatsTLSKey,
		TLSTimeout: o.NatsTLSTimeout,
	}

	if !o.NatsDisableServer {
		s.natsServer, err = newNatsServer(natsOptions)
		if err != nil {
			return fmt.Errorf("Error setting up nats server: %v", err)
		}

		g.Add(func() error {
			s.natsServer.Start()
			s.natsServer.WaitForShutdown()
			logLS("LS: Exited: nats server")
			return fmt.Errorf("NATS server stopped")
		}, func(err error) {
			go func() {
				natsWg.Wait()
				s.natsServer.Shutdown()
				logLS("LS: Shutdown: nats server")
			}()
		})
	}

	// ====================================
	// Cache store
	// ====================================

	scrStore, err := store.NewStore(store.Params{
		File:     o.StoreFile,
		Nc:       s.nc,
		Version:  o.AppVersion,
		CacheTTL: o.CacheTTL,
		Influx:   o.Influx,
	})

	if err != nil {
		return fmt.Errorf("Error creating store: %w", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second*10)

	natsWg.Add(1)
	g.Add(func() error {
		defer natsWg.Done()
		err := scrStore.Run()
		logLS("LS: Exited: store")
		return err
	}, func(err error) {
		// run in a goroutine else this blocking Stop would block the
		// other interrupt handlers
		go func() {
			storeWg.Wait()
			waitCancel()
			scrStore.Stop(err)
			logLS("LS: Shutdown: store")
		}()
	})

	// ====================================
	// Scrape workers
	// ====================================

	var notifier msg.Notifier = msg.Log{}

	if o.TwilioSID != "" {
		notifier = msg.NewTwilio(o.TwilioSID, o.TwilioAuth, o.TwilioFrom, o.TwilioTo)
	}

	// one alert per class per hour is plenty
	notifier = msg.NewThrottle(notifier, time.Hour)

	workers := o.Workers
	if workers <= 0 {
		workers = 1
	}

	base := o.WorkerName
	if base == "" {
		base, err = os.Hostname()
		if err != nil {
			base = "worker"
		}
	}

	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("%v-%v", base, i)

		params := worker.Params{
			Nc:       s.nc,
			Name:     name,
			Scraper:  o.Scraper,
			Notifier: notifier,
		}

		var engine *scrape.Engine

		if params.Scraper == nil {
			engine = scrape.NewEngine(scrape.EngineOptions{
				Bin:       o.BrowserBin,
				NoSandbox: o.NoSandbox,
			}, selectors)
			params.Scraper = scrape.NewScraper(engine, selectors)
			params.Engine = engine
		}

		w := worker.NewWorker(params)

		storeWg.Add(1)
		natsWg.Add(1)
		g.Add(func() error {
			defer storeWg.Done()
			defer natsWg.Done()
			err := scrStore.WaitStart(waitCtx)
			if err != nil {
				logLS("LS: Exited:", name, "timeout waiting for store")
				return err
			}

			if engine != nil {
				if err := engine.Start(); err != nil {
					logLS("LS: Exited:", name, "browser failed")
					return fmt.Errorf("Error starting browser for %v: %w", name, err)
				}
				defer engine.Stop()
			}

			err = w.Run()
			logLS("LS: Exited: worker", name)
			return err
		}, func(err error) {
			w.Stop(err)
			logLS("LS: Shutdown: worker", name)
		})
	}

	// ====================================
	// Selector config watcher
	// ====================================

	if o.SelectorsFile != "" {
		watcher := scrape.NewWatcher(o.SelectorsFile, selectors)

		g.Add(func() error {
			err := watcher.Run()
			logLS("LS: Exited: selector watcher")
			return err
		}, func(err error) {
			watcher.Stop(err)
			logLS("LS: Shutdown: selector watcher")
		})
	}

	// ====================================
	// HTTP API
	// ====================================

	var auth api.Authorizer

	if o.AdminPass != "" {
		auth = scrStore.GetAuthorizer()
	}

	httpAPI := api.NewServer(api.ServerOptions{
		Port:      o.Port,
		Nc:        s.nc,
		Auth:      auth,
		AdminPass: o.AdminPass,
		PlatformOK: func(platform string) bool {
			_, err := selectors.Current().Mode(platform)
			return err == nil
		},
		Debug: o.DebugHTTP,
	})

	s.httpAPI = httpAPI

	storeWg.Add(1)
	natsWg.Add(1)
	g.Add(func() error {
		defer storeWg.Done()
		defer natsWg.Done()
		err := scrStore.WaitStart(waitCtx)
		if err != nil {
			logLS("LS: Exited: http api timeout waiting for store")
			return err
		}

		err = httpAPI.Run()
		logLS("LS: Exited: http api")
		return err
	}, func(err error) {
		httpAPI.Stop(err)
		logLS("LS: Shutdown: http api")
	})

	// Give us a way to stop the server
	// and signal to waiters we have started
	chShutdown := make(chan struct{})
	g.Add(func() error {
		err := scrStore.WaitStart(waitCtx)
		if err != nil {
			logLS("LS: Exited: server stopper, timeout waiting for store")
			return err
		}

		err = httpAPI.WaitStart(waitCtx)
		if err != nil {
			logLS("LS: Exited: server stopper, timeout waiting for http api")
			return err
		}

		select {
		case <-s.chStop:
			logLS("LS: Exited: stop handler")
			return ErrServerStopped
		case <-chShutdown:
			logLS("LS: Exited: stop handler")
			return nil
		}
	}, func(_ error) {
		close(chShutdown)
		logLS("LS: Shutdown: stop handler")
	})

	chRunError := make(chan error)

	go func() {
		chRunError <- g.Run()
	}()

	var retErr error

done:
	for {
		select {
		// unblock any waits
		case <-s.chWaitStart:
			// No-op, reading channel is enough to unblock wait
		case retErr = <-chRunError:
			break done
		}
	}

	s.nc.Close()

	return retErr
}

// Stop server
func (s *Server) Stop(_ error) {
	close(s.chStop)
}

// Addr returns the bound address of the http api, empty until the
// listener is up. Tests configure port 0 and read the real port here.
func (s *Server) Addr() string {
	if s.httpAPI == nil {
		return ""
	}
	return s.httpAPI.Addr()
}

// WaitStart waits for the store and http api to start. Clients should
// wait for this to complete before sending requests.
func (s *Server) WaitStart(ctx context.Context) error {
	waitDone := make(chan struct{})

	go func() {
		// the following blocks until the main select loop runs, which
		// only happens after every component is registered
		s.chWaitStart <- struct{}{}
		close(waitDone)
	}()

	select {
	case <-ctx.Done():
		return errors.New("Server wait timeout or canceled")
	case <-waitDone:
		return nil
	}
}
