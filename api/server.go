package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Index reports service identity, matching the legacy scraper's root
// endpoint.
type Index struct{}

// ServeHTTP serves the root endpoint.
func (Index) ServeHTTP(res http.ResponseWriter, _ *http.Request) {
	_ = encode(res, struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}{"Codolio Scraper API", "active"})
}

// Health is the liveness endpoint
type Health struct{}

// ServeHTTP serves health checks.
func (Health) ServeHTTP(res http.ResponseWriter, _ *http.Request) {
	_ = encode(res, struct {
		Status string `json:"status"`
	}{"healthy"})
}

// authHandler guards a handler with bearer token validation
type authHandler struct {
	auth Authorizer
	next http.Handler
}

func (h authHandler) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if !h.auth.Valid(req) {
		http.Error(res, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.next.ServeHTTP(res, req)
}

// App is a struct that implements http.Handler interface
type App struct {
	IndexHandler    http.Handler
	HealthHandler   http.Handler
	ProfilesHandler http.Handler
	V1Handler       http.Handler
	DebugHandler    http.Handler
}

// Top level handler for http requests
func (h *App) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if req.URL.Path == "/" {
		h.IndexHandler.ServeHTTP(res, req)
		return
	}

	head, rest := ShiftPath(req.URL.Path)
	switch head {
	case "health":
		req.URL.Path = rest
		h.HealthHandler.ServeHTTP(res, req)
	case "v1":
		req.URL.Path = rest
		h.V1Handler.ServeHTTP(res, req)
	case "debug":
		req.URL.Path = rest
		h.DebugHandler.ServeHTTP(res, req)
	default:
		// everything else is a profile request with the platform
		// as the first path element
		h.ProfilesHandler.ServeHTTP(res, req)
	}
}

// V1 handles v1 api requests
type V1 struct {
	auth        Authorizer
	AuthHandler http.Handler
	JobsHandler http.Handler
	Admin       *Admin
}

// Top level handler for v1 requests. Jobs and auth are public, the
// rest is operator surface behind the authorizer.
func (h *V1) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	var head string
	head, req.URL.Path = ShiftPath(req.URL.Path)

	switch head {
	case "auth":
		h.AuthHandler.ServeHTTP(res, req)
		return
	case "jobs":
		h.JobsHandler.ServeHTTP(res, req)
		return
	}

	if !h.auth.Valid(req) {
		http.Error(res, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch head {
	case "status":
		h.Admin.Status(res, req)
	case "workers":
		h.Admin.Workers(res, req)
	case "cache":
		h.Admin.Cache(res, req)
	default:
		http.Error(res, "Not Found", http.StatusNotFound)
	}
}

// ServerOptions configure the http api server
type ServerOptions struct {
	Port string
	Nc   *nats.Conn
	// Auth validates admin requests, AlwaysValid when nil
	Auth Authorizer
	// AdminPass is exchanged for tokens on /v1/auth
	AdminPass string
	// ScrapeTimeout bounds the synchronous profile endpoints
	ScrapeTimeout time.Duration
	// AdminTimeout bounds store admin and job requests
	AdminTimeout time.Duration
	// PlatformOK reports whether a platform is configured
	PlatformOK func(string) bool
	// Debug turns on http request logging
	Debug bool
}

// Server is the http api server instance
type Server struct {
	options ServerOptions
	events  *Events
	handler http.Handler

	mu sync.Mutex
	ln net.Listener

	chStop chan struct{}
}

// NewServer creates a new http api server
func NewServer(o ServerOptions) *Server {
	if o.Auth == nil {
		o.Auth = AlwaysValid{}
	}
	if o.ScrapeTimeout <= 0 {
		o.ScrapeTimeout = 5 * time.Minute
	}
	if o.AdminTimeout <= 0 {
		o.AdminTimeout = 5 * time.Second
	}

	events := NewEvents(o.Nc, o.AdminTimeout)

	app := &App{
		IndexHandler:    Index{},
		HealthHandler:   Health{},
		ProfilesHandler: NewProfilesHandler(o.Nc, o.ScrapeTimeout, o.PlatformOK),
		V1Handler: &V1{
			auth:        o.Auth,
			AuthHandler: NewAuthHandler(o.AdminPass, o.Auth),
			JobsHandler: NewJobsHandler(o.Nc, events, o.AdminTimeout, o.PlatformOK),
			Admin:       NewAdminHandler(o.Nc, o.AdminTimeout),
		},
		DebugHandler: authHandler{
			auth: o.Auth,
			next: NewDevtoolsHandler(o.Nc, o.AdminTimeout),
		},
	}

	var handler http.Handler = corsAllowAll(app)
	if o.Debug {
		handler = NewHTTPLogger("HTTP: ").Handler(handler)
	}

	return &Server{
		options: o,
		events:  events,
		handler: handler,
		chStop:  make(chan struct{}),
	}
}

// Run the server until Stop is called
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", ":"+s.options.Port)
	if err != nil {
		return fmt.Errorf("Error listening on port %v: %w", s.options.Port, err)
	}

	sub, err := s.events.Subscribe()
	if err != nil {
		ln.Close()
		return fmt.Errorf("Subscribe progress error: %w", err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log.Println("Starting http server, port:", s.options.Port)

	srv := &http.Server{Handler: s.handler}

	// buffered so the serve goroutine can exit after Shutdown even
	// though the stop path never reads it
	chErr := make(chan error, 1)
	go func() {
		chErr <- srv.Serve(ln)
	}()

	select {
	case err := <-chErr:
		_ = sub.Unsubscribe()
		s.events.Close()
		return err

	case <-s.chStop:
		if err := sub.Unsubscribe(); err != nil {
			log.Println("Error unsubscribing progress:", err)
		}
		// ends the open event streams so Shutdown can finish
		s.events.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
		}

		log.Println("Http server stopped")
		return nil
	}
}

// Stop the server
func (s *Server) Stop(_ error) {
	close(s.chStop)
}

// WaitStart waits for the server to be listening
func (s *Server) WaitStart(ctx context.Context) error {
	for {
		s.mu.Lock()
		ln := s.ln
		s.mu.Unlock()

		if ln != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.New("Server wait timeout or canceled")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Addr returns the bound listen address, which is how tests find the
// real port when configured with port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
