package api

// this code based on https://github.com/unrolled/logger

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"
)

// HTTPLogger can be used to log http requests
type HTTPLogger struct {
	prefix string
	*log.Logger
}

// NewHTTPLogger returns a http logger
func NewHTTPLogger(prefix string) *HTTPLogger {
	return &HTTPLogger{
		prefix: prefix,
		Logger: log.New(os.Stdout, prefix, 0),
	}
}

// Handler wraps an HTTP handler and logs the request. Bodies are not
// dumped; profile responses run large and the event stream never ends.
func (l *HTTPLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		crw := newCustomResponseWriter(w)
		next.ServeHTTP(crw, r)

		l.Printf("(%s) \"%s %s\" %d %dB %v", r.RemoteAddr, r.Method,
			r.RequestURI, crw.status, crw.size,
			time.Since(start).Round(time.Millisecond))
	})
}

type customResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (c *customResponseWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *customResponseWriter) Write(b []byte) (int, error) {
	size, err := c.ResponseWriter.Write(b)
	c.size += size
	return size, err
}

// Flush is needed for the event stream to pass through
func (c *customResponseWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is needed for the devtools websocket proxy
func (c *customResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := c.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not implement the Hijacker interface")
}

func newCustomResponseWriter(w http.ResponseWriter) *customResponseWriter {
	// When WriteHeader is not called, it's safe to assume the status will be 200.
	return &customResponseWriter{
		ResponseWriter: w,
		status:         200,
	}
}
