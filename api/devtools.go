package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koding/websocketproxy"
	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
)

var devtoolsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// devtools frontends connect from devtools:// origins
	CheckOrigin: func(*http.Request) bool { return true },
}

// Devtools proxies a websocket connection through to one worker's
// browser devtools endpoint, so a remote inspector can watch a live
// scrape:
//
//	GET /debug/devtools/{worker}
type Devtools struct {
	nc      *nats.Conn
	timeout time.Duration
}

// NewDevtoolsHandler returns a new devtools proxy handler
func NewDevtoolsHandler(nc *nats.Conn, timeout time.Duration) http.Handler {
	return &Devtools{nc: nc, timeout: timeout}
}

// ServeHTTP serves devtools proxy requests.
func (h *Devtools) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	var head string
	head, req.URL.Path = ShiftPath(req.URL.Path)
	if head != "devtools" {
		http.Error(res, "Not Found", http.StatusNotFound)
		return
	}

	var name string
	name, req.URL.Path = ShiftPath(req.URL.Path)
	if name == "" {
		http.Error(res, "worker name required", http.StatusBadRequest)
		return
	}

	var reply data.AdminReply
	err := bus.RequestJSON(h.nc, bus.SubjectAdmin("workers"), nil, &reply, h.timeout)
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	var target string
	for _, w := range reply.Workers {
		if w.Name == name {
			target = w.DevtoolsURL
			break
		}
	}

	if target == "" {
		http.Error(res, "no devtools for worker: "+name, http.StatusNotFound)
		return
	}

	u, err := url.Parse(target)
	if err != nil {
		http.Error(res, "Error parsing devtools url: "+err.Error(),
			http.StatusInternalServerError)
		return
	}

	proxy := websocketproxy.NewProxy(u)
	// the browser only answers on its exact devtools path
	proxy.Backend = func(*http.Request) *url.URL { return u }
	proxy.Upgrader = &devtoolsUpgrader
	proxy.ServeHTTP(res, req)
}
