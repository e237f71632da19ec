package api

import (
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
)

// Admin answers the operator endpoints, all backed by the store's
// admin bus subjects:
//
//	GET    /v1/status                         service status
//	GET    /v1/workers                        worker reports
//	GET    /v1/cache                          cache stats
//	DELETE /v1/cache                          purge the whole cache
//	DELETE /v1/cache/{platform}/{username}    drop one profile
type Admin struct {
	nc      *nats.Conn
	timeout time.Duration
}

// NewAdminHandler returns a new admin request handler
func NewAdminHandler(nc *nats.Conn, timeout time.Duration) *Admin {
	return &Admin{nc: nc, timeout: timeout}
}

func (h *Admin) request(res http.ResponseWriter, op string, req interface{}) (data.AdminReply, bool) {
	var reply data.AdminReply
	err := bus.RequestJSON(h.nc, bus.SubjectAdmin(op), req, &reply, h.timeout)
	if err != nil {
		writeError(res, http.StatusInternalServerError, err.Error())
		return reply, false
	}

	if !reply.Success {
		writeError(res, http.StatusInternalServerError, reply.Error)
		return reply, false
	}

	return reply, true
}

// Status serves the service status report.
func (h *Admin) Status(res http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(res, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	reply, ok := h.request(res, "status", nil)
	if !ok {
		return
	}
	_ = encode(res, reply.Status)
}

// Workers serves the list of workers currently reporting in.
func (h *Admin) Workers(res http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(res, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	reply, ok := h.request(res, "workers", nil)
	if !ok {
		return
	}

	workers := reply.Workers
	if workers == nil {
		workers = []data.WorkerStatus{}
	}
	_ = encode(res, workers)
}

// Cache serves cache stats and cache invalidation.
func (h *Admin) Cache(res http.ResponseWriter, req *http.Request) {
	var platform string
	platform, req.URL.Path = ShiftPath(req.URL.Path)

	switch req.Method {
	case http.MethodGet:
		if platform != "" {
			http.Error(res, "Not Found", http.StatusNotFound)
			return
		}
		reply, ok := h.request(res, "cacheStats", nil)
		if !ok {
			return
		}
		_ = encode(res, reply.Stats)

	case http.MethodDelete:
		if platform == "" {
			reply, ok := h.request(res, "cachePurge", nil)
			if !ok {
				return
			}
			_ = encode(res, struct {
				Success bool  `json:"success"`
				Removed int64 `json:"removed"`
			}{true, reply.Removed})
			return
		}

		var username string
		username, req.URL.Path = ShiftPath(req.URL.Path)
		if username == "" {
			http.Error(res, "Not Found", http.StatusNotFound)
			return
		}

		_, ok := h.request(res, "cacheDelete",
			data.ScrapeRequest{Platform: platform, Username: username})
		if !ok {
			return
		}
		_ = encode(res, data.StandardResponse{Success: true,
			ID: platform + "/" + username})

	default:
		http.Error(res, "invalid method", http.StatusMethodNotAllowed)
	}
}
