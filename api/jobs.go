package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
)

// Jobs answers the asynchronous scrape endpoints:
//
//	POST /v1/jobs                  submit a scrape job
//	GET  /v1/jobs/{id}             job state
//	GET  /v1/jobs/{id}/events      progress event stream
type Jobs struct {
	nc         *nats.Conn
	events     *Events
	timeout    time.Duration
	platformOK func(string) bool
}

// NewJobsHandler returns a new job request handler
func NewJobsHandler(nc *nats.Conn, events *Events, timeout time.Duration,
	platformOK func(string) bool) http.Handler {
	return &Jobs{nc: nc, events: events, timeout: timeout, platformOK: platformOK}
}

// ServeHTTP serves job requests.
func (h *Jobs) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	var id string
	id, req.URL.Path = ShiftPath(req.URL.Path)

	if id == "" {
		if req.Method != http.MethodPost {
			http.Error(res, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		h.submit(res, req)
		return
	}

	var head string
	head, req.URL.Path = ShiftPath(req.URL.Path)

	if req.Method != http.MethodGet {
		http.Error(res, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	switch head {
	case "":
		h.get(res, id)
	case "events":
		h.events.stream(res, req, id)
	default:
		http.Error(res, "Not Found", http.StatusNotFound)
	}
}

func (h *Jobs) submit(res http.ResponseWriter, req *http.Request) {
	var sr data.ScrapeRequest
	if err := decode(req.Body, &sr); err != nil {
		writeError(res, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(sr.Username) == "" {
		writeError(res, http.StatusBadRequest, "Username required")
		return
	}
	if sr.Platform == "" {
		writeError(res, http.StatusBadRequest, "Platform required")
		return
	}
	if h.platformOK != nil && !h.platformOK(sr.Platform) {
		writeError(res, http.StatusBadRequest, "Unknown platform: "+sr.Platform)
		return
	}

	var jr data.JobReply
	err := bus.RequestJSON(h.nc, bus.SubjectJobSubmit(), sr, &jr, h.timeout)
	if err != nil {
		writeError(res, http.StatusInternalServerError, err.Error())
		return
	}

	if jr.Error != "" || jr.Job == nil {
		writeError(res, http.StatusInternalServerError, jr.Error)
		return
	}

	_ = encodeStatus(res, http.StatusAccepted, jr.Job)
}

func (h *Jobs) get(res http.ResponseWriter, id string) {
	var jr data.JobReply
	err := bus.RequestJSON(h.nc, bus.SubjectJobGet(id), nil, &jr, h.timeout)
	if err != nil {
		writeError(res, http.StatusInternalServerError, err.Error())
		return
	}

	if jr.Error == data.ErrJobNotFound.Error() {
		writeError(res, http.StatusNotFound, "Job not found")
		return
	}
	if jr.Error != "" || jr.Job == nil {
		writeError(res, http.StatusInternalServerError, jr.Error)
		return
	}

	_ = encode(res, jr.Job)
}
