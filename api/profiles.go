package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
)

// Profiles answers the scrape endpoints:
//
//	GET  /{platform}/{username}
//	POST /{platform}  {"username": "..."}
//
// A refresh=true query parameter skips the cache. The platform list is
// whatever the selector config names, codolio itself included.
type Profiles struct {
	nc         *nats.Conn
	timeout    time.Duration
	platformOK func(string) bool
}

// NewProfilesHandler returns a new profile request handler
func NewProfilesHandler(nc *nats.Conn, timeout time.Duration,
	platformOK func(string) bool) http.Handler {
	return &Profiles{nc: nc, timeout: timeout, platformOK: platformOK}
}

// ServeHTTP serves profile requests.
func (h *Profiles) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	var platform string
	platform, req.URL.Path = ShiftPath(req.URL.Path)

	if h.platformOK != nil && !h.platformOK(platform) {
		http.Error(res, "Not Found", http.StatusNotFound)
		return
	}

	var username string
	username, req.URL.Path = ShiftPath(req.URL.Path)

	refreshQ := req.URL.Query().Get("refresh")
	refresh := refreshQ == "1" || refreshQ == "true"

	switch req.Method {
	case http.MethodGet:
		// username comes from the path

	case http.MethodPost:
		var body struct {
			Username string `json:"username"`
			Refresh  bool   `json:"refresh"`
		}
		if err := decode(req.Body, &body); err != nil {
			writeError(res, http.StatusBadRequest, "Invalid request body")
			return
		}
		username = body.Username
		refresh = refresh || body.Refresh

	default:
		http.Error(res, "invalid method", http.StatusMethodNotAllowed)
		return
	}

	if strings.TrimSpace(username) == "" {
		writeError(res, http.StatusBadRequest, "Username required")
		return
	}

	scrapeReq := data.ScrapeRequest{
		Platform: platform,
		Username: strings.TrimSpace(username),
		Refresh:  refresh,
	}

	var result data.ScrapeResult
	err := bus.RequestJSON(h.nc, bus.SubjectProfileGet(platform), scrapeReq,
		&result, h.timeout)
	if err != nil {
		writeError(res, http.StatusInternalServerError,
			fmt.Sprintf("Error extracting data: %v", err))
		return
	}

	if !result.OK() {
		writeError(res, http.StatusInternalServerError,
			"Error extracting data: "+result.Error)
		return
	}

	// the legacy service echoed the username exactly as given
	_ = encode(res, data.ProfileResponse{
		Success:  true,
		Username: username,
		Data:     result.Profile,
	})
}
