package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/api"
	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/exp/slices"
)

// Store answers profile, job, and admin requests over NATS, backed by
// the sqlite cache. Scrapes it cannot satisfy from the cache are
// forwarded to the worker queue group.
type Store struct {
	params        Params
	nc            *nats.Conn
	subscriptions map[string]*nats.Subscription
	db            *DbSqlite
	authorizer    api.Authorizer
	influx        *Influx
	started       time.Time

	mu      sync.Mutex
	workers map[string]workerSeen

	chStop      chan struct{}
	chWaitStart chan struct{}
}

type workerSeen struct {
	status data.WorkerStatus
	seen   time.Time
}

// Params are used to configure a store
type Params struct {
	File string
	Nc   *nats.Conn
	// Version is reported by the status admin op
	Version string
	// CacheTTL is how long a cached profile stays fresh
	CacheTTL time.Duration
	// ScrapeTimeout is the max wait for a queued scrape
	ScrapeTimeout time.Duration
	// JanitorPeriod is the cache/job cleanup interval
	JanitorPeriod time.Duration
	// JobRetention is how long finished jobs are kept
	JobRetention time.Duration
	// WorkerExpiry drops workers that have been silent longer than this
	WorkerExpiry time.Duration
	// Influx enables scrape metrics when set
	Influx *InfluxConfig
}

// NewStore creates a new NATS client for handling scrape requests
func NewStore(p Params) (*Store, error) {
	if p.CacheTTL <= 0 {
		p.CacheTTL = 15 * time.Minute
	}
	if p.ScrapeTimeout <= 0 {
		p.ScrapeTimeout = 5 * time.Minute
	}
	if p.JanitorPeriod <= 0 {
		p.JanitorPeriod = time.Minute
	}
	if p.JobRetention <= 0 {
		p.JobRetention = 24 * time.Hour
	}
	if p.WorkerExpiry <= 0 {
		p.WorkerExpiry = 45 * time.Second
	}

	db, err := NewSqliteDb(p.File)
	if err != nil {
		return nil, fmt.Errorf("Error opening db: %v", err)
	}

	authorizer, err := api.NewKey(db.JWTKey())
	if err != nil {
		return nil, fmt.Errorf("Error creating authorizer: %v", err)
	}

	var influx *Influx
	if p.Influx != nil {
		influx = NewInflux(p.Influx)
	}

	return &Store{
		params:        p,
		nc:            p.Nc,
		db:            db,
		authorizer:    authorizer,
		influx:        influx,
		started:       time.Now(),
		subscriptions: make(map[string]*nats.Subscription),
		workers:       make(map[string]workerSeen),
		chStop:        make(chan struct{}),
		chWaitStart:   make(chan struct{}),
	}, nil
}

// GetAuthorizer returns a type that can be used in JWT auth mechanisms
func (st *Store) GetAuthorizer() api.Authorizer {
	return st.authorizer
}

// Run store until Stop is called, handling bus requests as they come in
func (st *Store) Run() error {
	nc := st.nc
	var err error

	subs := []struct {
		name    string
		subject string
		handler nats.MsgHandler
	}{
		{"profileGet", bus.SubjectProfileGetAll(), st.handleProfileGet},
		{"jobSubmit", bus.SubjectJobSubmit(), st.handleJobSubmit},
		{"jobGet", bus.SubjectJobGetAll(), st.handleJobGet},
		{"progress", bus.SubjectScrapeProgressAll(), st.handleProgress},
		{"workerStatus", bus.SubjectWorkerStatusAll(), st.handleWorkerStatus},
		{"admin.cacheStats", bus.SubjectAdmin("cacheStats"), st.handleCacheStats},
		{"admin.cachePurge", bus.SubjectAdmin("cachePurge"), st.handleCachePurge},
		{"admin.cacheDelete", bus.SubjectAdmin("cacheDelete"), st.handleCacheDelete},
		{"admin.workers", bus.SubjectAdmin("workers"), st.handleWorkers},
		{"admin.status", bus.SubjectAdmin("status"), st.handleStatus},
	}

	for _, s := range subs {
		if st.subscriptions[s.name], err = nc.Subscribe(s.subject, s.handler); err != nil {
			return fmt.Errorf("Subscribe %v error: %w", s.name, err)
		}
	}

	janitor := time.NewTicker(st.params.JanitorPeriod)
	defer janitor.Stop()

done:
	for {
		select {
		case <-st.chWaitStart:
			// don't need to do anything as simply reading this
			// channel will unblock the caller
		case <-janitor.C:
			st.janitor()
		case <-st.chStop:
			log.Println("Store stopped")
			break done
		}
	}

	// clean up
	for k := range st.subscriptions {
		err := st.subscriptions[k].Unsubscribe()
		if err != nil {
			log.Printf("Error unsubscribing from %v: %v\n", k, err)
		}
	}

	if st.influx != nil {
		st.influx.Close()
	}

	st.db.Close()

	return nil
}

// Stop the store
func (st *Store) Stop(_ error) {
	close(st.chStop)
}

// WaitStart waits for store to start
func (st *Store) WaitStart(ctx context.Context) error {
	waitDone := make(chan struct{})

	go func() {
		// the following will block until the main store select
		// loop starts
		st.chWaitStart <- struct{}{}
		close(waitDone)
	}()

	select {
	case <-ctx.Done():
		return errors.New("Store wait timeout or canceled")
	case <-waitDone:
		// all is well
		return nil
	}
}

func (st *Store) reply(msg *nats.Msg, v interface{}) {
	if msg.Reply == "" {
		return
	}
	if err := bus.RespondJSON(msg, v); err != nil {
		log.Println("Error replying to", msg.Subject, ":", err)
	}
}

func (st *Store) handleProfileGet(msg *nats.Msg) {
	// scrapes can take a minute or more, so handle each request in
	// its own goroutine and keep the subscription draining
	go st.profileGet(msg)
}

func (st *Store) profileGet(msg *nats.Msg) {
	var req data.ScrapeRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			st.reply(msg, data.ScrapeResult{Error: fmt.Sprintf("Error decoding request: %v", err)})
			return
		}
	}

	if req.Platform == "" {
		req.Platform = bus.LastToken(msg.Subject)
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		st.reply(msg, data.ScrapeResult{Request: req, Error: "Username required"})
		return
	}

	if !req.Refresh {
		cached, err := st.db.Profile(req.Platform, req.Username)
		switch {
		case err == nil && time.Since(cached.FetchedAt) <= st.params.CacheTTL:
			cached.Request = req
			st.writeMetrics(cached)
			st.reply(msg, cached)
			return
		case err != nil && !errors.Is(err, data.ErrProfileNotFound):
			log.Println("Error reading profile cache:", err)
		}
	}

	st.reply(msg, st.scrape(req))
}

// scrape forwards a request to the worker queue group and caches the
// result if it succeeded.
func (st *Store) scrape(req data.ScrapeRequest) data.ScrapeResult {
	var res data.ScrapeResult
	err := bus.RequestJSON(st.nc, bus.SubjectScrapeQueue(req.Platform), req,
		&res, st.params.ScrapeTimeout)

	switch {
	case errors.Is(err, nats.ErrNoResponders):
		res = data.ScrapeResult{Request: req, Error: "no scrape workers available"}
	case errors.Is(err, nats.ErrTimeout):
		res = data.ScrapeResult{Request: req, Error: "scrape timed out"}
	case err != nil:
		res = data.ScrapeResult{Request: req, Error: err.Error()}
	}

	if res.OK() {
		if err := st.db.UpProfile(res); err != nil {
			log.Println("Error caching profile:", err)
		}
	}

	st.writeMetrics(res)
	return res
}

func (st *Store) writeMetrics(res data.ScrapeResult) {
	if st.influx == nil {
		return
	}
	st.influx.WriteResult(res)
}

func (st *Store) handleJobSubmit(msg *nats.Msg) {
	var req data.ScrapeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		st.reply(msg, data.JobReply{Error: fmt.Sprintf("Error decoding request: %v", err)})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		st.reply(msg, data.JobReply{Error: "Username required"})
		return
	}
	if req.Platform == "" {
		st.reply(msg, data.JobReply{Error: "Platform required"})
		return
	}

	now := time.Now()
	job := data.Job{
		ID:       uuid.New().String(),
		Platform: req.Platform,
		Username: req.Username,
		State:    data.JobQueued,
		Created:  now,
		Updated:  now,
	}

	if err := st.db.UpJob(job); err != nil {
		st.reply(msg, data.JobReply{Error: fmt.Sprintf("Error storing job: %v", err)})
		return
	}

	st.reply(msg, data.JobReply{Job: &job})

	go st.runJob(job, req.Refresh)
}

func (st *Store) runJob(job data.Job, refresh bool) {
	var res data.ScrapeResult
	haveRes := false

	if !refresh {
		cached, err := st.db.Profile(job.Platform, job.Username)
		if err == nil && time.Since(cached.FetchedAt) <= st.params.CacheTTL {
			res = cached
			haveRes = true
			st.writeMetrics(cached)
		}
	}

	if !haveRes {
		res = st.scrape(data.ScrapeRequest{
			ID:       job.ID,
			Platform: job.Platform,
			Username: job.Username,
			Refresh:  refresh,
		})
	}

	// re-read so worker assignments recorded from progress events
	// are not lost
	if latest, err := st.db.Job(job.ID); err == nil {
		job = latest
	}

	now := time.Now()
	job.Updated = now
	job.ElapsedMs = res.ElapsedMs
	if res.Worker != "" {
		job.Worker = res.Worker
	}
	if res.OK() {
		job.State = data.JobDone
		job.Error = ""
	} else {
		job.State = data.JobError
		job.Error = res.Error
	}

	if err := st.db.UpJob(job); err != nil {
		log.Println("Error updating job:", err)
	}

	p := data.Progress{
		JobID:  job.ID,
		State:  job.State,
		Detail: job.Error,
		Worker: job.Worker,
		Time:   now,
	}
	if err := bus.PublishJSON(st.nc, bus.SubjectScrapeProgress(job.ID), p); err != nil {
		log.Println("Error publishing job progress:", err)
	}
}

func (st *Store) handleJobGet(msg *nats.Msg) {
	id := bus.LastToken(msg.Subject)
	job, err := st.db.Job(id)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			st.reply(msg, data.JobReply{Error: data.ErrJobNotFound.Error()})
		} else {
			st.reply(msg, data.JobReply{Error: fmt.Sprintf("Error reading job: %v", err)})
		}
		return
	}
	st.reply(msg, data.JobReply{Job: &job})
}

// handleProgress records worker stage events on the job row. Terminal
// transitions are written by runJob, not here.
func (st *Store) handleProgress(msg *nats.Msg) {
	var p data.Progress
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		log.Println("Error decoding progress:", err)
		return
	}

	if p.State != data.JobActive || p.JobID == "" {
		return
	}

	job, err := st.db.Job(p.JobID)
	if err != nil || job.Done() {
		return
	}

	job.State = data.JobActive
	if p.Worker != "" {
		job.Worker = p.Worker
	}
	job.Updated = p.Time
	if err := st.db.UpJob(job); err != nil {
		log.Println("Error updating job:", err)
	}
}

func (st *Store) handleWorkerStatus(msg *nats.Msg) {
	var ws data.WorkerStatus
	if err := json.Unmarshal(msg.Data, &ws); err != nil {
		log.Println("Error decoding worker status:", err)
		return
	}
	if ws.Name == "" {
		ws.Name = bus.LastToken(msg.Subject)
	}

	st.mu.Lock()
	st.workers[ws.Name] = workerSeen{status: ws, seen: time.Now()}
	st.mu.Unlock()
}

func (st *Store) workerList() []data.WorkerStatus {
	st.mu.Lock()
	defer st.mu.Unlock()

	ret := make([]data.WorkerStatus, 0, len(st.workers))
	for _, w := range st.workers {
		ret = append(ret, w.status)
	}

	slices.SortFunc(ret, func(a, b data.WorkerStatus) int {
		return strings.Compare(a.Name, b.Name)
	})

	return ret
}

func (st *Store) handleCacheStats(msg *nats.Msg) {
	stats, err := st.db.CacheStats(st.params.CacheTTL)
	if err != nil {
		st.reply(msg, data.AdminReply{Error: fmt.Sprintf("Error reading cache stats: %v", err)})
		return
	}
	st.reply(msg, data.AdminReply{Success: true, Stats: &stats})
}

func (st *Store) handleCachePurge(msg *nats.Msg) {
	n, err := st.db.PurgeProfiles(time.Now())
	if err != nil {
		st.reply(msg, data.AdminReply{Error: fmt.Sprintf("Error purging cache: %v", err)})
		return
	}
	st.reply(msg, data.AdminReply{Success: true, Removed: n})
}

func (st *Store) handleCacheDelete(msg *nats.Msg) {
	var req data.ScrapeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		st.reply(msg, data.AdminReply{Error: fmt.Sprintf("Error decoding request: %v", err)})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Platform == "" || req.Username == "" {
		st.reply(msg, data.AdminReply{Error: "Platform and username required"})
		return
	}

	if err := st.db.DeleteProfile(req.Platform, req.Username); err != nil {
		st.reply(msg, data.AdminReply{Error: fmt.Sprintf("Error deleting profile: %v", err)})
		return
	}
	st.reply(msg, data.AdminReply{Success: true, Removed: 1})
}

func (st *Store) handleWorkers(msg *nats.Msg) {
	st.reply(msg, data.AdminReply{Success: true, Workers: st.workerList()})
}

func (st *Store) handleStatus(msg *nats.Msg) {
	stats, err := st.db.CacheStats(st.params.CacheTTL)
	if err != nil {
		st.reply(msg, data.AdminReply{Error: fmt.Sprintf("Error reading cache stats: %v", err)})
		return
	}

	now := time.Now()
	status := data.Status{
		Version:   st.params.Version,
		StartedAt: st.started.UTC().Format(time.RFC3339),
		UptimeSec: int64(now.Sub(st.started).Seconds()),
		Cache:     stats,
		Workers:   st.workerList(),
	}
	st.reply(msg, data.AdminReply{Success: true, Status: &status})
}

// janitor reclaims long expired cache rows, old finished jobs, and
// workers that have stopped reporting.
func (st *Store) janitor() {
	now := time.Now()

	if n, err := st.db.PurgeProfiles(now.Add(-4 * st.params.CacheTTL)); err != nil {
		log.Println("Error purging profiles:", err)
	} else if n > 0 {
		log.Println("Store purged cached profiles:", n)
	}

	if n, err := st.db.PurgeJobs(now.Add(-st.params.JobRetention)); err != nil {
		log.Println("Error purging jobs:", err)
	} else if n > 0 {
		log.Println("Store purged finished jobs:", n)
	}

	st.mu.Lock()
	for name, w := range st.workers {
		if now.Sub(w.seen) > st.params.WorkerExpiry {
			delete(st.workers, name)
		}
	}
	st.mu.Unlock()
}
