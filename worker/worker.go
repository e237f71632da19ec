package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
	"github.com/SambhavSurthi/codolio-scraper/msg"
	"github.com/SambhavSurthi/codolio-scraper/scrape"
)

// Scraper is what a worker drives. scrape.Scraper is the real one;
// tests substitute stubs.
type Scraper interface {
	Scrape(ctx context.Context, req data.ScrapeRequest, progress scrape.ProgressFunc) (*data.Profile, error)
}

// Engine is the browser lifecycle a worker reports on and recycles.
type Engine interface {
	Restart() error
	Restarts() int
	Version() string
	DevtoolsURL() string
}

// Params are used to configure a worker
type Params struct {
	Nc      *nats.Conn
	Name    string
	Scraper Scraper
	// Engine may be nil when the scraper manages its own browser
	Engine Engine
	// Notifier receives alerts, may be nil
	Notifier msg.Notifier
	// MaxFailures is how many consecutive scrape failures trigger a
	// browser restart
	MaxFailures int
	// ScrapeTimeout bounds one scrape
	ScrapeTimeout time.Duration
	// StatusPeriod is the health report interval
	StatusPeriod time.Duration
}

// Worker pulls scrape requests off the queue group and runs them one
// at a time.
type Worker struct {
	params  Params
	nc      *nats.Conn
	log     *log.Logger
	sub     *nats.Subscription
	started time.Time

	mu       sync.Mutex
	scrapes  int64
	failures int64
	consec   int

	inFlight sync.WaitGroup

	chStop      chan struct{}
	chWaitStart chan struct{}
}

// NewWorker creates a new scrape worker
func NewWorker(p Params) *Worker {
	if p.Name == "" {
		h, _ := os.Hostname()
		if h == "" {
			h = "worker"
		}
		p.Name = h
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = 3
	}
	if p.ScrapeTimeout <= 0 {
		p.ScrapeTimeout = 4 * time.Minute
	}
	if p.StatusPeriod <= 0 {
		p.StatusPeriod = 10 * time.Second
	}

	return &Worker{
		params:      p,
		nc:          p.Nc,
		log:         log.New(os.Stderr, "Worker "+p.Name+": ", log.LstdFlags|log.Lmsgprefix),
		started:     time.Now(),
		chStop:      make(chan struct{}),
		chWaitStart: make(chan struct{}),
	}
}

// Run worker until Stop is called
func (w *Worker) Run() error {
	var err error
	w.sub, err = w.nc.QueueSubscribe(bus.SubjectScrapeQueueAll(),
		bus.QueueScrapers, w.handleScrape)
	if err != nil {
		return fmt.Errorf("Subscribe scrape queue error: %w", err)
	}

	status := time.NewTicker(w.params.StatusPeriod)
	defer status.Stop()

	w.publishStatus()

done:
	for {
		select {
		case <-w.chWaitStart:
			// reading this channel unblocks WaitStart
		case <-status.C:
			w.publishStatus()
		case <-w.chStop:
			w.log.Println("stopped")
			break done
		}
	}

	if err := w.sub.Unsubscribe(); err != nil {
		w.log.Println("Error unsubscribing:", err)
	}

	// let a scrape already on the browser finish before the engine
	// is torn down
	w.inFlight.Wait()

	return nil
}

// Stop the worker
func (w *Worker) Stop(_ error) {
	close(w.chStop)
}

// WaitStart waits for the worker to start
func (w *Worker) WaitStart(ctx context.Context) error {
	waitDone := make(chan struct{})

	go func() {
		w.chWaitStart <- struct{}{}
		close(waitDone)
	}()

	select {
	case <-ctx.Done():
		return errors.New("Worker wait timeout or canceled")
	case <-waitDone:
		return nil
	}
}

// handleScrape runs in the subscription dispatch goroutine, so scrapes
// on one worker never overlap.
func (w *Worker) handleScrape(msg *nats.Msg) {
	w.inFlight.Add(1)
	defer w.inFlight.Done()

	var req data.ScrapeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		w.reply(msg, data.ScrapeResult{
			Worker: w.params.Name,
			Error:  fmt.Sprintf("Error decoding request: %v", err),
		})
		return
	}

	if req.Platform == "" {
		req.Platform = bus.LastToken(msg.Subject)
	}

	w.reply(msg, w.scrape(req))
}

func (w *Worker) reply(msg *nats.Msg, res data.ScrapeResult) {
	if msg.Reply == "" {
		return
	}
	if err := bus.RespondJSON(msg, res); err != nil {
		w.log.Println("Error replying:", err)
	}
}

func (w *Worker) scrape(req data.ScrapeRequest) data.ScrapeResult {
	w.mu.Lock()
	w.scrapes++
	w.mu.Unlock()

	w.log.Printf("scraping %v/%v", req.Platform, req.Username)

	ctx, cancel := context.WithTimeout(context.Background(), w.params.ScrapeTimeout)
	defer cancel()

	progress := func(stage, detail string) {
		w.publishProgress(req, stage, detail)
	}

	start := time.Now()
	profile, err := w.params.Scraper.Scrape(ctx, req, progress)

	res := data.ScrapeResult{
		Request:   req,
		Worker:    w.params.Name,
		ElapsedMs: time.Since(start).Milliseconds(),
		FetchedAt: time.Now(),
	}

	if err != nil {
		res.Error = err.Error()
		w.log.Println(errors.Wrap(err, "scrape failed"))
		w.recordFailure(err)
		return res
	}

	res.Profile = profile
	w.recordSuccess()
	return res
}

func (w *Worker) recordSuccess() {
	w.mu.Lock()
	w.consec = 0
	w.mu.Unlock()
}

func (w *Worker) recordFailure(err error) {
	w.mu.Lock()
	w.failures++
	w.consec++
	consec := w.consec
	w.mu.Unlock()

	if consec < w.params.MaxFailures || w.params.Engine == nil {
		return
	}

	w.log.Printf("%v consecutive scrape failures, restarting browser", consec)
	if rerr := w.params.Engine.Restart(); rerr != nil {
		w.log.Println("Error restarting browser:", rerr)
	}

	w.notify("browser-restart",
		fmt.Sprintf("scrape worker %v restarted its browser after %v consecutive failures, last error: %v",
			w.params.Name, consec, err))

	w.mu.Lock()
	w.consec = 0
	w.mu.Unlock()
}

func (w *Worker) notify(key, message string) {
	if w.params.Notifier == nil {
		return
	}
	if err := w.params.Notifier.Notify(w.params.Name+"."+key, message); err != nil {
		w.log.Println("Error sending alert:", err)
	}
}

func (w *Worker) publishProgress(req data.ScrapeRequest, stage, detail string) {
	if req.ID == "" {
		return
	}

	p := data.Progress{
		JobID:  req.ID,
		State:  data.JobActive,
		Stage:  stage,
		Detail: detail,
		Worker: w.params.Name,
		Time:   time.Now(),
	}
	if err := bus.PublishJSON(w.nc, bus.SubjectScrapeProgress(req.ID), p); err != nil {
		w.log.Println("Error publishing progress:", err)
	}
}

func (w *Worker) publishStatus() {
	if err := bus.PublishJSON(w.nc, bus.SubjectWorkerStatus(w.params.Name),
		w.Status()); err != nil {
		w.log.Println("Error publishing status:", err)
	}
}

// Status reports the worker's counters and host utilization.
func (w *Worker) Status() data.WorkerStatus {
	w.mu.Lock()
	scrapes, failures, consec := w.scrapes, w.failures, w.consec
	w.mu.Unlock()

	ws := data.WorkerStatus{
		Name:           w.params.Name,
		Scrapes:        scrapes,
		Failures:       failures,
		ConsecFailures: consec,
		UptimeSec:      int64(time.Since(w.started).Seconds()),
	}

	if e := w.params.Engine; e != nil {
		ws.BrowserVersion = e.Version()
		ws.DevtoolsURL = e.DevtoolsURL()
		ws.BrowserRestarts = e.Restarts()
	}

	ws.CPUPercent, ws.MemPercent = systemLoad()

	return ws
}
