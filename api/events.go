package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/donovanhide/eventsource"
	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
)

// Events relays job progress from the bus to event-stream subscribers.
// Each job ID is one stream channel.
type Events struct {
	es      *eventsource.Server
	nc      *nats.Conn
	timeout time.Duration
}

// NewEvents creates the progress relay
func NewEvents(nc *nats.Conn, timeout time.Duration) *Events {
	es := eventsource.NewServer()
	es.ReplayAll = true
	return &Events{es: es, nc: nc, timeout: timeout}
}

// Subscribe attaches the relay to the bus. The caller owns the
// returned subscription.
func (e *Events) Subscribe() (*nats.Subscription, error) {
	return e.nc.Subscribe(bus.SubjectScrapeProgressAll(), e.handleProgress)
}

// Close shuts down all open streams
func (e *Events) Close() {
	e.es.Close()
}

func (e *Events) handleProgress(msg *nats.Msg) {
	var p data.Progress
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		log.Println("Error decoding progress:", err)
		return
	}

	if p.JobID == "" {
		return
	}

	e.es.Publish([]string{p.JobID}, newProgressEvent(p))
}

// stream serves one job's event stream. The job's current state is
// replayed as the first event, live progress follows.
func (e *Events) stream(res http.ResponseWriter, req *http.Request, id string) {
	e.es.Register(id, jobRepo{nc: e.nc, timeout: e.timeout})
	e.es.Handler(id)(res, req)
}

// progressEvent adapts data.Progress to the event-stream wire format
type progressEvent struct {
	id   string
	data []byte
}

func (e progressEvent) Id() string    { return e.id }
func (e progressEvent) Event() string { return "progress" }
func (e progressEvent) Data() string  { return string(e.data) }

func newProgressEvent(p data.Progress) progressEvent {
	b, _ := json.Marshal(p)
	return progressEvent{id: p.Time.UTC().Format(time.RFC3339Nano), data: b}
}

// jobRepo turns a job row into the replay event for new subscribers
type jobRepo struct {
	nc      *nats.Conn
	timeout time.Duration
}

// Replay implements eventsource.Repository
func (r jobRepo) Replay(channel, _ string) chan eventsource.Event {
	ch := make(chan eventsource.Event, 1)

	var jr data.JobReply
	err := bus.RequestJSON(r.nc, bus.SubjectJobGet(channel), nil, &jr, r.timeout)
	if err == nil && jr.Job != nil {
		j := jr.Job
		ch <- newProgressEvent(data.Progress{
			JobID:  j.ID,
			State:  j.State,
			Detail: j.Error,
			Worker: j.Worker,
			Time:   j.Updated,
		})
	}

	close(ch)
	return ch
}
