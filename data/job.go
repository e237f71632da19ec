package data

import "time"

// ScrapeRequest asks the worker pool to scrape one profile.
type ScrapeRequest struct {
	ID       string `json:"id,omitempty"`
	Platform string `json:"platform"`
	Username string `json:"username"`
	// Refresh skips the cache and forces a fresh scrape.
	Refresh bool `json:"refresh,omitempty"`
}

// ScrapeResult is what a worker sends back for a ScrapeRequest. Exactly
// one of Profile or Error is set.
type ScrapeResult struct {
	Request   ScrapeRequest `json:"request"`
	Profile   *Profile      `json:"profile,omitempty"`
	Error     string        `json:"error,omitempty"`
	Worker    string        `json:"worker,omitempty"`
	Cached    bool          `json:"cached,omitempty"`
	ElapsedMs int64         `json:"elapsedMs"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// OK reports whether the scrape produced a profile.
func (r ScrapeResult) OK() bool {
	return r.Error == "" && r.Profile != nil
}

// Job states. A job moves queued -> active -> done or error.
const (
	JobQueued = "queued"
	JobActive = "active"
	JobDone   = "done"
	JobError  = "error"
)

// Job tracks an asynchronous scrape submitted through the jobs API.
type Job struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Username  string    `json:"username"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Worker    string    `json:"worker,omitempty"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	ElapsedMs int64     `json:"elapsedMs,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j Job) Done() bool {
	return j.State == JobDone || j.State == JobError
}

// Progress is one event on a job's progress stream. Workers publish
// these as they move through the scrape stages and the API relays them
// to event-stream subscribers.
type Progress struct {
	JobID  string    `json:"jobId"`
	State  string    `json:"state"`
	Stage  string    `json:"stage,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Worker string    `json:"worker,omitempty"`
	Time   time.Time `json:"time"`
}

// JobReply is the bus reply for job submit and lookup requests.
type JobReply struct {
	Job   *Job   `json:"job,omitempty"`
	Error string `json:"error,omitempty"`
}
