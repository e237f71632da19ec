package store_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
	"github.com/SambhavSurthi/codolio-scraper/server"
)

func TestStoreScrapeFlow(t *testing.T) {
	nc, _, stop, err := server.TestServer()
	if err != nil {
		t.Fatal("Error starting test server: ", err)
	}
	defer stop()

	// first request goes out to the worker queue
	var res data.ScrapeResult
	err = bus.RequestJSON(nc, bus.SubjectProfileGet("leetcode"),
		data.ScrapeRequest{Username: "frank"}, &res, 5*time.Second)
	if err != nil {
		t.Fatal("Error requesting profile: ", err)
	}
	if !res.OK() {
		t.Fatal("scrape failed: ", res.Error)
	}
	if res.Cached {
		t.Error("first result should not be cached")
	}
	if res.Worker != "test-0" {
		t.Errorf("worker, exp: test-0, got: %v", res.Worker)
	}
	if res.FetchedAt.IsZero() {
		t.Error("result missing fetch time")
	}

	// same request again comes from the cache
	err = bus.RequestJSON(nc, bus.SubjectProfileGet("leetcode"),
		data.ScrapeRequest{Username: "frank"}, &res, 5*time.Second)
	if err != nil {
		t.Fatal("Error requesting cached profile: ", err)
	}
	if !res.Cached {
		t.Error("second result should be cached")
	}
	if res.Profile == nil || res.Profile.BasicStats["Total Questions"] != "42" {
		t.Errorf("cached profile data, got: %+v", res.Profile)
	}

	// platform rides the subject, the store echoes it back
	if res.Request.Platform != "leetcode" {
		t.Errorf("request platform, exp: leetcode, got: %v", res.Request.Platform)
	}

	// blank usernames are refused before they reach a worker
	err = bus.RequestJSON(nc, bus.SubjectProfileGet("leetcode"),
		data.ScrapeRequest{Username: "   "}, &res, 2*time.Second)
	if err != nil {
		t.Fatal("Error requesting blank profile: ", err)
	}
	if res.Error != "Username required" {
		t.Errorf("blank username error, got: %v", res.Error)
	}
}

func TestStoreJobFlow(t *testing.T) {
	nc, _, stop, err := server.TestServer()
	if err != nil {
		t.Fatal("Error starting test server: ", err)
	}
	defer stop()

	var jr data.JobReply
	err = bus.RequestJSON(nc, bus.SubjectJobSubmit(),
		data.ScrapeRequest{Platform: "codolio", Username: "gina"}, &jr, 2*time.Second)
	if err != nil {
		t.Fatal("Error submitting job: ", err)
	}
	if jr.Error != "" || jr.Job == nil {
		t.Fatal("job submit reply: ", jr.Error)
	}
	if jr.Job.State != data.JobQueued {
		t.Errorf("job state, exp: %v, got: %v", data.JobQueued, jr.Job.State)
	}

	deadline := time.Now().Add(5 * time.Second)
	var job data.Job
	for {
		var cur data.JobReply
		err := bus.RequestJSON(nc, bus.SubjectJobGet(jr.Job.ID), nil, &cur, 2*time.Second)
		if err != nil {
			t.Fatal("Error getting job: ", err)
		}
		if cur.Job != nil && cur.Job.Done() {
			job = *cur.Job
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for job to finish")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if job.State != data.JobDone {
		t.Errorf("job state, exp: %v, got: %v, error: %v", data.JobDone, job.State, job.Error)
	}
	if job.Worker != "test-0" {
		t.Errorf("job worker, exp: test-0, got: %v", job.Worker)
	}

	// unknown job ids come back as a not found error
	err = bus.RequestJSON(nc, bus.SubjectJobGet("nope"), nil, &jr, 2*time.Second)
	if err != nil {
		t.Fatal("Error getting missing job: ", err)
	}
	if jr.Error != data.ErrJobNotFound.Error() {
		t.Errorf("missing job error, exp: %v, got: %v", data.ErrJobNotFound, jr.Error)
	}

	// submits without a platform are refused
	err = bus.RequestJSON(nc, bus.SubjectJobSubmit(),
		data.ScrapeRequest{Username: "gina"}, &jr, 2*time.Second)
	if err != nil {
		t.Fatal("Error submitting bad job: ", err)
	}
	if jr.Error != "Platform required" {
		t.Errorf("bad job error, got: %v", jr.Error)
	}
}

func TestStoreProgress(t *testing.T) {
	nc, _, stop, err := server.TestServer()
	if err != nil {
		t.Fatal("Error starting test server: ", err)
	}
	defer stop()

	// watch all progress traffic, then submit a job
	chProgress := make(chan data.Progress, 16)
	sub, err := nc.Subscribe(bus.SubjectScrapeProgressAll(), func(msg *nats.Msg) {
		var p data.Progress
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		chProgress <- p
	})
	if err != nil {
		t.Fatal("Error subscribing to progress: ", err)
	}
	defer sub.Unsubscribe()

	var jr data.JobReply
	err = bus.RequestJSON(nc, bus.SubjectJobSubmit(),
		data.ScrapeRequest{Platform: "leetcode", Username: "henry"}, &jr, 2*time.Second)
	if err != nil {
		t.Fatal("Error submitting job: ", err)
	}

	// the stub emits stage events and the store publishes the
	// terminal state
	sawStage := false
	timeout := time.After(5 * time.Second)
	for {
		var p data.Progress
		select {
		case p = <-chProgress:
		case <-timeout:
			t.Fatal("timeout waiting for progress events")
		}

		if p.JobID != jr.Job.ID {
			continue
		}
		if p.State == data.JobActive {
			sawStage = true
		}
		if p.State == data.JobDone {
			break
		}
		if p.State == data.JobError {
			t.Fatal("job failed: ", p.Detail)
		}
	}

	if !sawStage {
		t.Error("never saw an active progress event")
	}
}

func TestStoreWorkerTracking(t *testing.T) {
	nc, _, stop, err := server.TestServer()
	if err != nil {
		t.Fatal("Error starting test server: ", err)
	}
	defer stop()

	// a second worker shows up in the admin list as soon as it
	// reports
	err = bus.PublishJSON(nc, bus.SubjectWorkerStatus("spare-0"),
		data.WorkerStatus{Name: "spare-0", Scrapes: 7})
	if err != nil {
		t.Fatal("Error publishing worker status: ", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var reply data.AdminReply
		err := bus.RequestJSON(nc, bus.SubjectAdmin("workers"), nil, &reply, 2*time.Second)
		if err != nil {
			t.Fatal("Error listing workers: ", err)
		}

		var spare *data.WorkerStatus
		for i := range reply.Workers {
			if reply.Workers[i].Name == "spare-0" {
				spare = &reply.Workers[i]
			}
		}
		if spare != nil {
			if spare.Scrapes != 7 {
				t.Errorf("spare worker scrapes, exp: 7, got: %v", spare.Scrapes)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for worker to be tracked")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStoreAdminCache(t *testing.T) {
	nc, _, stop, err := server.TestServer()
	if err != nil {
		t.Fatal("Error starting test server: ", err)
	}
	defer stop()

	// populate two cache rows
	for _, user := range []string{"iris", "jack"} {
		var res data.ScrapeResult
		err := bus.RequestJSON(nc, bus.SubjectProfileGet("codechef"),
			data.ScrapeRequest{Username: user}, &res, 5*time.Second)
		if err != nil {
			t.Fatal("Error requesting profile: ", err)
		}
		if !res.OK() {
			t.Fatal("scrape failed: ", res.Error)
		}
	}

	var reply data.AdminReply
	err = bus.RequestJSON(nc, bus.SubjectAdmin("cacheStats"), nil, &reply, 2*time.Second)
	if err != nil {
		t.Fatal("Error getting cache stats: ", err)
	}
	if !reply.Success || reply.Stats == nil {
		t.Fatal("cache stats reply: ", reply.Error)
	}
	if reply.Stats.Profiles != 2 || reply.Stats.Fresh != 2 {
		t.Errorf("cache stats, got: %+v", reply.Stats)
	}

	// drop one entry
	err = bus.RequestJSON(nc, bus.SubjectAdmin("cacheDelete"),
		data.ScrapeRequest{Platform: "codechef", Username: "iris"}, &reply, 2*time.Second)
	if err != nil {
		t.Fatal("Error deleting cache entry: ", err)
	}
	if !reply.Success {
		t.Fatal("cache delete reply: ", reply.Error)
	}

	// deletes need both key parts
	err = bus.RequestJSON(nc, bus.SubjectAdmin("cacheDelete"),
		data.ScrapeRequest{Platform: "codechef"}, &reply, 2*time.Second)
	if err != nil {
		t.Fatal("Error sending bad delete: ", err)
	}
	if reply.Success || reply.Error != "Platform and username required" {
		t.Errorf("bad delete reply, got: %+v", reply)
	}

	// purge drops the rest
	err = bus.RequestJSON(nc, bus.SubjectAdmin("cachePurge"), nil, &reply, 2*time.Second)
	if err != nil {
		t.Fatal("Error purging cache: ", err)
	}
	if !reply.Success || reply.Removed != 1 {
		t.Errorf("cache purge, exp removed: 1, got: %+v", reply)
	}

	err = bus.RequestJSON(nc, bus.SubjectAdmin("cacheStats"), nil, &reply, 2*time.Second)
	if err != nil {
		t.Fatal("Error getting cache stats: ", err)
	}
	if reply.Stats.Profiles != 0 {
		t.Errorf("cache profiles after purge, exp: 0, got: %v", reply.Stats.Profiles)
	}
}
