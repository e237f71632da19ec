package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/data"
	"github.com/SambhavSurthi/codolio-scraper/scrape"
)

type stubScraper struct {
	err error
}

func (s stubScraper) Scrape(_ context.Context, _ data.ScrapeRequest,
	_ scrape.ProgressFunc) (*data.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := data.NewProfile()
	p.BasicStats["total_questions"] = "42"
	return p, nil
}

type stubEngine struct {
	mu       sync.Mutex
	restarts int
}

func (e *stubEngine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restarts++
	return nil
}

func (e *stubEngine) Restarts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restarts
}

func (e *stubEngine) Version() string     { return "HeadlessChrome/110.0.5481.77" }
func (e *stubEngine) DevtoolsURL() string { return "ws://127.0.0.1:9222/devtools" }

type alertRecorder struct {
	keys []string
}

func (r *alertRecorder) Notify(key, _ string) error {
	r.keys = append(r.keys, key)
	return nil
}

func TestWorkerScrape(t *testing.T) {
	w := NewWorker(Params{
		Name:          "w1",
		Scraper:       stubScraper{},
		ScrapeTimeout: time.Second,
	})

	res := w.scrape(data.ScrapeRequest{Platform: "codolio", Username: "alice"})

	if !res.OK() {
		t.Fatalf("Expected OK result, got error: %v", res.Error)
	}

	if res.Worker != "w1" {
		t.Errorf("Worker, exp: w1, got: %v", res.Worker)
	}

	if res.Profile.BasicStats["total_questions"] != "42" {
		t.Errorf("Profile did not come through: %+v", res.Profile)
	}

	if res.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}

	st := w.Status()
	if st.Scrapes != 1 || st.Failures != 0 {
		t.Errorf("Counters, exp: 1/0, got: %v/%v", st.Scrapes, st.Failures)
	}
}

func TestWorkerFailureRestart(t *testing.T) {
	eng := &stubEngine{}
	alerts := &alertRecorder{}

	w := NewWorker(Params{
		Name:          "w1",
		Scraper:       stubScraper{err: errors.New("browser crashed")},
		Engine:        eng,
		Notifier:      alerts,
		MaxFailures:   3,
		ScrapeTimeout: time.Second,
	})

	req := data.ScrapeRequest{Platform: "codolio", Username: "alice"}

	for i := 0; i < 3; i++ {
		res := w.scrape(req)
		if res.OK() {
			t.Fatal("Expected scrape error")
		}
	}

	if eng.Restarts() != 1 {
		t.Errorf("Restarts, exp: 1, got: %v", eng.Restarts())
	}

	if len(alerts.keys) != 1 || alerts.keys[0] != "w1.browser-restart" {
		t.Errorf("Alerts, exp: [w1.browser-restart], got: %v", alerts.keys)
	}

	// counter reset after restart, one more failure must not trigger
	// another restart
	res := w.scrape(req)
	if res.OK() {
		t.Fatal("Expected scrape error")
	}

	if eng.Restarts() != 1 {
		t.Errorf("Restarts after reset, exp: 1, got: %v", eng.Restarts())
	}

	st := w.Status()
	if st.Failures != 4 || st.ConsecFailures != 1 {
		t.Errorf("Counters, exp: 4/1, got: %v/%v", st.Failures, st.ConsecFailures)
	}
}

func TestWorkerStatusEngine(t *testing.T) {
	eng := &stubEngine{}
	w := NewWorker(Params{Name: "w1", Scraper: stubScraper{}, Engine: eng})

	if err := eng.Restart(); err != nil {
		t.Fatal("Error restarting stub engine: ", err)
	}

	st := w.Status()
	if st.Name != "w1" {
		t.Errorf("Name, exp: w1, got: %v", st.Name)
	}
	if st.BrowserVersion != "HeadlessChrome/110.0.5481.77" {
		t.Errorf("BrowserVersion, got: %v", st.BrowserVersion)
	}
	if st.DevtoolsURL == "" {
		t.Error("DevtoolsURL not set")
	}
	if st.BrowserRestarts != 1 {
		t.Errorf("BrowserRestarts, exp: 1, got: %v", st.BrowserRestarts)
	}
}

func TestWorkerFailureThenSuccess(t *testing.T) {
	failing := stubScraper{err: errors.New("timeout")}
	w := NewWorker(Params{Name: "w1", Scraper: failing, MaxFailures: 5})

	req := data.ScrapeRequest{Platform: "codolio", Username: "alice"}
	w.scrape(req)
	w.scrape(req)

	if st := w.Status(); st.ConsecFailures != 2 {
		t.Fatalf("ConsecFailures, exp: 2, got: %v", st.ConsecFailures)
	}

	w.params.Scraper = stubScraper{}
	if res := w.scrape(req); !res.OK() {
		t.Fatal("Expected OK result: ", res.Error)
	}

	if st := w.Status(); st.ConsecFailures != 0 {
		t.Errorf("ConsecFailures after success, exp: 0, got: %v", st.ConsecFailures)
	}
}
