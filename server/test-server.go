package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
	"github.com/SambhavSurthi/codolio-scraper/scrape"
)

// TestScraper stands in for the browser scraper so the full stack can
// run in tests without Chromium. Usernames starting with "bad" fail
// the way an unreachable profile page does.
type TestScraper struct{}

// Scrape returns a small canned profile
func (TestScraper) Scrape(_ context.Context, req data.ScrapeRequest, progress scrape.ProgressFunc) (*data.Profile, error) {
	progress("navigate", "profile/"+req.Username)

	if strings.HasPrefix(req.Username, "bad") {
		return nil, errors.New("timeout waiting for profile page")
	}

	p := data.NewProfile()
	p.BasicStats["Total Questions"] = "42"
	p.ProblemsSolved["Easy"] = "17"
	p.Heatmap = append(p.Heatmap, data.HeatmapCell{
		Date:        "2024-05-01",
		Submissions: 3,
		ColorClass:  "heatmap-2",
	})

	progress("extract", req.Platform)

	return p, nil
}

// TestServerPass is the admin password TestServer configures
const TestServerPass = "testpass"

var testServerOptions = Options{
	StoreFile:         "test.sqlite",
	Port:              "0",
	Workers:           1,
	WorkerName:        "test",
	Scraper:           TestScraper{},
	NatsDisableServer: true,
	AdminPass:         TestServerPass,
	AppVersion:        "test",
}

// TestServer starts a test server on ephemeral ports and returns a
// connection, the http base URL, and a function to stop it
func TestServer() (*nats.Conn, string, func(), error) {
	exec.Command("sh", "-c", "rm test.sqlite*").Run()

	// the test stack runs against its own nats server on a random port
	ns, err := newNatsServer(natsServerOptions{Port: -1})
	if err != nil {
		return nil, "", nil, fmt.Errorf("Error creating test nats server: %v", err)
	}

	ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, "", nil, fmt.Errorf("Test nats server never became ready")
	}

	o := testServerOptions
	o.NatsServer = ns.ClientURL()

	s, nc, err := NewServer(o)

	if err != nil {
		ns.Shutdown()
		return nil, "", nil, fmt.Errorf("Error starting test server: %v", err)
	}

	stopped := make(chan struct{})

	go func() {
		err := s.Run()
		if err != nil {
			log.Println("Test server run returned: ", err)
		}
		close(stopped)
	}()

	stop := func() {
		s.Stop(nil)
		<-stopped
		ns.Shutdown()
		exec.Command("sh", "-c", "rm test.sqlite*").Run()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	err = s.WaitStart(ctx)
	cancel()
	if err != nil {
		return nil, "", stop, fmt.Errorf("Error waiting for test server to start: %v", err)
	}

	// WaitStart only proves the supervisor is running, so poll until
	// the store answers and the http listener is bound
	var reply data.AdminReply
	for i := 0; ; i++ {
		err = bus.RequestJSON(nc, bus.SubjectAdmin("status"), nil, &reply, time.Second)
		if err == nil && reply.Success {
			break
		}
		if i >= 50 {
			return nil, "", stop, fmt.Errorf("Test server store never answered: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	var addr string
	for i := 0; addr == ""; i++ {
		addr = s.Addr()
		if addr == "" {
			if i >= 100 {
				return nil, "", stop, errors.New("Test server http listener never came up")
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, "", stop, fmt.Errorf("Error parsing test server address %v: %v", addr, err)
	}

	return nc, "http://127.0.0.1:" + port, stop, nil
}
