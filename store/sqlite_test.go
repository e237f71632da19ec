package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

func newTestDb(t *testing.T) *DbSqlite {
	db, err := NewSqliteDb(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal("Error opening db: ", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testResult(platform, username string, fetched time.Time) data.ScrapeResult {
	p := data.NewProfile()
	p.BasicStats["total_questions"] = "100"
	return data.ScrapeResult{
		Request:   data.ScrapeRequest{Platform: platform, Username: username},
		Profile:   p,
		Worker:    "worker-1",
		ElapsedMs: 1234,
		FetchedAt: fetched,
	}
}

func TestDbSqliteProfile(t *testing.T) {
	db := newTestDb(t)

	res := testResult("leetcode", "alice", time.Now())
	if err := db.UpProfile(res); err != nil {
		t.Fatal("Error storing profile: ", err)
	}

	got, err := db.Profile("leetcode", "alice")
	if err != nil {
		t.Fatal("Error reading profile: ", err)
	}

	if !got.Cached {
		t.Error("Expected cached flag on profile read")
	}

	if got.Worker != "worker-1" {
		t.Errorf("Worker, exp: worker-1, got: %v", got.Worker)
	}

	if got.Profile == nil || got.Profile.BasicStats["total_questions"] != "100" {
		t.Errorf("Profile data did not round trip: %+v", got.Profile)
	}

	if got.FetchedAt.UnixMilli() != res.FetchedAt.UnixMilli() {
		t.Errorf("FetchedAt, exp: %v, got: %v", res.FetchedAt, got.FetchedAt)
	}

	_, err = db.Profile("leetcode", "bob")
	if !errors.Is(err, data.ErrProfileNotFound) {
		t.Error("Expected ErrProfileNotFound, got: ", err)
	}
}

func TestDbSqliteProfileReplace(t *testing.T) {
	db := newTestDb(t)

	res := testResult("codolio", "alice", time.Now().Add(-time.Hour))
	if err := db.UpProfile(res); err != nil {
		t.Fatal("Error storing profile: ", err)
	}

	res2 := testResult("codolio", "alice", time.Now())
	res2.Profile.BasicStats["total_questions"] = "150"
	if err := db.UpProfile(res2); err != nil {
		t.Fatal("Error replacing profile: ", err)
	}

	stats, err := db.CacheStats(time.Minute)
	if err != nil {
		t.Fatal("Error reading stats: ", err)
	}

	if stats.Profiles != 1 {
		t.Errorf("Profiles, exp: 1, got: %v", stats.Profiles)
	}

	got, err := db.Profile("codolio", "alice")
	if err != nil {
		t.Fatal("Error reading profile: ", err)
	}

	if got.Profile.BasicStats["total_questions"] != "150" {
		t.Errorf("Expected replaced profile, got: %+v", got.Profile.BasicStats)
	}
}

func TestDbSqliteDeleteProfile(t *testing.T) {
	db := newTestDb(t)

	if err := db.UpProfile(testResult("codolio", "alice", time.Now())); err != nil {
		t.Fatal("Error storing profile: ", err)
	}

	if err := db.DeleteProfile("codolio", "alice"); err != nil {
		t.Fatal("Error deleting profile: ", err)
	}

	_, err := db.Profile("codolio", "alice")
	if !errors.Is(err, data.ErrProfileNotFound) {
		t.Error("Expected ErrProfileNotFound after delete, got: ", err)
	}
}

func TestDbSqliteCacheStats(t *testing.T) {
	db := newTestDb(t)

	now := time.Now()
	if err := db.UpProfile(testResult("codolio", "fresh", now)); err != nil {
		t.Fatal("Error storing profile: ", err)
	}
	if err := db.UpProfile(testResult("codolio", "stale", now.Add(-time.Hour))); err != nil {
		t.Fatal("Error storing profile: ", err)
	}

	job := data.Job{ID: "job-1", Platform: "codolio", Username: "fresh",
		State: data.JobDone, Created: now, Updated: now}
	if err := db.UpJob(job); err != nil {
		t.Fatal("Error storing job: ", err)
	}

	stats, err := db.CacheStats(15 * time.Minute)
	if err != nil {
		t.Fatal("Error reading stats: ", err)
	}

	exp := data.CacheStats{Profiles: 2, Fresh: 1, Expired: 1, Jobs: 1}
	if stats != exp {
		t.Errorf("CacheStats, exp: %+v, got: %+v", exp, stats)
	}
}

func TestDbSqlitePurgeProfiles(t *testing.T) {
	db := newTestDb(t)

	now := time.Now()
	if err := db.UpProfile(testResult("codolio", "old", now.Add(-2*time.Hour))); err != nil {
		t.Fatal("Error storing profile: ", err)
	}
	if err := db.UpProfile(testResult("codolio", "new", now)); err != nil {
		t.Fatal("Error storing profile: ", err)
	}

	n, err := db.PurgeProfiles(now.Add(-time.Hour))
	if err != nil {
		t.Fatal("Error purging profiles: ", err)
	}

	if n != 1 {
		t.Errorf("Purged, exp: 1, got: %v", n)
	}

	if _, err := db.Profile("codolio", "new"); err != nil {
		t.Error("Expected new profile to survive purge: ", err)
	}
}

func TestDbSqliteJobs(t *testing.T) {
	db := newTestDb(t)

	now := time.Now()
	job := data.Job{
		ID:       "job-1",
		Platform: "codolio",
		Username: "alice",
		State:    data.JobQueued,
		Created:  now,
		Updated:  now,
	}

	if err := db.UpJob(job); err != nil {
		t.Fatal("Error storing job: ", err)
	}

	got, err := db.Job("job-1")
	if err != nil {
		t.Fatal("Error reading job: ", err)
	}

	if got.State != data.JobQueued || got.Username != "alice" {
		t.Errorf("Job did not round trip: %+v", got)
	}

	job.State = data.JobDone
	job.Worker = "worker-1"
	job.ElapsedMs = 2500
	if err := db.UpJob(job); err != nil {
		t.Fatal("Error updating job: ", err)
	}

	got, err = db.Job("job-1")
	if err != nil {
		t.Fatal("Error reading job: ", err)
	}

	if got.State != data.JobDone || got.Worker != "worker-1" || got.ElapsedMs != 2500 {
		t.Errorf("Job update did not stick: %+v", got)
	}

	_, err = db.Job("missing")
	if !errors.Is(err, data.ErrJobNotFound) {
		t.Error("Expected ErrJobNotFound, got: ", err)
	}
}

func TestDbSqlitePurgeJobs(t *testing.T) {
	db := newTestDb(t)

	now := time.Now()
	old := now.Add(-48 * time.Hour)

	jobs := []data.Job{
		{ID: "old-done", State: data.JobDone, Created: old, Updated: old},
		{ID: "old-queued", State: data.JobQueued, Created: old, Updated: old},
		{ID: "new-done", State: data.JobDone, Created: now, Updated: now},
	}

	for _, j := range jobs {
		if err := db.UpJob(j); err != nil {
			t.Fatal("Error storing job: ", err)
		}
	}

	n, err := db.PurgeJobs(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatal("Error purging jobs: ", err)
	}

	if n != 1 {
		t.Errorf("Purged, exp: 1, got: %v", n)
	}

	// queued jobs never age out, finished recent jobs survive
	if _, err := db.Job("old-queued"); err != nil {
		t.Error("Expected old queued job to survive: ", err)
	}
	if _, err := db.Job("new-done"); err != nil {
		t.Error("Expected recent done job to survive: ", err)
	}
	if _, err := db.Job("old-done"); !errors.Is(err, data.ErrJobNotFound) {
		t.Error("Expected old done job to be purged, got: ", err)
	}
}

func TestDbSqliteJWTKeyPersists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.db")

	db, err := NewSqliteDb(file)
	if err != nil {
		t.Fatal("Error opening db: ", err)
	}

	key := db.JWTKey()
	if len(key) != 20 {
		t.Fatalf("JWT key length, exp: 20, got: %v", len(key))
	}

	if err := db.Close(); err != nil {
		t.Fatal("Error closing db: ", err)
	}

	db2, err := NewSqliteDb(file)
	if err != nil {
		t.Fatal("Error reopening db: ", err)
	}
	defer db2.Close()

	if !bytes.Equal(key, db2.JWTKey()) {
		t.Error("JWT key changed across reopen")
	}
}
