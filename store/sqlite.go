package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/data"

	// tell sql to use sqlite
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Meta is the single-row bookkeeping table.
type Meta struct {
	ID      int
	Version int
	JWTKey  string
}

// DbSqlite holds the profile cache and job table.
type DbSqlite struct {
	db   *sql.DB
	meta Meta
}

// NewSqliteDb opens (creating if needed) the database at dbFile.
func NewSqliteDb(dbFile string) (*DbSqlite, error) {
	ret := &DbSqlite{}

	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return nil, err
	}

	ret.db = db

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS meta (id INT NOT NULL PRIMARY KEY,
				version INT,
				jwt_key TEXT)`)
	if err != nil {
		return nil, fmt.Errorf("Error creating meta table: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS profiles (
				platform TEXT NOT NULL,
				username TEXT NOT NULL,
				data BLOB,
				worker TEXT,
				elapsed_ms INT,
				fetched_at INT,
				PRIMARY KEY (platform, username))`)
	if err != nil {
		return nil, fmt.Errorf("Error creating profiles table: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS jobs (id TEXT NOT NULL PRIMARY KEY,
				platform TEXT,
				username TEXT,
				state TEXT,
				error TEXT,
				worker TEXT,
				created INT,
				updated INT,
				elapsed_ms INT)`)
	if err != nil {
		return nil, fmt.Errorf("Error creating jobs table: %v", err)
	}

	metaRows, err := db.Query("SELECT * from meta")
	if err != nil {
		return nil, fmt.Errorf("Error querying meta: %v", err)
	}
	defer metaRows.Close()

	found := false
	for metaRows.Next() {
		found = true
		err = metaRows.Scan(&ret.meta.ID, &ret.meta.Version, &ret.meta.JWTKey)
		if err != nil {
			return nil, fmt.Errorf("Error scanning meta row: %v", err)
		}
	}

	if !found {
		key := make([]byte, 20)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("Error generating JWT key: %v", err)
		}
		ret.meta = Meta{Version: schemaVersion, JWTKey: hex.EncodeToString(key)}
		_, err = db.Exec("INSERT INTO meta (id, version, jwt_key) VALUES (?, ?, ?)",
			ret.meta.ID, ret.meta.Version, ret.meta.JWTKey)
		if err != nil {
			return nil, fmt.Errorf("Error initializing meta: %v", err)
		}
	}

	return ret, nil
}

// JWTKey returns the signing key bytes persisted in meta, so issued
// tokens stay valid across restarts.
func (sdb *DbSqlite) JWTKey() []byte {
	b, err := hex.DecodeString(sdb.meta.JWTKey)
	if err != nil {
		return nil
	}
	return b
}

// UpProfile inserts or replaces the cached profile for a result.
func (sdb *DbSqlite) UpProfile(res data.ScrapeResult) error {
	if res.Profile == nil {
		return fmt.Errorf("refusing to cache result without profile")
	}
	b, err := json.Marshal(res.Profile)
	if err != nil {
		return fmt.Errorf("Error encoding profile: %v", err)
	}
	_, err = sdb.db.Exec(`INSERT OR REPLACE INTO profiles
			(platform, username, data, worker, elapsed_ms, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
		res.Request.Platform, res.Request.Username, b,
		res.Worker, res.ElapsedMs, res.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("Error writing profile: %v", err)
	}
	return nil
}

// Profile returns the cached result for one profile, or
// data.ErrProfileNotFound. Freshness is the caller's concern.
func (sdb *DbSqlite) Profile(platform, username string) (data.ScrapeResult, error) {
	var res data.ScrapeResult
	var b []byte
	var fetchedMs int64

	row := sdb.db.QueryRow(`SELECT data, worker, elapsed_ms, fetched_at
			FROM profiles WHERE platform = ? AND username = ?`,
		platform, username)
	err := row.Scan(&b, &res.Worker, &res.ElapsedMs, &fetchedMs)
	if err == sql.ErrNoRows {
		return res, data.ErrProfileNotFound
	}
	if err != nil {
		return res, fmt.Errorf("Error querying profile: %v", err)
	}

	var p data.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return res, fmt.Errorf("Error decoding cached profile: %v", err)
	}

	res.Request = data.ScrapeRequest{Platform: platform, Username: username}
	res.Profile = &p
	res.Cached = true
	res.FetchedAt = time.UnixMilli(fetchedMs)
	return res, nil
}

// DeleteProfile removes one cached profile.
func (sdb *DbSqlite) DeleteProfile(platform, username string) error {
	_, err := sdb.db.Exec("DELETE FROM profiles WHERE platform = ? AND username = ?",
		platform, username)
	if err != nil {
		return fmt.Errorf("Error deleting profile: %v", err)
	}
	return nil
}

// PurgeProfiles removes cached profiles fetched before the cutoff and
// returns how many went away.
func (sdb *DbSqlite) PurgeProfiles(before time.Time) (int64, error) {
	r, err := sdb.db.Exec("DELETE FROM profiles WHERE fetched_at < ?",
		before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("Error purging profiles: %v", err)
	}
	return r.RowsAffected()
}

// CacheStats counts cache rows, splitting fresh from expired by ttl.
func (sdb *DbSqlite) CacheStats(ttl time.Duration) (data.CacheStats, error) {
	var stats data.CacheStats
	cutoff := time.Now().Add(-ttl).UnixMilli()

	row := sdb.db.QueryRow(`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN fetched_at >= ? THEN 1 ELSE 0 END), 0)
			FROM profiles`, cutoff)
	if err := row.Scan(&stats.Profiles, &stats.Fresh); err != nil {
		return stats, fmt.Errorf("Error counting profiles: %v", err)
	}
	stats.Expired = stats.Profiles - stats.Fresh

	row = sdb.db.QueryRow("SELECT COUNT(*) FROM jobs")
	if err := row.Scan(&stats.Jobs); err != nil {
		return stats, fmt.Errorf("Error counting jobs: %v", err)
	}
	return stats, nil
}

// UpJob inserts or replaces a job row.
func (sdb *DbSqlite) UpJob(job data.Job) error {
	_, err := sdb.db.Exec(`INSERT OR REPLACE INTO jobs
			(id, platform, username, state, error, worker, created, updated, elapsed_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Platform, job.Username, job.State, job.Error,
		job.Worker, job.Created.UnixMilli(), job.Updated.UnixMilli(),
		job.ElapsedMs)
	if err != nil {
		return fmt.Errorf("Error writing job: %v", err)
	}
	return nil
}

// Job returns one job by ID, or data.ErrJobNotFound.
func (sdb *DbSqlite) Job(id string) (data.Job, error) {
	var job data.Job
	var createdMs, updatedMs int64

	row := sdb.db.QueryRow(`SELECT id, platform, username, state, error,
			worker, created, updated, elapsed_ms FROM jobs WHERE id = ?`, id)
	err := row.Scan(&job.ID, &job.Platform, &job.Username, &job.State,
		&job.Error, &job.Worker, &createdMs, &updatedMs, &job.ElapsedMs)
	if err == sql.ErrNoRows {
		return job, data.ErrJobNotFound
	}
	if err != nil {
		return job, fmt.Errorf("Error querying job: %v", err)
	}

	job.Created = time.UnixMilli(createdMs)
	job.Updated = time.UnixMilli(updatedMs)
	return job, nil
}

// PurgeJobs removes terminal jobs last updated before the cutoff.
func (sdb *DbSqlite) PurgeJobs(before time.Time) (int64, error) {
	r, err := sdb.db.Exec(`DELETE FROM jobs WHERE updated < ?
			AND state IN (?, ?)`,
		before.UnixMilli(), data.JobDone, data.JobError)
	if err != nil {
		return 0, fmt.Errorf("Error purging jobs: %v", err)
	}
	return r.RowsAffected()
}

// Close the database.
func (sdb *DbSqlite) Close() error {
	return sdb.db.Close()
}
