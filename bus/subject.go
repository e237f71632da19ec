package bus

// create subject strings for the various message types

// QueueScrapers is the queue group scrape workers join, so each queued
// request lands on exactly one worker.
const QueueScrapers = "scrapers"

// SubjectProfileGet is the cache-or-scrape lookup for one platform.
// The store answers these.
func SubjectProfileGet(platform string) string {
	return "profile.get." + platform
}

// SubjectProfileGetAll subscribes to lookups for every platform.
func SubjectProfileGetAll() string {
	return "profile.get.*"
}

// SubjectScrapeQueue carries scrape work for the worker queue group.
func SubjectScrapeQueue(platform string) string {
	return "scrape.q." + platform
}

// SubjectScrapeQueueAll subscribes to work for every platform.
func SubjectScrapeQueueAll() string {
	return "scrape.q.*"
}

// SubjectScrapeProgress carries progress events for one job.
func SubjectScrapeProgress(jobID string) string {
	return "scrape.progress." + jobID
}

// SubjectScrapeProgressAll subscribes to progress for every job.
func SubjectScrapeProgressAll() string {
	return "scrape.progress.*"
}

// SubjectJobSubmit accepts asynchronous scrape jobs.
func SubjectJobSubmit() string {
	return "job.submit"
}

// SubjectJobGet looks up one job by ID.
func SubjectJobGet(id string) string {
	return "job.get." + id
}

// SubjectJobGetAll subscribes to job lookups.
func SubjectJobGetAll() string {
	return "job.get.*"
}

// SubjectWorkerStatus carries one worker's periodic health report.
func SubjectWorkerStatus(name string) string {
	return "worker.status." + name
}

// SubjectWorkerStatusAll subscribes to every worker's reports.
func SubjectWorkerStatusAll() string {
	return "worker.status.*"
}

// SubjectAdmin addresses one admin operation on the store: cacheStats,
// cachePurge, cacheDelete, workers, or status.
func SubjectAdmin(op string) string {
	return "admin." + op
}
