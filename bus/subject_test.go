package bus

import "testing"

func TestSubjects(t *testing.T) {
	tests := []struct {
		got string
		exp string
	}{
		{SubjectProfileGet("leetcode"), "profile.get.leetcode"},
		{SubjectProfileGetAll(), "profile.get.*"},
		{SubjectScrapeQueue("codolio"), "scrape.q.codolio"},
		{SubjectScrapeQueueAll(), "scrape.q.*"},
		{SubjectScrapeProgress("abc-123"), "scrape.progress.abc-123"},
		{SubjectScrapeProgressAll(), "scrape.progress.*"},
		{SubjectJobSubmit(), "job.submit"},
		{SubjectJobGet("abc-123"), "job.get.abc-123"},
		{SubjectWorkerStatus("worker-1"), "worker.status.worker-1"},
		{SubjectAdmin("cacheStats"), "admin.cacheStats"},
	}

	for _, tt := range tests {
		if tt.got != tt.exp {
			t.Errorf("exp: %v, got: %v", tt.exp, tt.got)
		}
	}
}

func TestLastToken(t *testing.T) {
	tests := []struct {
		in  string
		exp string
	}{
		{"profile.get.leetcode", "leetcode"},
		{"job.get.abc-123", "abc-123"},
		{"nosubject", "nosubject"},
	}

	for _, tt := range tests {
		if got := LastToken(tt.in); got != tt.exp {
			t.Errorf("%v: exp: %v, got: %v", tt.in, tt.exp, got)
		}
	}
}
