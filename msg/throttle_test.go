package msg

import (
	"testing"
	"time"
)

type recorder struct {
	messages []string
}

func (r *recorder) Notify(_, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func TestThrottle(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle(rec, 50*time.Millisecond)

	_ = th.Notify("worker-1.browser", "browser restart")
	_ = th.Notify("worker-1.browser", "browser restart again")

	if len(rec.messages) != 1 {
		t.Fatalf("Messages after repeat, exp: 1, got: %v", len(rec.messages))
	}

	// a different key is not throttled
	_ = th.Notify("worker-2.browser", "other worker")
	if len(rec.messages) != 2 {
		t.Fatalf("Messages after second key, exp: 2, got: %v", len(rec.messages))
	}

	time.Sleep(60 * time.Millisecond)

	_ = th.Notify("worker-1.browser", "window expired")
	if len(rec.messages) != 3 {
		t.Fatalf("Messages after window, exp: 3, got: %v", len(rec.messages))
	}

	if rec.messages[2] != "window expired" {
		t.Errorf("Last message, exp: window expired, got: %v", rec.messages[2])
	}
}
