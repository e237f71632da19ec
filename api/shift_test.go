package api

import "testing"

func TestShiftPath(t *testing.T) {
	tests := []struct {
		in      string
		expHead string
		expTail string
	}{
		{"/", "", "/"},
		{"", "", "/"},
		{"/codolio", "codolio", "/"},
		{"/codolio/", "codolio", "/"},
		{"/codolio/alice", "codolio", "/alice"},
		{"/v1/jobs/abc-123", "v1", "/jobs/abc-123"},
		{"/v1/jobs/abc-123/events", "v1", "/jobs/abc-123/events"},
		{"/../etc/passwd", "etc", "/passwd"},
	}

	for _, tt := range tests {
		head, tail := ShiftPath(tt.in)
		if head != tt.expHead || tail != tt.expTail {
			t.Errorf("%v: exp: (%v, %v), got: (%v, %v)", tt.in,
				tt.expHead, tt.expTail, head, tail)
		}
	}
}
