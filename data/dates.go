package data

import (
	"strings"
	"time"
)

// Layouts the profile site has been seen to render contest dates in.
var contestDateLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan, 2006",
	"2006-01-02",
}

// ParseContestDate parses the free-form date strings found in contest
// tooltips ("9 Sept 2024", "12 August, 2023", "2024-03-02"). The site
// abbreviates September as "Sept", which no Go layout accepts, so that
// is normalized first. Returns false if no known layout matches.
func ParseContestDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.ReplaceAll(s, "Sept ", "Sep ")
	for _, l := range contestDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	// Collapse odd whitespace and stray commas, then retry the
	// day-month-year layouts once.
	parts := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(parts) == 3 {
		joined := strings.Join(parts, " ")
		for _, l := range []string{"2 Jan 2006", "2 January 2006"} {
			if t, err := time.Parse(l, joined); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ISODate formats a parsed contest date the way histories are sorted and
// cached, as yyyy-mm-dd.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}
