package data

import (
	"regexp"
	"strconv"
	"strings"
)

// Snapshot is one raw reading taken while sweeping the contest graph.
// Either the chart's detail panel was open, in which case the structured
// fields are set, or only a floating tooltip was visible and RawTooltip
// carries its text for later parsing.
type Snapshot struct {
	RatingText  string `json:"ratingText,omitempty"`
	Rating      *int   `json:"rating,omitempty"`
	Date        string `json:"date,omitempty"`
	ContestName string `json:"contestName,omitempty"`
	RankText    string `json:"rankText,omitempty"`
	Rank        *int   `json:"rank,omitempty"`
	RawTooltip  string `json:"raw_tooltip,omitempty"`
}

// Empty reports whether the snapshot carries no information at all.
func (s Snapshot) Empty() bool {
	return s.RatingText == "" && s.Rating == nil && s.Date == "" &&
		s.ContestName == "" && s.RankText == "" && s.Rank == nil &&
		s.RawTooltip == ""
}

var ratingRunRe = regexp.MustCompile(`(\d{3,5})`)

var monthTokens = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Sept",
}

// parseTooltip pulls contest fields out of free-form tooltip text. The
// heuristics mirror what the charts actually render: a line mentioning
// Rank holds the rank digits, the first 3-5 digit run anywhere is the
// rating, a line mentioning Contest is the contest name, and a trailing
// "day month year" triple is the date.
func parseTooltip(raw string) (contest, date string, rating, rank *int) {
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		if strings.Contains(ln, "Rank") {
			if d := digitRun(ln); d != "" {
				if v, err := strconv.Atoi(d); err == nil {
					rank = &v
				}
			}
		}
		if rating == nil {
			if m := ratingRunRe.FindStringSubmatch(ln); m != nil {
				v, err := strconv.Atoi(m[1])
				if err == nil {
					rating = &v
				}
			}
		}
		if strings.Contains(ln, "Contest") || strings.Contains(ln, "contest") {
			contest = ln
		}
		parts := strings.Fields(ln)
		if len(parts) >= 3 && len(parts[len(parts)-1]) == 4 && digitRun(parts[len(parts)-1]) == parts[len(parts)-1] {
			ds := strings.Join(parts[len(parts)-3:], " ")
			for _, tok := range monthTokens {
				if strings.Contains(ds, tok) {
					date = ds
					break
				}
			}
		}
	}
	return contest, date, rating, rank
}

// digitRun returns every digit in s concatenated.
func digitRun(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
