package data

import (
	"encoding/json"
	"fmt"
)

// Stats is a bag of labelled counters pulled off a profile page. Values
// stay strings because the site renders things like "1.2k" and "--" and
// callers are expected to display them, not do math on them.
type Stats map[string]string

// HeatmapCell is one day of submission activity from the profile
// calendar heatmap.
type HeatmapCell struct {
	Date        string `json:"date"`
	Submissions int    `json:"submissions"`
	ColorClass  string `json:"colorClass"`
	StyleColor  string `json:"styleColor"`
}

// ContestPoint is one refined entry in a contest history. Fields are
// pointers because the tooltip a point came from may be missing any of
// them, and the wire format keeps explicit nulls.
type ContestPoint struct {
	Rating      *int    `json:"rating"`
	Date        *string `json:"date"`
	ContestName *string `json:"contestName"`
	Rank        *int    `json:"rank"`
}

// ContestRankings groups the summary figures and the per-platform
// histories from the contest tab. On the wire the two are flattened into
// a single object, with summary values as strings ("leetcode_max-rating")
// next to history arrays ("leetcode_rating", "contest_history"), so this
// type carries custom JSON marshaling.
type ContestRankings struct {
	Summary Stats
	History map[string][]ContestPoint
}

// MarshalJSON flattens Summary and History into one object.
func (c ContestRankings) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Summary)+len(c.History))
	for k, v := range c.Summary {
		out[k] = v
	}
	for k, v := range c.History {
		if v == nil {
			v = []ContestPoint{}
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a flattened contest object back into Summary and
// History by value shape.
func (c *ContestRankings) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Summary = make(Stats)
	c.History = make(map[string][]ContestPoint)
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			c.Summary[k] = s
			continue
		}
		var pts []ContestPoint
		if err := json.Unmarshal(v, &pts); err != nil {
			return fmt.Errorf("Error decoding contest field %v: %w", k, err)
		}
		c.History[k] = pts
	}
	return nil
}

// Profile is the scraped view of one profile page. Which sections are
// populated depends on the scrape mode: a full profile carries all of
// them, contest pages only rankings and heatmap, generic platform pages
// only stats.
type Profile struct {
	BasicStats     Stats `json:"basicStats"`
	ProblemsSolved Stats `json:"problemsSolved"`
	// ContestRankings is only present for pages that have a contest
	// tab, so it keeps omitempty.
	ContestRankings *ContestRankings `json:"contestRankings,omitempty"`
	Heatmap         []HeatmapCell    `json:"heatmap"`
}

// NewProfile returns a Profile with all sections allocated, so a scrape
// that finds nothing still serializes empty containers instead of nulls.
func NewProfile() *Profile {
	return &Profile{
		BasicStats:     make(Stats),
		ProblemsSolved: make(Stats),
		Heatmap:        []HeatmapCell{},
	}
}

// Rankings returns the contest section, allocating it on first use.
func (p *Profile) Rankings() *ContestRankings {
	if p.ContestRankings == nil {
		p.ContestRankings = &ContestRankings{
			Summary: make(Stats),
			History: make(map[string][]ContestPoint),
		}
	}
	return p.ContestRankings
}

// IntPtr is a convenience for building nullable point fields.
func IntPtr(v int) *int { return &v }

// StrPtr is a convenience for building nullable point fields.
func StrPtr(v string) *string { return &v }
