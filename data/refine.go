package data

import (
	"strings"

	"golang.org/x/exp/slices"
)

type refineKey struct {
	date    string
	contest string
}

type refineEntry struct {
	point ContestPoint
	iso   string
	raw   string
	score int
}

// RefineSnapshots collapses the raw sweep readings for one platform into
// an ordered contest history. Snapshots are keyed by (date, contest) so
// the hundreds of overlapping hover readings deduplicate, and when two
// readings collide the one carrying more fields wins. Points with a
// parseable date sort first in calendar order; the rest follow sorted by
// their raw date text.
func RefineSnapshots(snaps []Snapshot) []ContestPoint {
	merged := make(map[refineKey]refineEntry)
	var order []refineKey

	for _, s := range snaps {
		if s.Empty() {
			continue
		}

		var contest, dateStr string
		var rating, rank *int
		if s.ContestName != "" {
			contest = s.ContestName
			dateStr = s.Date
			rating = s.Rating
			rank = s.Rank
		} else {
			contest, dateStr, rating, rank = parseTooltip(s.RawTooltip)
		}

		var iso string
		if t, ok := ParseContestDate(dateStr); ok {
			iso = ISODate(t)
		}

		key := refineKey{date: iso, contest: strings.TrimSpace(contest)}
		if iso == "" {
			key.date = dateStr
		}

		score := 0
		if rating != nil {
			score++
		}
		if rank != nil {
			score++
		}
		if dateStr != "" {
			score++
		}
		if contest != "" {
			score++
		}

		if ex, ok := merged[key]; ok {
			if score <= ex.score {
				continue
			}
		} else {
			order = append(order, key)
		}

		p := ContestPoint{Rating: rating, Rank: rank}
		if dateStr != "" {
			p.Date = StrPtr(dateStr)
		}
		if contest != "" {
			p.ContestName = StrPtr(contest)
		}
		merged[key] = refineEntry{point: p, iso: iso, raw: dateStr, score: score}
	}

	entries := make([]refineEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, merged[k])
	}
	slices.SortStableFunc(entries, func(a, b refineEntry) int {
		switch {
		case a.iso != "" && b.iso == "":
			return -1
		case a.iso == "" && b.iso != "":
			return 1
		case a.iso != "":
			return strings.Compare(a.iso, b.iso)
		default:
			return strings.Compare(a.raw, b.raw)
		}
	})

	points := make([]ContestPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, e.point)
	}
	return points
}
