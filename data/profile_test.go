package data

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestContestRankingsMarshalFlat(t *testing.T) {
	c := ContestRankings{
		Summary: Stats{
			"total_contests":      "24",
			"leetcode_max-rating": "1713",
		},
		History: map[string][]ContestPoint{
			"leetcode_rating": {
				{
					Rating:      IntPtr(1713),
					Date:        StrPtr("4 Aug 2024"),
					ContestName: StrPtr("Weekly Contest 412"),
					Rank:        IntPtr(5222),
				},
			},
			"contest_history": nil,
		},
	}

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal("Marshal error: ", err)
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(b, &flat); err != nil {
		t.Fatal("Unmarshal error: ", err)
	}

	// summary values and history arrays live side by side
	if string(flat["total_contests"]) != `"24"` {
		t.Errorf("total_contests: got %v", string(flat["total_contests"]))
	}
	if !strings.HasPrefix(string(flat["leetcode_rating"]), "[") {
		t.Errorf("leetcode_rating must be an array, got %v",
			string(flat["leetcode_rating"]))
	}
	// nil history still serializes as an empty array, not null
	if string(flat["contest_history"]) != "[]" {
		t.Errorf("contest_history: exp [], got %v",
			string(flat["contest_history"]))
	}
}

func TestContestRankingsRoundTrip(t *testing.T) {
	c := ContestRankings{
		Summary: Stats{"total_contests": "3"},
		History: map[string][]ContestPoint{
			"codechef_rating": {
				{Rating: IntPtr(1502), Date: StrPtr("1 Jan 2024")},
			},
		},
	}

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal("Marshal error: ", err)
	}

	var got ContestRankings
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal("Unmarshal error: ", err)
	}

	if !reflect.DeepEqual(got, c) {
		t.Errorf("round trip failed, exp: %+v, got: %+v", c, got)
	}
}

func TestContestPointNullFields(t *testing.T) {
	b, err := json.Marshal(ContestPoint{Rating: IntPtr(1400)})
	if err != nil {
		t.Fatal("Marshal error: ", err)
	}

	// missing fields stay as explicit nulls on the wire
	exp := `{"rating":1400,"date":null,"contestName":null,"rank":null}`
	if string(b) != exp {
		t.Errorf("exp: %v, got: %v", exp, string(b))
	}
}

func TestNewProfileSerializesEmpty(t *testing.T) {
	b, err := json.Marshal(NewProfile())
	if err != nil {
		t.Fatal("Marshal error: ", err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal("Unmarshal error: ", err)
	}

	if string(m["heatmap"]) != "[]" {
		t.Errorf("heatmap: exp [], got %v", string(m["heatmap"]))
	}
	if string(m["basicStats"]) != "{}" {
		t.Errorf("basicStats: exp {}, got %v", string(m["basicStats"]))
	}
	if _, ok := m["contestRankings"]; ok {
		t.Error("empty contest rankings must be omitted")
	}
}

func TestProfileRankingsLazyInit(t *testing.T) {
	p := NewProfile()
	p.Rankings().Summary["total_contests"] = "5"

	if p.ContestRankings == nil {
		t.Fatal("rankings not allocated")
	}
	if p.ContestRankings.Summary["total_contests"] != "5" {
		t.Error("summary write lost")
	}
}
