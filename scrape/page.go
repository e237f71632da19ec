package scrape

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

// textByXPath returns the trimmed text of the first element matching
// xpath, or "0" when nothing matches. The zero default keeps stat maps
// uniform when a section is missing from a profile.
func textByXPath(page *rod.Page, xpath string) string {
	els, err := page.ElementsX(xpath)
	if err != nil || len(els) == 0 {
		return "0"
	}
	txt, err := els.First().Text()
	if err != nil {
		return "0"
	}
	return strings.TrimSpace(txt)
}

// evalString evaluates js and returns its result as a trimmed string,
// or "" on any failure.
func evalString(page *rod.Page, js string, args ...interface{}) string {
	res, err := page.Eval(js, args...)
	if err != nil || res == nil {
		return ""
	}
	return strings.TrimSpace(res.Value.Str())
}

// evalJSON evaluates js and decodes its result into out.
func evalJSON(page *rod.Page, out interface{}, js string, args ...interface{}) error {
	res, err := page.Eval(js, args...)
	if err != nil {
		return err
	}
	b, err := json.Marshal(res.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// readPanel reads the contest graph's detail panel. Returns nil, nil
// when the panel is not present.
func readPanel(page *rod.Page, container string) (*data.Snapshot, error) {
	res, err := page.Eval(readPanelJS, container)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(res.Value)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	var s data.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type tooltipPair struct {
	XAxis   string `json:"xaxis"`
	Tooltip string `json:"tooltip"`
}

// readTooltips reads the floating chart tooltips, best effort.
func readTooltips(page *rod.Page) tooltipPair {
	var t tooltipPair
	if err := evalJSON(page, &t, readTooltipsJS); err != nil {
		return tooltipPair{}
	}
	return t
}

// dispatchAt fires synthetic pointer events at a page coordinate.
func dispatchAt(page *rod.Page, x, y int, container string) error {
	_, err := page.Eval(dispatchEventJS, x, y, container)
	return err
}

// clickByText clicks the first button matching label, falling back to
// a JS text search when no button matches within a short wait.
func clickByText(page *rod.Page, label string) bool {
	el, err := page.Timeout(3 * time.Second).ElementR("button", label)
	if err == nil {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			return true
		}
	}
	res, err := page.Eval(clickByTextJS, label)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// waitPanelChange waits until the detail panel shows something other
// than old, or the click wait expires.
func waitPanelChange(page *rod.Page, cfg Config, old *data.Snapshot) bool {
	oldDate, oldContest := "", ""
	if old != nil {
		oldDate, oldContest = old.Date, old.ContestName
	}
	err := page.Timeout(cfg.Sweep.ClickWait()).
		Wait(rod.Eval(panelChangedJS, oldDate, oldContest, cfg.GraphContainer))
	return err == nil
}

// sleepCtx sleeps for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
