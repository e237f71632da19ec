package scrape

import (
	"context"
	"math"
	"strings"

	"github.com/go-rod/rod"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

// sweepXs spreads the sweep columns evenly across the graph width,
// inset a little from both edges so the first and last points stay
// hoverable.
func sweepXs(left, width float64, steps int) []int {
	padX := math.Max(4, width*0.02)
	startX := left + padX
	endX := left + width - padX

	xs := make([]int, 0, steps)
	for i := 0; i < steps; i++ {
		t := 0.5
		if steps > 1 {
			t = float64(i) / float64(steps-1)
		}
		xs = append(xs, int(math.Round(startX+(endX-startX)*t)))
	}
	return xs
}

// sweepYs fans out around the vertical center of the graph. The chart
// line wanders vertically, so each column probes a short stack of
// heights until one triggers a tooltip.
func sweepYs(top, height float64, sweepPixels, step int) []int {
	centerY := int(top + height*0.5)
	half := sweepPixels / 2

	var ys []int
	for off := -half; off <= half; off += step {
		ys = append(ys, centerY+off)
	}
	return ys
}

// sweep traces the contest graph with synthetic pointer moves and
// collects a snapshot per column. Columns where neither the detail
// panel nor a tooltip reacted are skipped.
func (s *Scraper) sweep(ctx context.Context, page *rod.Page, cfg Config) ([]data.Snapshot, error) {
	container := cfg.GraphContainer

	els, err := page.Elements(container + " svg.apexcharts-svg")
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		els, err = page.Elements(container + " svg")
		if err != nil {
			return nil, err
		}
	}
	if len(els) == 0 {
		return nil, nil
	}

	shape, err := els.First().Shape()
	if err != nil {
		return nil, err
	}
	box := shape.Box()
	if box == nil {
		return nil, nil
	}

	xs := sweepXs(box.X, box.Width, cfg.Sweep.XSteps)
	ys := sweepYs(box.Y, box.Height, cfg.Sweep.YSweepPixels, cfg.Sweep.YSweepStep)

	var snaps []data.Snapshot
	for _, x := range xs {
		for _, y := range ys {
			if err := dispatchAt(page, x, y, container); err != nil {
				return snaps, err
			}
			if err := sleepCtx(ctx, cfg.Sweep.EventPause()); err != nil {
				return snaps, err
			}

			panel, err := readPanel(page, container)
			if err != nil {
				return snaps, err
			}
			if panel != nil && panel.ContestName != "" {
				snaps = append(snaps, *panel)
				break
			}

			tips := readTooltips(page)
			txt := strings.TrimSpace(tips.XAxis + "\n" + tips.Tooltip)
			if txt != "" {
				snaps = append(snaps, data.Snapshot{RawTooltip: txt})
				break
			}
		}
	}
	return snaps, nil
}
