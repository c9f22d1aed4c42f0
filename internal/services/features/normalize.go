package features

import (
	"math"
	"sort"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// NormalizeReport describes what Normalize changed. Callers log non-empty reports at warn level.
type NormalizeReport struct {
	Duplicates int
	Unsorted   bool
	Dropped    int
	Filled     int
}

// Clean reports whether the input needed no repair.
func (r NormalizeReport) Clean() bool {
	return r.Duplicates == 0 && !r.Unsorted && r.Dropped == 0 && r.Filled == 0
}

// Normalize is the single ingestion repair step: dates are pinned to UTC days,
// bars with unusable closes are dropped, duplicate dates keep the latest write,
// rows are sorted and missing business days are linearly interpolated.
func Normalize(in models.PriceSeries) (models.PriceSeries, NormalizeReport) {
	var rep NormalizeReport
	byDay := make(map[time.Time]int, len(in))
	out := make(models.PriceSeries, 0, len(in))
	var prev time.Time
	for i, b := range in {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			rep.Dropped++
			continue
		}
		b.Date = util.Day(b.Date)
		if i > 0 && b.Date.Before(prev) {
			rep.Unsorted = true
		}
		prev = b.Date
		if idx, ok := byDay[b.Date]; ok {
			out[idx] = b
			rep.Duplicates++
			continue
		}
		byDay[b.Date] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	filled := make(models.PriceSeries, 0, len(out))
	for i, b := range out {
		if i > 0 {
			gap := util.BusinessDaysBetween(out[i-1].Date, b.Date) - 1
			if !util.IsBusinessDay(b.Date) {
				gap++
			}
			day := out[i-1].Date
			for k := 1; k <= gap; k++ {
				day = util.NextBusinessDay(day)
				w := float64(k) / float64(gap+1)
				filled = append(filled, interpolate(out[i-1], b, day, w))
				rep.Filled++
			}
		}
		filled = append(filled, b)
	}
	return filled, rep
}

func interpolate(a, b models.PriceBar, day time.Time, w float64) models.PriceBar {
	lerp := func(x, y float64) float64 { return x + (y-x)*w }
	return models.PriceBar{
		Date:   day,
		Open:   lerp(a.Open, b.Open),
		High:   lerp(a.High, b.High),
		Low:    lerp(a.Low, b.Low),
		Close:  lerp(a.Close, b.Close),
		Volume: lerp(a.Volume, b.Volume),
	}
}
