package derive

import (
	"time"

	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

// StatSnapshot is the persistable state of one rolling statistic. Value is
// nil when the statistic is unavailable. Aux carries the per-kind extras:
// "at" for extrema, "count" for averages, "base" for period totals,
// "watt_hours"/"sunrise"/"sunset" for peak sun.
type StatSnapshot struct {
	Value  *float64           `json:"value"`
	Unit   units.Unit         `json:"unit"`
	Anchor int64              `json:"anchor"`
	Aux    map[string]float64 `json:"aux,omitempty"`
}

func snapValue(v device.Value) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func restoreValue(p *float64) device.Value {
	if p == nil {
		return device.None()
	}
	return device.Some(*p)
}

func snapExtremum(ext Extremum) StatSnapshot {
	return StatSnapshot{
		Value:  snapValue(ext.Value),
		Unit:   ext.Unit,
		Anchor: ext.Anchor,
		Aux:    map[string]float64{"at": float64(ext.At)},
	}
}

func restoreExtremum(ext *Extremum, s StatSnapshot) {
	ext.Value = restoreValue(s.Value)
	ext.Anchor = s.Anchor
	ext.At = int64(s.Aux["at"])
}

func snapAccumulator(acc Accumulator) StatSnapshot {
	return StatSnapshot{
		Value:  snapValue(acc.Value),
		Unit:   acc.Unit,
		Anchor: acc.Anchor,
		Aux:    map[string]float64{"base": acc.Base},
	}
}

func restoreAccumulator(acc *Accumulator, s StatSnapshot) {
	acc.Value = restoreValue(s.Value)
	acc.Anchor = s.Anchor
	acc.Base = s.Aux["base"]
}

// StatSnapshots exports every rolling statistic for persistence. The keys
// are stable identifiers the store uses as primary key components.
func (e *Engine) StatSnapshots() map[string]StatSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := &e.derived

	out := map[string]StatSnapshot{
		"slp_max":        snapExtremum(d.SLPMax),
		"slp_min":        snapExtremum(d.SLPMin),
		"out_temp_max":   snapExtremum(d.OutTempMax),
		"out_temp_min":   snapExtremum(d.OutTempMin),
		"in_temp_max":    snapExtremum(d.InTempMax),
		"in_temp_min":    snapExtremum(d.InTempMin),
		"gust_max":       snapExtremum(d.GustMax),
		"rain_today":     snapAccumulator(d.Rain.Today),
		"rain_yesterday": snapAccumulator(d.Rain.Yesterday),
		"rain_month":     snapAccumulator(d.Rain.Month),
		"rain_year":      snapAccumulator(d.Rain.Year),
		"strikes_today":  snapAccumulator(d.Lightning.Today),
		"strikes_month":  snapAccumulator(d.Lightning.Month),
		"strikes_year":   snapAccumulator(d.Lightning.Year),
	}
	out["wind_avg"] = StatSnapshot{
		Value:  snapValue(d.WindAvg.Value),
		Unit:   d.WindAvg.Unit,
		Anchor: d.WindAvg.Anchor,
		Aux:    map[string]float64{"count": float64(d.WindAvg.Count)},
	}
	out["peak_sun"] = StatSnapshot{
		Value:  snapValue(d.PeakSun.Hours.Value),
		Unit:   d.PeakSun.Hours.Unit,
		Anchor: d.PeakSun.Anchor,
		Aux: map[string]float64{
			"watt_hours": d.PeakSun.WattHours,
			"sunrise":    float64(d.PeakSun.Sunrise),
			"sunset":     float64(d.PeakSun.Sunset),
		},
	}
	return out
}

// RestoreStats reloads rolling statistics saved by StatSnapshots. When the
// snapshot is from the current local day the cold-start history backfill is
// skipped; statistics from a finished period roll over naturally on the next
// observation.
func (e *Engine) RestoreStats(stats map[string]StatSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := &e.derived

	var maxAnchor int64
	for _, s := range stats {
		if s.Anchor > maxAnchor {
			maxAnchor = s.Anchor
		}
	}
	if maxAnchor == 0 {
		return
	}

	if s, ok := stats["slp_max"]; ok {
		restoreExtremum(&d.SLPMax, s)
	}
	if s, ok := stats["slp_min"]; ok {
		restoreExtremum(&d.SLPMin, s)
	}
	if s, ok := stats["out_temp_max"]; ok {
		restoreExtremum(&d.OutTempMax, s)
	}
	if s, ok := stats["out_temp_min"]; ok {
		restoreExtremum(&d.OutTempMin, s)
	}
	if s, ok := stats["in_temp_max"]; ok {
		restoreExtremum(&d.InTempMax, s)
	}
	if s, ok := stats["in_temp_min"]; ok {
		restoreExtremum(&d.InTempMin, s)
	}
	if s, ok := stats["gust_max"]; ok {
		restoreExtremum(&d.GustMax, s)
	}
	if s, ok := stats["rain_today"]; ok {
		restoreAccumulator(&d.Rain.Today, s)
	}
	if s, ok := stats["rain_yesterday"]; ok {
		restoreAccumulator(&d.Rain.Yesterday, s)
	}
	if s, ok := stats["rain_month"]; ok {
		restoreAccumulator(&d.Rain.Month, s)
	}
	if s, ok := stats["rain_year"]; ok {
		restoreAccumulator(&d.Rain.Year, s)
	}
	if s, ok := stats["strikes_today"]; ok {
		restoreAccumulator(&d.Lightning.Today, s)
	}
	if s, ok := stats["strikes_month"]; ok {
		restoreAccumulator(&d.Lightning.Month, s)
	}
	if s, ok := stats["strikes_year"]; ok {
		restoreAccumulator(&d.Lightning.Year, s)
	}
	if s, ok := stats["wind_avg"]; ok {
		d.WindAvg.Value = restoreValue(s.Value)
		d.WindAvg.Anchor = s.Anchor
		d.WindAvg.Count = int(s.Aux["count"])
	}
	if s, ok := stats["peak_sun"]; ok {
		d.PeakSun.Hours.Value = restoreValue(s.Value)
		d.PeakSun.Anchor = s.Anchor
		d.PeakSun.WattHours = s.Aux["watt_hours"]
		d.PeakSun.Sunrise = int64(s.Aux["sunrise"])
		d.PeakSun.Sunset = int64(s.Aux["sunset"])
	}

	// A same-day snapshot already contains everything a history backfill
	// would reconstruct.
	tz := e.cfg.tz()
	nowD := e.now().In(tz)
	then := time.Unix(maxAnchor, 0).In(tz)
	if nowD.Year() == then.Year() && nowD.YearDay() == then.YearDay() {
		for _, class := range []device.Class{device.Tempest, device.Sky, device.OutdoorAir, device.IndoorAir} {
			e.seeded[class] = true
		}
	}
}
