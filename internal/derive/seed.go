package derive

import (
	"github.com/tempestwx/stationcore/internal/backfill"
	"github.com/tempestwx/stationcore/internal/device"
)

// batchSum totals the present values of one field across a batch.
func batchSum(batch backfill.Batch, idx int) (float64, bool) {
	var (
		sum float64
		any bool
	)
	for _, rec := range batch.Records {
		if v := rec.Field(idx); v.Valid {
			sum += v.Float64
			any = true
		}
	}
	return sum, any
}

// maybeSeed reconciles the rolling statistics with history after a cold
// start. It runs once per device class, only when every window the class
// needs is in the cache, so a partially failed fetch is retried whole rather
// than applied twice. Call with the lock held.
func (e *Engine) maybeSeed(obs device.Observation) {
	if e.seeded[obs.Class] || e.hist == nil {
		return
	}

	today, ok := e.window(obs.DeviceID, backfill.Today)
	if !ok {
		return
	}
	var yesterday, month, year backfill.Batch
	switch obs.Class {
	case device.Tempest, device.Sky:
		if yesterday, ok = e.window(obs.DeviceID, backfill.Yesterday); !ok {
			return
		}
		fallthrough
	case device.OutdoorAir:
		if month, ok = e.window(obs.DeviceID, backfill.Month); !ok {
			return
		}
		if year, ok = e.window(obs.DeviceID, backfill.Year); !ok {
			return
		}
	}

	switch obs.Class {
	case device.Tempest:
		e.seedTempPressure(obs, today, e.cfg.Elevation+e.cfg.TempestHeight)
		e.seedWindSolar(obs, today)
		e.seedRain(obs, today, yesterday, month, year)
		e.seedStrikes(obs, today, month, year)
	case device.OutdoorAir:
		e.seedTempPressure(obs, today, e.cfg.Elevation+e.cfg.OutAirHeight)
		e.seedStrikes(obs, today, month, year)
	case device.Sky:
		e.seedWindSolar(obs, today)
		e.seedRain(obs, today, yesterday, month, year)
	case device.IndoorAir:
		e.seedIndoor(obs, today)
	}

	e.seeded[obs.Class] = true
	e.log.Info("rolling statistics seeded from history",
		"device_id", obs.DeviceID, "class", obs.Class.String())
}

func (e *Engine) seedTempPressure(obs device.Observation, today backfill.Batch, elevation float64) {
	d := &e.derived
	tz := e.cfg.tz()
	pIdx, _ := backfill.FieldIndex(obs.Class, backfill.QPressure, false)
	tIdx, _ := backfill.FieldIndex(obs.Class, backfill.QTemperature, false)

	for _, rec := range today.Records {
		if t := rec.Field(tIdx); t.Valid {
			foldMax(&d.OutTempMax, t, rec.Epoch, tz)
			foldMin(&d.OutTempMin, t, rec.Epoch, tz)
		}
		if p := rec.Field(pIdx); p.Valid {
			slp := SeaLevelPressure(p, elevation)
			foldMax(&d.SLPMax, slp.Value, rec.Epoch, tz)
			foldMin(&d.SLPMin, slp.Value, rec.Epoch, tz)
		}
	}
	d.OutTempMax.Anchor = obs.Epoch
	d.OutTempMin.Anchor = obs.Epoch
	d.SLPMax.Anchor = obs.Epoch
	d.SLPMin.Anchor = obs.Epoch
}

func (e *Engine) seedIndoor(obs device.Observation, today backfill.Batch) {
	d := &e.derived
	tz := e.cfg.tz()
	tIdx, _ := backfill.FieldIndex(obs.Class, backfill.QTemperature, false)

	for _, rec := range today.Records {
		if t := rec.Field(tIdx); t.Valid {
			foldMax(&d.InTempMax, t, rec.Epoch, tz)
			foldMin(&d.InTempMin, t, rec.Epoch, tz)
		}
	}
	d.InTempMax.Anchor = obs.Epoch
	d.InTempMin.Anchor = obs.Epoch
}

func (e *Engine) seedWindSolar(obs device.Observation, today backfill.Batch) {
	d := &e.derived
	tz := e.cfg.tz()
	wIdx, _ := backfill.FieldIndex(obs.Class, backfill.QWindSpeed, false)
	gIdx, _ := backfill.FieldIndex(obs.Class, backfill.QWindGust, false)
	rIdx, _ := backfill.FieldIndex(obs.Class, backfill.QRadiation, false)

	var (
		windSum   float64
		windCount int
	)
	for _, rec := range today.Records {
		if w := rec.Field(wIdx); w.Valid {
			windSum += w.Float64
			windCount++
		}
		if g := rec.Field(gIdx); g.Valid {
			foldMax(&d.GustMax, g, rec.Epoch, tz)
		}
	}
	if windCount > 0 {
		d.WindAvg.Value = device.Some(windSum / float64(windCount))
		d.WindAvg.Count = windCount
		d.WindAvg.Anchor = obs.Epoch
	}
	d.GustMax.Anchor = obs.Epoch

	// The minute batch runs through the current minute, so the history sum
	// replaces rather than augments the live accumulation.
	if wattHrs, ok := seedWattHours(today, rIdx); ok {
		d.PeakSun.WattHours = wattHrs
		d.PeakSun.Hours.Value = device.Some(wattHrs / 1000.0)
		d.PeakSun.Anchor = obs.Epoch
		e.refreshSolarPotential(obs.Epoch)
	}
}

func seedWattHours(batch backfill.Batch, idx int) (float64, bool) {
	var (
		wattHrs float64
		any     bool
	)
	for _, rec := range batch.Records {
		if r := rec.Field(idx); r.Valid {
			wattHrs += r.Float64 / 60.0
			any = true
		}
	}
	return wattHrs, any
}

func (e *Engine) seedRain(obs device.Observation, today, yesterday, month, year backfill.Batch) {
	d := &e.derived
	aIdx, _ := backfill.FieldIndex(obs.Class, backfill.QRain, false)
	eIdx, _ := backfill.FieldIndex(obs.Class, backfill.QRain, true)

	// The device's own since-midnight counter wins over the history sum.
	if !obs.DailyRain.Valid {
		if sum, ok := batchSum(today, aIdx); ok {
			d.Rain.Today.Value = device.Some(sum)
			d.Rain.Today.Anchor = obs.Epoch
		}
	}
	if sum, ok := batchSum(yesterday, aIdx); ok {
		d.Rain.Yesterday.Value = device.Some(sum)
		d.Rain.Yesterday.Anchor = obs.Epoch
	}

	monthBase, _ := batchSum(month, eIdx)
	yearBase, _ := batchSum(year, eIdx)
	d.Rain.Month.Base = monthBase
	d.Rain.Year.Base = yearBase
	tz := e.cfg.tz()
	foldPeriodTotal(&d.Rain.Month, PeriodMonth, &d.Rain.Today, obs.Epoch, tz)
	foldPeriodTotal(&d.Rain.Year, PeriodYear, &d.Rain.Today, obs.Epoch, tz)
}

func (e *Engine) seedStrikes(obs device.Observation, today, month, year backfill.Batch) {
	d := &e.derived
	aIdx, _ := backfill.FieldIndex(obs.Class, backfill.QStrikes, false)
	eIdx, _ := backfill.FieldIndex(obs.Class, backfill.QStrikes, true)

	todaySum, ok := batchSum(today, aIdx)
	if !ok {
		return
	}
	d.Lightning.Today.Value = device.Some(todaySum)
	d.Lightning.Today.Anchor = obs.Epoch

	if monthBase, ok := batchSum(month, eIdx); ok {
		d.Lightning.Month.Value = device.Some(monthBase + todaySum)
		d.Lightning.Month.Anchor = obs.Epoch
	}
	if yearBase, ok := batchSum(year, eIdx); ok {
		d.Lightning.Year.Value = device.Some(yearBase + todaySum)
		d.Lightning.Year.Anchor = obs.Epoch
	}
}
