package derive

import (
	"math"

	"github.com/tempestwx/stationcore/internal/backfill"
	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

// Lookback tolerances. A historical sample further from the target instant
// than the tolerance does not anchor a trend.
const (
	lookback3h         = 3 * 3600
	lookback24h        = 24 * 3600
	lookbackTolerance  = 5 * 60
	strikeWindow10m    = 10 * 60
	strikeTolerance10m = 2 * 60
)

// lookbackClosest returns the value and epoch of the record in batch whose
// epoch is closest to target, provided it lies within tolerance seconds and
// carries a present value at field. fieldIdx is the raw bucket index as
// served by the history endpoint.
func lookbackClosest(batch backfill.Batch, fieldIdx int, target, tolerance int64) (device.Value, int64, bool) {
	var (
		best     device.Value
		bestAt   int64
		bestDist int64 = math.MaxInt64
	)
	for _, rec := range batch.Records {
		v := rec.Field(fieldIdx)
		if !v.Valid {
			continue
		}
		dist := rec.Epoch - target
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = v
			bestAt = rec.Epoch
			bestDist = dist
		}
	}
	if bestDist > tolerance {
		return device.None(), 0, false
	}
	return best, bestAt, true
}

// pressureTrend derives the 3-hour sea-level pressure trend from the current
// reading and the closest historical sample. Both ends are reduced to sea
// level before differencing so the rate is not polluted by the station
// elevation. Missing history leaves the trend unavailable.
func pressureTrend(now device.Value, epoch int64, batch backfill.Batch, fieldIdx int, elevation float64) PressureTrend {
	out := PressureTrend{
		Rate:      measurement(device.None(), units.MillibarPerHour),
		Direction: TrendUnavailable,
		Tendency:  "-",
	}
	if !now.Valid {
		return out
	}
	then, thenAt, ok := lookbackClosest(batch, fieldIdx, epoch-lookback3h, lookbackTolerance)
	if !ok {
		return out
	}

	// The matched sample can sit up to the tolerance away from the nominal
	// lookback, so the rate divides by the real elapsed time.
	slpNow := SeaLevelPressure(now, elevation)
	slpThen := SeaLevelPressure(then, elevation)
	rate := (slpNow.Value.Float64 - slpThen.Value.Float64) / elapsedHours(thenAt, epoch)
	out.Rate.Value = device.Some(rate)
	out.Direction = ClassifyTrend(rate)
	out.Tendency = Tendency(slpNow.Value.Float64, out.Direction)
	return out
}

// tempTrend derives the 3-hour outdoor temperature trend in C/hr.
func tempTrend(now device.Value, epoch int64, batch backfill.Batch, fieldIdx int) TempTrend {
	out := TempTrend{Rate: measurement(device.None(), units.CelsiusPerHour)}
	if !now.Valid {
		return out
	}
	then, thenAt, ok := lookbackClosest(batch, fieldIdx, epoch-lookback3h, lookbackTolerance)
	if !ok {
		return out
	}
	out.Rate.Value = device.Some((now.Float64 - then.Float64) / elapsedHours(thenAt, epoch))
	return out
}

// elapsedHours is the span between two epochs in hours.
func elapsedHours(from, to int64) float64 {
	return float64(to-from) / 3600.0
}

// tempDiff derives the temperature difference against the same time
// yesterday, with a coarse warmer/colder text.
func tempDiff(now device.Value, epoch int64, batch backfill.Batch, fieldIdx int) TempDiff {
	out := TempDiff{Delta: measurement(device.None(), units.CelsiusDelta)}
	if !now.Valid {
		return out
	}
	then, _, ok := lookbackClosest(batch, fieldIdx, epoch-lookback24h, lookbackTolerance)
	if !ok {
		return out
	}
	delta := now.Float64 - then.Float64
	out.Delta.Value = device.Some(delta)
	out.Text = tempDiffText(delta)
	return out
}

// strikeWindowAverage averages the non-zero per-minute strike counts between
// target-window and target. The history must contain a present sample within
// tolerance of the window start to anchor it; otherwise the result is
// missing. A fully anchored window where every count is zero averages to 0.0.
func strikeWindowAverage(batch backfill.Batch, fieldIdx int, target, window, tolerance int64) device.Value {
	start := target - window
	var (
		anchorDist int64 = math.MaxInt64
		anchorAt   int64
	)
	for _, rec := range batch.Records {
		if !rec.Field(fieldIdx).Valid {
			continue
		}
		dist := rec.Epoch - start
		if dist < 0 {
			dist = -dist
		}
		if dist < anchorDist {
			anchorDist = dist
			anchorAt = rec.Epoch
		}
	}
	if anchorDist > tolerance {
		return device.None()
	}

	var (
		sum     float64
		nonZero int
	)
	for _, rec := range batch.Records {
		if rec.Epoch < anchorAt {
			continue
		}
		v := rec.Field(fieldIdx)
		if !v.Valid {
			continue
		}
		if v.Float64 > 0 {
			sum += v.Float64
			nonZero++
		}
	}
	if nonZero == 0 {
		return device.Some(0)
	}
	return device.Some(sum / float64(nonZero))
}

// strikeFrequency derives the average strikes per minute over the trailing
// 10 minutes and 3 hours.
func strikeFrequency(epoch int64, batch backfill.Batch, fieldIdx int) StrikeFrequency {
	return StrikeFrequency{
		Min10: strikeWindowAverage(batch, fieldIdx, epoch, strikeWindow10m, strikeTolerance10m),
		Hr3:   strikeWindowAverage(batch, fieldIdx, epoch, lookback3h, lookbackTolerance),
	}
}
