package derive

import (
	"time"

	"github.com/tempestwx/stationcore/internal/device"
)

// Period scopes a rolling statistic to a calendar unit in the station's
// local timezone.
type Period int

const (
	PeriodDay Period = iota
	PeriodMonth
	PeriodYear
)

func (p Period) String() string {
	switch p {
	case PeriodDay:
		return "day"
	case PeriodMonth:
		return "month"
	case PeriodYear:
		return "year"
	default:
		return "unknown"
	}
}

// periodRolled reports whether the calendar period has changed between the
// anchor epoch and the sample epoch, both interpreted in tz. An anchor of
// zero means the stat has never been seeded and cannot have rolled.
func periodRolled(p Period, anchor, sample int64, tz *time.Location) bool {
	if anchor == 0 {
		return false
	}
	a := time.Unix(anchor, 0).In(tz)
	s := time.Unix(sample, 0).In(tz)
	switch p {
	case PeriodDay:
		return a.Year() != s.Year() || a.YearDay() != s.YearDay()
	case PeriodMonth:
		return a.Year() != s.Year() || a.Month() != s.Month()
	default:
		return a.Year() != s.Year()
	}
}

// foldMax folds a sample into a daily maximum, restarting it when the local
// day rolls over.
func foldMax(ext *Extremum, sample device.Value, epoch int64, tz *time.Location) {
	if !sample.Valid {
		return
	}
	if periodRolled(PeriodDay, ext.Anchor, epoch, tz) || !ext.Value.Valid {
		ext.Value = sample
		ext.At = epoch
	} else if sample.Float64 > ext.Value.Float64 {
		ext.Value = sample
		ext.At = epoch
	}
	ext.Anchor = epoch
}

// foldMin folds a sample into a daily minimum, restarting it when the local
// day rolls over.
func foldMin(ext *Extremum, sample device.Value, epoch int64, tz *time.Location) {
	if !sample.Valid {
		return
	}
	if periodRolled(PeriodDay, ext.Anchor, epoch, tz) || !ext.Value.Valid {
		ext.Value = sample
		ext.At = epoch
	} else if sample.Float64 < ext.Value.Float64 {
		ext.Value = sample
		ext.At = epoch
	}
	ext.Anchor = epoch
}

// foldAvg folds a sample into a running daily mean using the incremental
// form avg' = avg + (x - avg)/(n + 1), restarting it when the local day
// rolls over.
func foldAvg(avg *Average, sample device.Value, epoch int64, tz *time.Location) {
	if !sample.Valid {
		return
	}
	if periodRolled(PeriodDay, avg.Anchor, epoch, tz) || !avg.Value.Valid {
		avg.Value = sample
		avg.Count = 1
	} else {
		avg.Value.Float64 += (sample.Float64 - avg.Value.Float64) / float64(avg.Count+1)
		avg.Count++
	}
	avg.Anchor = epoch
}

// foldAdditive folds a per-interval increment (minute rain, strikes in the
// last minute) into a period total. The period total survives across days
// via Base for month and year scopes; the daily scope zeroes on roll.
func foldAdditive(acc *Accumulator, p Period, delta device.Value, epoch int64, tz *time.Location) {
	if !delta.Valid {
		return
	}
	if periodRolled(p, acc.Anchor, epoch, tz) || !acc.Value.Valid {
		acc.Value = delta
	} else {
		acc.Value.Float64 += delta.Float64
	}
	acc.Anchor = epoch
}

// foldDailyTotal tracks a device-reported since-midnight total. The device's
// own counter is authoritative while the day lasts; on a local day roll the
// total restarts from the new reading.
func foldDailyTotal(acc *Accumulator, total device.Value, epoch int64, tz *time.Location) {
	if !total.Valid {
		return
	}
	acc.Value = total
	acc.Anchor = epoch
}

// foldPeriodTotal combines a completed-days base with today's running total
// for month and year scopes. On a day roll the finished day is promoted into
// Base; on a roll of the period itself Base restarts at zero.
func foldPeriodTotal(acc *Accumulator, p Period, today *Accumulator, epoch int64, tz *time.Location) {
	if periodRolled(p, acc.Anchor, epoch, tz) {
		// The finished period's total must not linger into the new one.
		acc.Base = 0
		acc.Value = device.None()
	} else if periodRolled(PeriodDay, acc.Anchor, epoch, tz) && acc.Value.Valid {
		acc.Base = acc.Value.Float64
	}
	if today.Value.Valid {
		acc.Value = device.Some(acc.Base + today.Value.Float64)
	} else if acc.Base > 0 {
		acc.Value = device.Some(acc.Base)
	}
	acc.Anchor = epoch
}

// foldPeakSun accumulates solar radiation into peak sun hours, one sample
// per minute, restarting at local midnight.
func foldPeakSun(ps *PeakSun, radiation device.Value, epoch int64, tz *time.Location) {
	if !radiation.Valid {
		return
	}
	if periodRolled(PeriodDay, ps.Anchor, epoch, tz) || !ps.Hours.Value.Valid {
		ps.WattHours = 0
	}
	ps.WattHours += radiation.Float64 / 60.0
	ps.Hours.Value = device.Some(ps.WattHours / 1000.0)
	ps.Anchor = epoch
}
