// Package derive turns decoded station observations into the derived
// meteorological quantities shown to consumers: dew point, feels-like
// temperature, pressure trend, calendar-period extrema and accumulations,
// lightning counters, wind statistics and solar figures.
//
// The stateful pieces are rolling statistics scoped to a calendar period
// (day, month or year) in the station's local timezone. They are seeded from
// a historical backfill on cold start and reset when the period rolls over.
package derive

import (
	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

// Measurement couples an optional value with its unit.
type Measurement struct {
	Value device.Value `json:"value"`
	Unit  units.Unit   `json:"unit"`
}

func measurement(v device.Value, u units.Unit) Measurement {
	return Measurement{Value: v, Unit: u}
}

// FeelsLike is the apparent temperature plus its configured band.
type FeelsLike struct {
	Measurement
	Label string `json:"label"` // e.g. "Feeling mild"
	Icon  string `json:"icon"`  // e.g. "Mild"
}

// TrendDirection classifies the sign and magnitude of a trend rate.
type TrendDirection string

const (
	TrendRisingRapidly  TrendDirection = "Rising rapidly"
	TrendRising         TrendDirection = "Rising"
	TrendSteady         TrendDirection = "Steady"
	TrendFalling        TrendDirection = "Falling"
	TrendFallingRapidly TrendDirection = "Falling rapidly"
	TrendUnavailable    TrendDirection = "-"
)

// PressureTrend is the 3-hour sea-level pressure trend with its direction and
// weather tendency texts.
type PressureTrend struct {
	Rate      Measurement    `json:"rate"` // mb/hr
	Direction TrendDirection `json:"direction"`
	Tendency  string         `json:"tendency"`
}

// TempTrend is the 3-hour temperature trend.
type TempTrend struct {
	Rate Measurement `json:"rate"` // C/hr
}

// TempDiff is the 24-hour temperature difference.
type TempDiff struct {
	Delta Measurement `json:"delta"` // C
	Text  string      `json:"text"`  // "warmer", "colder" or ""
}

// Extremum is a daily maximum or minimum with the epoch at which it occurred.
// Anchor is the epoch of the last accepted sample and pins the stat to its
// local calendar day.
type Extremum struct {
	Measurement
	At     int64 `json:"at"`
	Anchor int64 `json:"anchor"`
}

// Average is a running mean since local midnight.
type Average struct {
	Measurement
	Count  int   `json:"count"`
	Anchor int64 `json:"anchor"`
}

// Accumulator is a period total. Base carries the completed prior days of a
// monthly or yearly total; daily accumulators leave it zero.
type Accumulator struct {
	Measurement
	Base   float64 `json:"base,omitempty"`
	Anchor int64   `json:"anchor"`
}

// RainRate is the instantaneous rain rate with its intensity text.
type RainRate struct {
	Rate Measurement `json:"rate"` // mm/hr
	Text string      `json:"text"`
}

// StrikeFrequency is the average strikes per minute over the two lookback
// windows. A window with history but no lightning is 0.0; a window with no
// history at all is missing.
type StrikeFrequency struct {
	Min10 device.Value `json:"min_10"`
	Hr3   device.Value `json:"hr_3"`
}

// CardinalWind is a bearing bucketed onto the 16-point compass.
type CardinalWind struct {
	Bearing     Measurement `json:"bearing"`
	Cardinal    string      `json:"cardinal"`    // "N", "SSW", "Calm", "-"
	Description string      `json:"description"` // "Due North", "South SW"
}

// Beaufort is a wind speed bucketed onto the Beaufort scale.
type Beaufort struct {
	Speed       Measurement  `json:"speed"` // m/s
	Force       device.Value `json:"force"`
	Description string       `json:"description"`
}

// UVReport is the UV index with its exposure category.
type UVReport struct {
	Index Measurement `json:"index"`
	Level string      `json:"level"`
	Color string      `json:"color"`
}

// PeakSun is the peak-sun-hours accumulation since local midnight plus the
// bucketed solar potential.
type PeakSun struct {
	Hours     Measurement `json:"hours"`
	Potential string      `json:"potential"`
	WattHours float64     `json:"watt_hours"`
	Sunrise   int64       `json:"sunrise,omitempty"`
	Sunset    int64       `json:"sunset,omitempty"`
	Anchor    int64       `json:"anchor"`
}

// Lightning bundles the strike counters and event-derived fields.
type Lightning struct {
	Today     Accumulator     `json:"today"`
	Month     Accumulator     `json:"month"`
	Year      Accumulator     `json:"year"`
	LastEpoch device.Value    `json:"last_epoch"`
	Distance  Measurement     `json:"distance"` // km
	DeltaT    device.Value    `json:"delta_t"`  // seconds since last strike
	Frequency StrikeFrequency `json:"frequency"`
}

// Rain bundles the rain rate and the period accumulations.
type Rain struct {
	Rate      RainRate    `json:"rate"`
	Today     Accumulator `json:"today"`
	Yesterday Accumulator `json:"yesterday"`
	Month     Accumulator `json:"month"`
	Year      Accumulator `json:"year"`
}

// Derived is the complete per-station snapshot of derived quantities. It is
// created empty at station selection, mutated once per observation, and fully
// reset on station switch.
type Derived struct {
	DewPoint     Measurement   `json:"dew_point"`
	FeelsLike    FeelsLike     `json:"feels_like"`
	SeaLevel     Measurement   `json:"sea_level_pressure"`
	SLPTrend     PressureTrend `json:"slp_trend"`
	SLPMax       Extremum      `json:"slp_max"`
	SLPMin       Extremum      `json:"slp_min"`
	OutTempMax   Extremum      `json:"out_temp_max"`
	OutTempMin   Extremum      `json:"out_temp_min"`
	InTempMax    Extremum      `json:"in_temp_max"`
	InTempMin    Extremum      `json:"in_temp_min"`
	OutTempDiff  TempDiff      `json:"out_temp_diff"`
	OutTempTrend TempTrend     `json:"out_temp_trend"`
	Rain         Rain          `json:"rain"`
	Lightning    Lightning     `json:"lightning"`
	WindAvg      Average       `json:"wind_avg"`
	GustMax      Extremum      `json:"gust_max"`
	WindDir      CardinalWind  `json:"wind_dir"`
	RapidWind    CardinalWind  `json:"rapid_wind"`
	Beaufort     Beaufort      `json:"beaufort"`
	UV           UVReport      `json:"uv"`
	PeakSun      PeakSun       `json:"peak_sun"`
}

// emptyDerived returns the zero snapshot with units pre-assigned so that a
// consumer always sees a unit tag, even before the first observation.
func emptyDerived() Derived {
	var d Derived
	d.DewPoint.Unit = units.Celsius
	d.FeelsLike.Unit = units.Celsius
	d.FeelsLike.Label = "-"
	d.FeelsLike.Icon = "-"
	d.SeaLevel.Unit = units.Millibar
	d.SLPTrend.Rate.Unit = units.MillibarPerHour
	d.SLPTrend.Direction = TrendUnavailable
	d.SLPTrend.Tendency = "-"
	d.SLPMax.Unit = units.Millibar
	d.SLPMin.Unit = units.Millibar
	d.OutTempMax.Unit = units.Celsius
	d.OutTempMin.Unit = units.Celsius
	d.InTempMax.Unit = units.Celsius
	d.InTempMin.Unit = units.Celsius
	d.OutTempDiff.Delta.Unit = units.CelsiusDelta
	d.OutTempTrend.Rate.Unit = units.CelsiusPerHour
	d.Rain.Rate.Rate.Unit = units.MillimetresPerHour
	d.Rain.Today.Unit = units.Millimetres
	d.Rain.Yesterday.Unit = units.Millimetres
	d.Rain.Month.Unit = units.Millimetres
	d.Rain.Year.Unit = units.Millimetres
	d.Lightning.Today.Unit = units.Count
	d.Lightning.Month.Unit = units.Count
	d.Lightning.Year.Unit = units.Count
	d.Lightning.Distance.Unit = units.Kilometres
	d.WindAvg.Unit = units.MetresPerSecond
	d.GustMax.Unit = units.MetresPerSecond
	d.WindDir.Bearing.Unit = units.Degrees
	d.WindDir.Cardinal = "-"
	d.WindDir.Description = "-"
	d.RapidWind.Bearing.Unit = units.Degrees
	d.RapidWind.Cardinal = "-"
	d.RapidWind.Description = "-"
	d.Beaufort.Speed.Unit = units.MetresPerSecond
	d.Beaufort.Description = "-"
	d.UV.Index.Unit = units.UVIndex
	d.UV.Level = "-"
	d.UV.Color = uvColors[0]
	d.PeakSun.Hours.Unit = units.Hours
	d.PeakSun.Potential = "-"
	return d
}
