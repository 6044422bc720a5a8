package display

import (
	"github.com/tempestwx/stationcore/internal/derive"
	"github.com/tempestwx/stationcore/internal/units"
)

// Format renders a full derived snapshot as display strings, one entry per
// console field, with unit suffixes attached.
func Format(d derive.Derived) map[string]string {
	out := map[string]string{
		"dew_point":      withUnit(FormatValue(d.DewPoint.Value, d.DewPoint.Unit, Temp), d.DewPoint.Unit),
		"feels_like":     withUnit(FormatValue(d.FeelsLike.Value, d.FeelsLike.Unit, Temp), d.FeelsLike.Unit),
		"feels_like_txt": d.FeelsLike.Label,
		"slp":            withUnit(FormatValue(d.SeaLevel.Value, d.SeaLevel.Unit, Pressure), d.SeaLevel.Unit),
		"slp_trend":      withUnit(FormatValue(d.SLPTrend.Rate.Value, d.SLPTrend.Rate.Unit, PressureRate), d.SLPTrend.Rate.Unit),
		"slp_trend_txt":  string(d.SLPTrend.Direction),
		"slp_tendency":   d.SLPTrend.Tendency,
		"slp_max":        withUnit(FormatValue(d.SLPMax.Value, d.SLPMax.Unit, Pressure), d.SLPMax.Unit),
		"slp_min":        withUnit(FormatValue(d.SLPMin.Value, d.SLPMin.Unit, Pressure), d.SLPMin.Unit),
		"out_temp_max":   withUnit(FormatValue(d.OutTempMax.Value, d.OutTempMax.Unit, Temp), d.OutTempMax.Unit),
		"out_temp_min":   withUnit(FormatValue(d.OutTempMin.Value, d.OutTempMin.Unit, Temp), d.OutTempMin.Unit),
		"in_temp_max":    withUnit(FormatValue(d.InTempMax.Value, d.InTempMax.Unit, Temp), d.InTempMax.Unit),
		"in_temp_min":    withUnit(FormatValue(d.InTempMin.Value, d.InTempMin.Unit, Temp), d.InTempMin.Unit),
		"temp_diff":      withUnit(FormatValue(d.OutTempDiff.Delta.Value, d.OutTempDiff.Delta.Unit, TempRate), d.OutTempDiff.Delta.Unit),
		"temp_diff_txt":  d.OutTempDiff.Text,
		"temp_trend":     withUnit(FormatValue(d.OutTempTrend.Rate.Value, d.OutTempTrend.Rate.Unit, TempRate), d.OutTempTrend.Rate.Unit),
		"rain_rate":      withUnit(FormatValue(d.Rain.Rate.Rate.Value, d.Rain.Rate.Rate.Unit, PrecipRate), d.Rain.Rate.Rate.Unit),
		"rain_rate_txt":  d.Rain.Rate.Text,
		"rain_today":     withUnit(FormatValue(d.Rain.Today.Value, d.Rain.Today.Unit, Precip), d.Rain.Today.Unit),
		"rain_yesterday": withUnit(FormatValue(d.Rain.Yesterday.Value, d.Rain.Yesterday.Unit, Precip), d.Rain.Yesterday.Unit),
		"rain_month":     withUnit(FormatValue(d.Rain.Month.Value, d.Rain.Month.Unit, Precip), d.Rain.Month.Unit),
		"rain_year":      withUnit(FormatValue(d.Rain.Year.Value, d.Rain.Year.Unit, Precip), d.Rain.Year.Unit),
		"strikes_today":  FormatValue(d.Lightning.Today.Value, d.Lightning.Today.Unit, StrikeCount),
		"strikes_month":  FormatValue(d.Lightning.Month.Value, d.Lightning.Month.Unit, StrikeCount),
		"strikes_year":   FormatValue(d.Lightning.Year.Value, d.Lightning.Year.Unit, StrikeCount),
		"strike_dist":    withUnit(FormatValue(d.Lightning.Distance.Value, d.Lightning.Distance.Unit, StrikeDistance), d.Lightning.Distance.Unit),
		"strike_freq":    withUnit(FormatValue(d.Lightning.Frequency.Min10, units.PerMinute, StrikeFrequency), units.PerMinute),
		"strike_freq_3h": withUnit(FormatValue(d.Lightning.Frequency.Hr3, units.PerMinute, StrikeFrequency), units.PerMinute),
		"wind_avg":       withUnit(FormatValue(d.WindAvg.Value, d.WindAvg.Unit, Wind), d.WindAvg.Unit),
		"gust_max":       withUnit(FormatValue(d.GustMax.Value, d.GustMax.Unit, Wind), d.GustMax.Unit),
		"wind_dir":       withUnit(FormatValue(d.WindDir.Bearing.Value, d.WindDir.Bearing.Unit, Direction), d.WindDir.Bearing.Unit),
		"wind_dir_txt":   d.WindDir.Cardinal,
		"rapid_dir":      withUnit(FormatValue(d.RapidWind.Bearing.Value, d.RapidWind.Bearing.Unit, Direction), d.RapidWind.Bearing.Unit),
		"rapid_dir_txt":  d.RapidWind.Cardinal,
		"beaufort":       FormatValue(d.Beaufort.Force, units.BeaufortForce, Direction),
		"beaufort_txt":   d.Beaufort.Description,
		"uv":             FormatValue(d.UV.Index.Value, d.UV.Index.Unit, UV),
		"uv_txt":         d.UV.Level,
		"peak_sun":       withUnit(FormatValue(d.PeakSun.Hours.Value, d.PeakSun.Hours.Unit, PeakSunHours), d.PeakSun.Hours.Unit),
		"peak_sun_txt":   d.PeakSun.Potential,
	}
	return out
}

func withUnit(value string, u units.Unit) string {
	if value == "-" || value == "Trace" {
		return value
	}
	if label := units.Label(u); label != "" {
		return value + label
	}
	return value
}
