package derive

import (
	"math"

	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

// DewPoint calculates the dew point in Celsius from outdoor temperature and
// relative humidity using the Magnus approximation. Missing inputs, or a
// humidity of zero, yield a missing result.
func DewPoint(outTemp, humidity device.Value) Measurement {
	if !outTemp.Valid || !humidity.Valid || humidity.Float64 <= 0 {
		return measurement(device.None(), units.Celsius)
	}

	const (
		a = 17.625
		b = 243.04
	)
	t := outTemp.Float64
	h := humidity.Float64
	n := b * (math.Log(h/100.0) + (a*t)/(b+t))
	d := a - math.Log(h/100.0) - (a*t)/(b+t)
	return measurement(device.Some(n/d), units.Celsius)
}

// feelsLikeLabels maps the eight configured cutoffs onto nine band labels;
// the trailing placeholder guards a misconfigured cutoff list.
var feelsLikeLabels = []string{
	"Feeling extremely cold", "Feeling freezing cold", "Feeling very cold",
	"Feeling cold", "Feeling mild", "Feeling warm", "Feeling hot",
	"Feeling very hot", "Feeling extremely hot", "-",
}

var feelsLikeIcons = []string{
	"ExtremelyCold", "FreezingCold", "VeryCold", "Cold", "Mild", "Warm",
	"Hot", "VeryHot", "ExtremelyHot", "-",
}

// FeelsLikeTemp calculates the apparent temperature in Celsius. Wind chill
// (JAG/TI formula) applies at or below 10 C with wind above 3 mph; the heat
// index applies at or above 80 F with humidity at or above 40 %; otherwise
// the raw temperature passes through. cutoffs are the configured band
// boundaries in Celsius, ascending.
func FeelsLikeTemp(outTemp, humidity, windSpd device.Value, cutoffs []float64) FeelsLike {
	out := FeelsLike{
		Measurement: measurement(device.None(), units.Celsius),
		Label:       "-",
		Icon:        "-",
	}
	if !outTemp.Valid || !humidity.Valid || !windSpd.Valid {
		return out
	}

	t := outTemp.Float64
	h := humidity.Float64
	tF := units.CToF(t)
	windMph := units.MpsToMph(windSpd.Float64)
	windKph := units.MpsToKph(windSpd.Float64)

	var feels float64
	switch {
	case t <= 10 && windMph > 3:
		feels = 13.12 + 0.6215*t - 11.37*math.Pow(windKph, 0.16) +
			0.3965*t*math.Pow(windKph, 0.16)
	case tF >= 80 && h >= 40:
		heatIndex := -42.379 + 2.04901523*tF + 10.1433127*h -
			0.22475541*tF*h - 6.83783e-3*tF*tF - 5.481717e-2*h*h +
			1.22874e-3*tF*tF*h + 8.5282e-4*tF*h*h - 1.99e-6*tF*tF*h*h
		feels = units.FToC(heatIndex)
	default:
		feels = t
	}

	// A reading equal to a band boundary belongs to the band above it.
	idx := 0
	for idx < len(cutoffs) && feels >= cutoffs[idx] {
		idx++
	}
	if idx >= len(feelsLikeLabels) {
		idx = len(feelsLikeLabels) - 1
	}

	out.Value = device.Some(feels)
	out.Label = feelsLikeLabels[idx]
	out.Icon = feelsLikeIcons[idx]
	return out
}

// SeaLevelPressure reduces a station pressure reading to sea level using the
// barometric formula. elevation is the station elevation plus the sensor's
// mounting height above ground, in metres.
func SeaLevelPressure(pressure device.Value, elevation float64) Measurement {
	if !pressure.Valid {
		return measurement(device.None(), units.Millibar)
	}

	const (
		p0     = 1013.25
		rd     = 287.05
		gammaS = 0.0065
		g      = 9.80665
		t0     = 288.15
	)
	p := pressure.Float64
	slp := p * math.Pow(1+math.Pow(p0/p, (rd*gammaS)/g)*((gammaS*elevation)/t0), g/(rd*gammaS))
	return measurement(device.Some(slp), units.Millibar)
}

// ClassifyTrend buckets a pressure trend rate in mb/hr. Rates below 2/3 in
// magnitude are steady; rates beyond 4/3 are rapid.
func ClassifyTrend(rate float64) TrendDirection {
	switch {
	case rate > 4.0/3.0:
		return TrendRisingRapidly
	case rate >= 2.0/3.0:
		return TrendRising
	case rate < -4.0/3.0:
		return TrendFallingRapidly
	case rate <= -2.0/3.0:
		return TrendFalling
	default:
		return TrendSteady
	}
}

// Tendency combines the current sea-level pressure with the trend direction
// into a short-range weather tendency text.
func Tendency(slp float64, dir TrendDirection) string {
	switch {
	case slp >= 1023:
		if dir == TrendFallingRapidly {
			return "Becoming cloudy and warmer"
		}
		return "Fair conditions likely"
	case slp >= 1009:
		if dir == TrendFallingRapidly {
			return "Rainy conditions likely"
		}
		return "Conditions unchanged"
	default:
		if dir == TrendFallingRapidly {
			return "Stormy conditions likely"
		}
		if dir == TrendFalling {
			return "Rainy conditions likely"
		}
		return "Becoming clearer and cooler"
	}
}

var cardinalNames = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW", "N",
}

var cardinalDescriptions = []string{
	"Due North", "North NE", "North East", "East NE", "Due East", "East SE",
	"South East", "South SE", "Due South", "South SW", "South West", "West SW",
	"Due West", "West NW", "North West", "North NW", "Due North",
}

// CardinalDirection buckets a wind bearing onto the 16-point compass. A
// present wind speed of exactly zero is reported as "Calm" regardless of
// bearing.
func CardinalDirection(bearing, speed device.Value) CardinalWind {
	out := CardinalWind{
		Bearing:     measurement(bearing, units.Degrees),
		Cardinal:    "-",
		Description: "-",
	}
	if speed.Valid && speed.Float64 == 0 {
		out.Cardinal = "Calm"
		out.Description = "Calm"
		return out
	}
	if !bearing.Valid || !speed.Valid {
		return out
	}

	idx := int(math.Round(bearing.Float64 / 22.5))
	if idx < 0 || idx >= len(cardinalNames) {
		idx = 0
	}
	out.Cardinal = cardinalNames[idx]
	out.Description = cardinalDescriptions[idx]
	return out
}

var beaufortCutoffs = []float64{0.5, 1.5, 3.3, 5.5, 7.9, 10.7, 13.8, 17.1, 20.7, 24.4, 28.4, 32.6}

var beaufortDescriptions = []string{
	"Calm Conditions", "Light Air", "Light Breeze", "Gentle Breeze",
	"Moderate Breeze", "Fresh Breeze", "Strong Breeze", "Near Gale Force",
	"Gale Force", "Severe Gale Force", "Storm Force", "Violent Storm",
	"Hurricane Force",
}

// BeaufortScale buckets a wind speed in m/s onto the 13 Beaufort forces.
func BeaufortScale(speed device.Value) Beaufort {
	out := Beaufort{
		Speed:       measurement(speed, units.MetresPerSecond),
		Description: "-",
	}
	if !speed.Valid {
		return out
	}

	idx := 0
	for idx < len(beaufortCutoffs) && speed.Float64 > beaufortCutoffs[idx] {
		idx++
	}
	out.Force = device.Some(float64(idx))
	out.Description = beaufortDescriptions[idx]
	return out
}

var uvCutoffs = []float64{0, 3, 6, 8, 11}

var uvLevels = []string{"None", "Low", "Moderate", "High", "Very High", "Extreme"}

var uvColors = []string{"#646464", "#558B2F", "#F9A825", "#EF6C00", "#B71C1C", "#6A1B9A"}

// UVCategory buckets a UV level onto the standard exposure categories.
func UVCategory(uv device.Value) UVReport {
	out := UVReport{
		Index: measurement(device.None(), units.UVIndex),
		Level: "-",
		Color: uvColors[0],
	}
	if !uv.Valid {
		return out
	}

	rounded := math.Round(uv.Float64*10) / 10
	idx := 0
	if rounded > 0 {
		for idx < len(uvCutoffs) && rounded > uvCutoffs[idx] {
			idx++
		}
	}
	out.Index.Value = device.Some(rounded)
	out.Level = uvLevels[idx]
	out.Color = uvColors[idx]
	return out
}

// RainRateFrom converts the rain accumulated over the previous minute into an
// instantaneous hourly rate plus an intensity text.
func RainRateFrom(minuteRain device.Value) RainRate {
	out := RainRate{
		Rate: measurement(device.None(), units.MillimetresPerHour),
		Text: "-",
	}
	if !minuteRain.Valid {
		return out
	}

	rate := minuteRain.Float64 * 60
	out.Rate.Value = device.Some(rate)
	switch {
	case rate == 0:
		out.Text = "Currently Dry"
	case rate < 0.25:
		out.Text = "Very Light Rain"
	case rate < 1.0:
		out.Text = "Light Rain"
	case rate < 4.0:
		out.Text = "Moderate Rain"
	case rate < 16.0:
		out.Text = "Heavy Rain"
	case rate < 50.0:
		out.Text = "Very Heavy Rain"
	default:
		out.Text = "Extreme Rain"
	}
	return out
}

// tempDiffText labels a 24-hour temperature difference. Differences that
// round to zero carry no label.
func tempDiffText(delta float64) string {
	switch {
	case math.Abs(delta) < 0.05:
		return ""
	case delta > 0:
		return "warmer"
	default:
		return "colder"
	}
}

// solarPotential buckets peak sun hours normalised by the fraction of
// daylight already elapsed.
func solarPotential(peakSunHours, daylightFactor float64) string {
	if daylightFactor <= 0 {
		daylightFactor = 1
	}
	normalised := peakSunHours / daylightFactor
	switch {
	case normalised == 0:
		return "None"
	case normalised < 2:
		return "Limited"
	case normalised < 4:
		return "Moderate"
	case normalised < 6:
		return "Good"
	default:
		return "Excellent"
	}
}
