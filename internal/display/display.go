// Package display renders derived quantities as the strings a console or
// dashboard shows. It only formats; nothing here re-derives a value.
package display

import (
	"fmt"
	"math"

	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

// Kind selects the formatting rules for one class of quantity.
type Kind int

const (
	Temp Kind = iota
	TempRate
	Pressure
	PressureRate
	Wind
	Direction
	Precip
	PrecipRate
	Humidity
	UV
	PeakSunHours
	StrikeCount
	StrikeDistance
	StrikeFrequency
)

// FormatValue renders one value according to its format class. Missing
// values render as "-" in every class.
func FormatValue(v device.Value, u units.Unit, kind Kind) string {
	if !v.Valid {
		return "-"
	}
	x := v.Float64

	switch kind {
	case Temp:
		return fixedNoNegZero(x, 1)
	case TempRate:
		if math.Abs(round1(x)) == 0 {
			return fixedNoNegZero(x, 1)
		}
		return fmt.Sprintf("%+.1f", x)
	case Pressure, PressureRate:
		switch u {
		case units.InchesHg:
			return fixedNoNegZero(x, 3)
		case units.MillimetresHg:
			return fixedNoNegZero(x, 2)
		default:
			return fixedNoNegZero(x, 1)
		}
	case Wind:
		if round1(x) < 10 {
			return fmt.Sprintf("%.1f", x)
		}
		return fmt.Sprintf("%.0f", x)
	case Direction, Humidity:
		return fmt.Sprintf("%.0f", x)
	case Precip:
		switch {
		case x == 0:
			return "0"
		case x < 0.127:
			return "Trace"
		case round1(x) < 10:
			return fmt.Sprintf("%.1f", x)
		default:
			return fmt.Sprintf("%.0f", x)
		}
	case PrecipRate:
		switch {
		case x == 0:
			return "0"
		case x < 0.1:
			return "<0.1"
		case round1(x) < 10:
			return fmt.Sprintf("%.1f", x)
		default:
			return fmt.Sprintf("%.0f", x)
		}
	case UV:
		return fmt.Sprintf("%.1f", x)
	case PeakSunHours:
		return fmt.Sprintf("%.2f", x)
	case StrikeCount:
		if x < 1000 {
			return fmt.Sprintf("%.0f", x)
		}
		return fmt.Sprintf("%.1f k", x/1000)
	case StrikeDistance:
		// Detection hardware reports to roughly +/-3 km, so the distance
		// renders as a range.
		return fmt.Sprintf("%.0f-%.0f", math.Max(x-3, 0), x+3)
	case StrikeFrequency:
		if x == math.Trunc(x) {
			return fmt.Sprintf("%.0f", x)
		}
		return fmt.Sprintf("%.1f", x)
	default:
		return fmt.Sprintf("%g", x)
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// fixedNoNegZero formats with the given precision, flipping a value that
// rounds to zero positive so "-0.0" never reaches a display.
func fixedNoNegZero(x float64, prec int) string {
	scale := math.Pow(10, float64(prec))
	if math.Round(x*scale)/scale == 0 {
		x = math.Abs(x)
	}
	return fmt.Sprintf("%.*f", prec, x)
}
