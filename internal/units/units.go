// Package units converts physical quantities between the unit systems the
// station hardware reports in and the unit systems a display may request.
package units

// Unit identifies the unit a numeric value is expressed in.
type Unit string

const (
	// Temperature
	Celsius    Unit = "c"
	Fahrenheit Unit = "f"

	// Temperature rates and differences
	CelsiusDelta      Unit = "dc"
	FahrenheitDelta   Unit = "df"
	CelsiusPerHour    Unit = "c/hr"
	FahrenheitPerHour Unit = "f/hr"

	// Pressure
	Millibar      Unit = "mb"
	Hectopascal   Unit = "hpa"
	InchesHg      Unit = "inhg"
	MillimetresHg Unit = "mmhg"

	// Pressure rates
	MillibarPerHour Unit = "mb/hr"
	InchesHgPerHour Unit = "inhg/hr"

	// Wind speed
	MetresPerSecond   Unit = "mps"
	MilesPerHour      Unit = "mph"
	KilometresPerHour Unit = "kph"
	Knots             Unit = "kts"

	// Precipitation
	Millimetres        Unit = "mm"
	Centimetres        Unit = "cm"
	Inches             Unit = "in"
	MillimetresPerHour Unit = "mm/hr"
	InchesPerHour      Unit = "in/hr"

	// Distance
	Kilometres Unit = "km"
	Miles      Unit = "mi"

	// Dimensionless / fixed
	Degrees       Unit = "degrees"
	WattsPerSqM   Unit = "Wm2"
	UVIndex       Unit = "index"
	Hours         Unit = "hrs"
	PerMinute     Unit = "/min"
	Count         Unit = "count"
	Seconds       Unit = "s"
	Percent       Unit = "%"
	BeaufortForce Unit = "bft"
)

// Temperature conversions.

func CToF(c float64) float64 { return c*(9.0/5.0) + 32 }
func FToC(f float64) float64 { return (f - 32) * (5.0 / 9.0) }

// CDeltaToF converts a temperature difference or rate, which scales
// without the 32 degree offset.
func CDeltaToF(dc float64) float64 { return dc * (9.0 / 5.0) }

// Pressure conversions from millibar.

func MbToInHg(mb float64) float64 { return mb * 0.0295301 }
func MbToMmHg(mb float64) float64 { return mb * 0.750063 }

// Wind speed conversions from metres per second.

func MpsToMph(mps float64) float64 { return mps * 2.2369362920544 }
func MpsToKph(mps float64) float64 { return mps * 3.6 }
func MpsToKts(mps float64) float64 { return mps * 1.9438 }

// Precipitation conversions from millimetres.

func MmToIn(mm float64) float64 { return mm * 0.0393701 }
func MmToCm(mm float64) float64 { return mm * 0.1 }

// Distance conversions from kilometres.

func KmToMi(km float64) float64 { return km * 0.62137 }

// Convert transforms value from one unit into another. Identity conversions
// always succeed. Unsupported pairs return ok == false and the input value
// unchanged, so a caller can fall back to the source unit.
func Convert(value float64, from, to Unit) (float64, bool) {
	if from == to {
		return value, true
	}
	switch from {
	case Celsius:
		if to == Fahrenheit {
			return CToF(value), true
		}
	case Fahrenheit:
		if to == Celsius {
			return FToC(value), true
		}
	case CelsiusDelta:
		if to == FahrenheitDelta {
			return CDeltaToF(value), true
		}
	case CelsiusPerHour:
		if to == FahrenheitPerHour {
			return CDeltaToF(value), true
		}
	case Millibar, Hectopascal:
		switch to {
		case Millibar, Hectopascal:
			return value, true
		case InchesHg:
			return MbToInHg(value), true
		case MillimetresHg:
			return MbToMmHg(value), true
		}
	case MillibarPerHour:
		if to == InchesHgPerHour {
			return MbToInHg(value), true
		}
	case MetresPerSecond:
		switch to {
		case MilesPerHour:
			return MpsToMph(value), true
		case KilometresPerHour:
			return MpsToKph(value), true
		case Knots:
			return MpsToKts(value), true
		}
	case Millimetres:
		switch to {
		case Inches:
			return MmToIn(value), true
		case Centimetres:
			return MmToCm(value), true
		}
	case MillimetresPerHour:
		if to == InchesPerHour {
			return MmToIn(value), true
		}
	case Kilometres:
		if to == Miles {
			return KmToMi(value), true
		}
	}
	return value, false
}

// Label returns the display suffix for a unit.
func Label(u Unit) string {
	switch u {
	case Celsius:
		return "°C"
	case Fahrenheit:
		return "°F"
	case CelsiusPerHour:
		return "°C/hr"
	case FahrenheitPerHour:
		return "°F/hr"
	case Millibar:
		return " mb"
	case Hectopascal:
		return " hPa"
	case InchesHg:
		return " inHg"
	case MillimetresHg:
		return " mmHg"
	case MillibarPerHour:
		return " mb/hr"
	case InchesHgPerHour:
		return " inHg/hr"
	case MetresPerSecond:
		return " m/s"
	case MilesPerHour:
		return " mph"
	case KilometresPerHour:
		return " km/h"
	case Knots:
		return " kts"
	case Millimetres:
		return " mm"
	case Centimetres:
		return " cm"
	case Inches:
		return " in"
	case MillimetresPerHour:
		return " mm/hr"
	case InchesPerHour:
		return " in/hr"
	case Kilometres:
		return " km"
	case Miles:
		return " miles"
	case Degrees:
		return "°"
	case WattsPerSqM:
		return " W/m²"
	case Hours:
		return " hrs"
	case PerMinute:
		return "/min"
	case Percent:
		return " %"
	case Seconds:
		return " s"
	}
	return ""
}
