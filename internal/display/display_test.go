package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

func TestFormatValueMissing(t *testing.T) {
	for _, kind := range []Kind{Temp, Pressure, Wind, Precip, UV, StrikeCount, StrikeDistance} {
		assert.Equal(t, "-", FormatValue(device.None(), units.Celsius, kind))
	}
}

func TestFormatTemp(t *testing.T) {
	assert.Equal(t, "12.3", FormatValue(device.Some(12.34), units.Celsius, Temp))
	assert.Equal(t, "-4.5", FormatValue(device.Some(-4.5), units.Celsius, Temp))
	// A value that rounds to zero never shows a minus sign.
	assert.Equal(t, "0.0", FormatValue(device.Some(-0.01), units.Celsius, Temp))
}

func TestFormatTempRate(t *testing.T) {
	assert.Equal(t, "+1.2", FormatValue(device.Some(1.2), units.CelsiusPerHour, TempRate))
	assert.Equal(t, "-0.8", FormatValue(device.Some(-0.8), units.CelsiusPerHour, TempRate))
	assert.Equal(t, "0.0", FormatValue(device.Some(-0.01), units.CelsiusPerHour, TempRate))
}

func TestFormatPressurePrecisionFollowsUnit(t *testing.T) {
	assert.Equal(t, "29.921", FormatValue(device.Some(29.9213), units.InchesHg, Pressure))
	assert.Equal(t, "760.00", FormatValue(device.Some(760.0), units.MillimetresHg, Pressure))
	// fmt rounds the exact half to even, matching the upstream formatting.
	assert.Equal(t, "1013.2", FormatValue(device.Some(1013.25), units.Millibar, Pressure))
}

func TestFormatWind(t *testing.T) {
	assert.Equal(t, "3.4", FormatValue(device.Some(3.42), units.MetresPerSecond, Wind))
	assert.Equal(t, "12", FormatValue(device.Some(12.4), units.MetresPerSecond, Wind))
}

func TestFormatPrecip(t *testing.T) {
	assert.Equal(t, "0", FormatValue(device.Some(0), units.Millimetres, Precip))
	assert.Equal(t, "Trace", FormatValue(device.Some(0.05), units.Millimetres, Precip))
	assert.Equal(t, "2.4", FormatValue(device.Some(2.4), units.Millimetres, Precip))
	assert.Equal(t, "14", FormatValue(device.Some(14.2), units.Millimetres, Precip))
}

func TestFormatPrecipRate(t *testing.T) {
	assert.Equal(t, "0", FormatValue(device.Some(0), units.MillimetresPerHour, PrecipRate))
	assert.Equal(t, "<0.1", FormatValue(device.Some(0.04), units.MillimetresPerHour, PrecipRate))
	assert.Equal(t, "6.0", FormatValue(device.Some(6.0), units.MillimetresPerHour, PrecipRate))
	assert.Equal(t, "55", FormatValue(device.Some(55.0), units.MillimetresPerHour, PrecipRate))
}

func TestFormatStrikeCount(t *testing.T) {
	assert.Equal(t, "0", FormatValue(device.Some(0), units.Count, StrikeCount))
	assert.Equal(t, "999", FormatValue(device.Some(999), units.Count, StrikeCount))
	assert.Equal(t, "1.5 k", FormatValue(device.Some(1500), units.Count, StrikeCount))
}

func TestFormatStrikeDistanceRange(t *testing.T) {
	assert.Equal(t, "9-15", FormatValue(device.Some(12), units.Kilometres, StrikeDistance))
	// The near edge clamps at zero.
	assert.Equal(t, "0-4", FormatValue(device.Some(1), units.Kilometres, StrikeDistance))
}

func TestFormatStrikeFrequency(t *testing.T) {
	assert.Equal(t, "3", FormatValue(device.Some(3.0), units.Count, StrikeFrequency))
	assert.Equal(t, "2.5", FormatValue(device.Some(2.5), units.Count, StrikeFrequency))
}

func TestFormatPeakSunHours(t *testing.T) {
	assert.Equal(t, "4.37", FormatValue(device.Some(4.368), units.Hours, PeakSunHours))
}
