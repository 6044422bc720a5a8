package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempestwx/stationcore/internal/derive"
	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

func TestFormatSnapshotUnits(t *testing.T) {
	var d derive.Derived
	d.DewPoint = derive.Measurement{Value: device.Some(8.25), Unit: units.Celsius}
	d.SeaLevel = derive.Measurement{Value: device.Some(1013.25), Unit: units.Millibar}
	d.Rain.Today.Value = device.Some(2.4)
	d.Rain.Today.Unit = units.Millimetres
	d.WindAvg.Value = device.Some(3.42)
	d.WindAvg.Unit = units.MetresPerSecond

	out := Format(d)
	assert.Equal(t, "8.2°C", out["dew_point"])
	assert.Equal(t, "1013.2 mb", out["slp"])
	assert.Equal(t, "2.4 mm", out["rain_today"])
	assert.Equal(t, "3.4 m/s", out["wind_avg"])
}

func TestFormatSnapshotMissingValuesStayBare(t *testing.T) {
	out := Format(derive.Derived{})
	// No unit suffix attaches to an unavailable value.
	assert.Equal(t, "-", out["dew_point"])
	assert.Equal(t, "-", out["rain_yesterday"])
	assert.Equal(t, "-", out["strike_dist"])
}

func TestFormatSnapshotTraceStaysBare(t *testing.T) {
	var d derive.Derived
	d.Rain.Today.Value = device.Some(0.05)
	d.Rain.Today.Unit = units.Millimetres

	out := Format(d)
	assert.Equal(t, "Trace", out["rain_today"])
}
