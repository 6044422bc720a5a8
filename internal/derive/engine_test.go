package derive

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempestwx/stationcore/internal/backfill"
	"github.com/tempestwx/stationcore/internal/device"
)

// fakeHistory serves canned batches keyed by window kind and records the
// windows asked for.
type fakeHistory struct {
	batches map[backfill.WindowKind]backfill.Batch
	asked   []backfill.WindowKind
	err     error
}

func (f *fakeHistory) Window(_ context.Context, _ string, kind backfill.WindowKind, _ time.Time) (backfill.Batch, error) {
	f.asked = append(f.asked, kind)
	if f.err != nil {
		return backfill.Batch{}, f.err
	}
	batch, ok := f.batches[kind]
	if !ok {
		return backfill.Batch{Window: kind}, nil
	}
	return batch, nil
}

func testStation(t *testing.T) Station {
	t.Helper()
	return Station{
		TempestID: "ST-0001",
		TZ:        time.UTC,
	}
}

func tempestObs(epoch int64) device.Observation {
	return device.Observation{
		DeviceID: "ST-0001",
		Class:    device.Tempest,
		Epoch:    epoch,
	}
}

func TestEngineColdStartMaxMin(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	t0 := epochAt(t, time.UTC, "2026-08-14 00:00:10")

	obs := tempestObs(t0)
	obs.OutTemp = device.Some(12.0)
	require.NoError(t, e.Update(context.Background(), obs))

	d := e.Derived()
	assert.Equal(t, 12.0, d.OutTempMax.Value.Float64)
	assert.Equal(t, t0, d.OutTempMax.At)
	assert.Equal(t, 12.0, d.OutTempMin.Value.Float64)
	assert.Equal(t, t0, d.OutTempMin.At)

	obs = tempestObs(t0 + 3600)
	obs.OutTemp = device.Some(15.0)
	require.NoError(t, e.Update(context.Background(), obs))

	d = e.Derived()
	assert.Equal(t, 15.0, d.OutTempMax.Value.Float64)
	assert.Equal(t, t0+3600, d.OutTempMax.At)
	assert.Equal(t, 12.0, d.OutTempMin.Value.Float64)
	assert.Equal(t, t0, d.OutTempMin.At)
}

func TestEngineRainDayRollover(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	day1 := epochAt(t, time.UTC, "2026-08-14 22:00:00")
	day2 := epochAt(t, time.UTC, "2026-08-15 00:01:00")

	obs := tempestObs(day1)
	obs.DailyRain = device.Some(4.2)
	require.NoError(t, e.Update(context.Background(), obs))
	assert.InDelta(t, 4.2, e.Derived().Rain.Today.Value.Float64, 1e-9)

	obs = tempestObs(day2)
	obs.DailyRain = device.Some(0.3)
	require.NoError(t, e.Update(context.Background(), obs))

	d := e.Derived()
	assert.InDelta(t, 0.3, d.Rain.Today.Value.Float64, 1e-9)
	assert.InDelta(t, 4.2, d.Rain.Yesterday.Value.Float64, 1e-9)
}

func TestEngineRolloverWithoutPriorDayLeavesYesterdayMissing(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	day2 := epochAt(t, time.UTC, "2026-08-15 00:01:00")

	obs := tempestObs(day2)
	obs.DailyRain = device.Some(0.3)
	require.NoError(t, e.Update(context.Background(), obs))

	d := e.Derived()
	assert.InDelta(t, 0.3, d.Rain.Today.Value.Float64, 1e-9)
	assert.False(t, d.Rain.Yesterday.Value.Valid)
}

func TestEngineDuplicateObservationDiscarded(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	t0 := epochAt(t, time.UTC, "2026-08-14 10:00:00")

	obs := tempestObs(t0)
	obs.StrikeMinute = device.Some(2.0)
	require.NoError(t, e.Update(context.Background(), obs))

	err := e.Update(context.Background(), obs)
	assert.ErrorIs(t, err, ErrStaleObservation)

	// The accumulator did not double count.
	assert.Equal(t, 2.0, e.Derived().Lightning.Today.Value.Float64)
}

func TestEngineStrikeAccumulation(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	t0 := epochAt(t, time.UTC, "2026-08-31 23:59:00")

	obs := tempestObs(t0)
	obs.StrikeMinute = device.Some(5.0)
	require.NoError(t, e.Update(context.Background(), obs))

	// Day and month roll at the same instant; the yearly count survives.
	t1 := epochAt(t, time.UTC, "2026-09-01 00:01:00")
	obs = tempestObs(t1)
	obs.StrikeMinute = device.Some(1.0)
	require.NoError(t, e.Update(context.Background(), obs))

	d := e.Derived()
	assert.Equal(t, 1.0, d.Lightning.Today.Value.Float64)
	assert.Equal(t, 1.0, d.Lightning.Month.Value.Float64)
	assert.Equal(t, 6.0, d.Lightning.Year.Value.Float64)
}

func TestEngineResetInvalidatesInFlightBackfill(t *testing.T) {
	e := New(testStation(t), &fakeHistory{}, nil, nil)
	t0 := epochAt(t, time.UTC, "2026-08-14 10:00:00")

	gen := e.Generation()
	e.Reset()
	assert.NotEqual(t, gen, e.Generation())

	obs := tempestObs(t0)
	obs.OutTemp = device.Some(20.0)
	require.NoError(t, e.Update(context.Background(), obs))
	assert.True(t, e.Derived().OutTempMax.Value.Valid)

	e.Reset()
	d := e.Derived()
	assert.False(t, d.OutTempMax.Value.Valid)
	assert.False(t, d.Rain.Today.Value.Valid)
	assert.Equal(t, TrendUnavailable, d.SLPTrend.Direction)
}

func TestEngineSeedsFromHistory(t *testing.T) {
	tz := time.UTC
	t0 := epochAt(t, tz, "2026-08-14 10:00:00")
	midnight := epochAt(t, tz, "2026-08-14 00:00:00")

	tempIdx, _ := backfill.FieldIndex(device.Tempest, backfill.QTemperature, false)
	rainIdx, _ := backfill.FieldIndex(device.Tempest, backfill.QRain, false)
	rainDailyIdx, _ := backfill.FieldIndex(device.Tempest, backfill.QRain, true)

	row := func(epoch int64, idx int, v float64) backfill.Record {
		fields := make([]device.Value, idx)
		fields[idx-1] = device.Some(v)
		return backfill.Record{Epoch: epoch, Fields: fields}
	}

	hist := &fakeHistory{batches: map[backfill.WindowKind]backfill.Batch{
		backfill.Today: {Window: backfill.Today, Records: []backfill.Record{
			row(midnight+600, tempIdx, 9.5),
			row(midnight+1200, tempIdx, 11.0),
		}},
		backfill.Yesterday: {Window: backfill.Yesterday, Records: []backfill.Record{
			row(midnight-3600, rainIdx, 1.5),
			row(midnight-1800, rainIdx, 2.7),
		}},
		backfill.Month: {Window: backfill.Month, Records: []backfill.Record{
			row(midnight-86400, rainDailyIdx, 10.0),
		}},
		backfill.Year: {Window: backfill.Year, Records: []backfill.Record{
			row(midnight-86400, rainDailyIdx, 50.0),
		}},
	}}

	e := New(testStation(t), hist, nil, nil)

	obs := tempestObs(t0)
	obs.OutTemp = device.Some(10.2)
	obs.DailyRain = device.Some(0.5)
	require.NoError(t, e.Update(context.Background(), obs))

	d := e.Derived()
	// History widened the daily extrema beyond the live sample.
	assert.Equal(t, 11.0, d.OutTempMax.Value.Float64)
	assert.Equal(t, 9.5, d.OutTempMin.Value.Float64)
	// Yesterday's rain came entirely from history.
	assert.InDelta(t, 4.2, d.Rain.Yesterday.Value.Float64, 1e-9)
	// Month and year are history base plus the live today total.
	assert.InDelta(t, 10.5, d.Rain.Month.Value.Float64, 1e-9)
	assert.InDelta(t, 50.5, d.Rain.Year.Value.Float64, 1e-9)

	// Seeding runs once; a later update does not refetch the calendar
	// windows.
	asked := len(hist.asked)
	obs = tempestObs(t0 + 60)
	obs.OutTemp = device.Some(10.4)
	require.NoError(t, e.Update(context.Background(), obs))
	assert.Equal(t, asked, len(hist.asked))
}

func TestEngineTrendsFromHistory(t *testing.T) {
	tz := time.UTC
	t0 := epochAt(t, tz, "2026-08-14 12:00:00")

	pIdx, _ := backfill.FieldIndex(device.Tempest, backfill.QPressure, false)
	fields := make([]device.Value, pIdx)
	fields[pIdx-1] = device.Some(1010.0)

	hist := &fakeHistory{batches: map[backfill.WindowKind]backfill.Batch{
		backfill.Last6h: {Window: backfill.Last6h, Records: []backfill.Record{
			{Epoch: t0 - 3*3600, Fields: fields},
		}},
	}}

	e := New(testStation(t), hist, nil, nil)

	obs := tempestObs(t0)
	obs.Pressure = device.Some(1013.0)
	require.NoError(t, e.Update(context.Background(), obs))

	d := e.Derived()
	require.True(t, d.SLPTrend.Rate.Value.Valid)
	assert.InDelta(t, 1.0, d.SLPTrend.Rate.Value.Float64, 1e-9)
	assert.Equal(t, TrendRising, d.SLPTrend.Direction)
}

func TestEngineRapidWindFreezesBearingAtZeroSpeed(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)

	e.RapidWind(100, device.Some(3.0), device.Some(225.0))
	d := e.Derived()
	assert.Equal(t, "SW", d.RapidWind.Cardinal)

	e.RapidWind(103, device.Some(0.0), device.Some(10.0))
	d = e.Derived()
	assert.Equal(t, "Calm", d.RapidWind.Cardinal)
	// The bearing held the last moving direction, not the new reading.
	assert.Equal(t, 225.0, d.RapidWind.Bearing.Value.Float64)
}

func TestEngineStrikeEvent(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	t0 := epochAt(t, time.UTC, "2026-08-14 10:00:00")

	e.StrikeEvent(t0, device.Some(12.0))
	d := e.Derived()
	assert.Equal(t, float64(t0), d.Lightning.LastEpoch.Float64)
	assert.Equal(t, 12.0, d.Lightning.Distance.Value.Float64)
	assert.Equal(t, 0.0, d.Lightning.DeltaT.Float64)

	// Counters only move with per-minute counts.
	assert.False(t, d.Lightning.Today.Value.Valid)

	obs := tempestObs(t0 + 300)
	obs.StrikeMinute = device.Some(0.0)
	require.NoError(t, e.Update(context.Background(), obs))
	assert.Equal(t, 300.0, e.Derived().Lightning.DeltaT.Float64)
}

func TestEngineObservationWithoutEpochRejected(t *testing.T) {
	e := New(testStation(t), nil, nil, nil)
	err := e.Update(context.Background(), device.Observation{DeviceID: "ST-0001", Class: device.Tempest})
	assert.Error(t, err)
}

func TestEngineWarnsOnceOnMissingSample(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	e := New(testStation(t), nil, nil, log)
	t0 := epochAt(t, time.UTC, "2026-08-14 10:00:00")

	obs := tempestObs(t0)
	obs.Humidity = device.Some(70.0)
	require.NoError(t, e.Update(context.Background(), obs))

	assert.Contains(t, buf.String(), "quantity=out_temp")
	assert.Contains(t, buf.String(), "reason=\"missing sample\"")

	// The same gap on the next sample does not log again.
	obs = tempestObs(t0 + 60)
	obs.Humidity = device.Some(70.0)
	require.NoError(t, e.Update(context.Background(), obs))
	assert.Equal(t, 1, strings.Count(buf.String(), "quantity=out_temp"))
}
