package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tempestwx/stationcore/internal/backfill"
	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/units"
)

// DefaultFeelsLikeCutoffs are the band boundaries in Celsius used when the
// station configuration does not override them.
var DefaultFeelsLikeCutoffs = []float64{-5, 0, 5, 10, 15, 20, 25, 30}

// ErrStaleObservation marks an observation whose epoch does not advance past
// the previous observation for the same device class.
var ErrStaleObservation = errors.New("derive: duplicate or out-of-order observation")

// Station carries the per-station scalars the engine needs.
type Station struct {
	TempestID string
	SkyID     string
	OutAirID  string
	InAirID   string

	// Elevation is the station elevation above sea level in metres.
	// TempestHeight and OutAirHeight are the mounting heights of the
	// pressure-bearing devices above ground.
	Elevation     float64
	TempestHeight float64
	OutAirHeight  float64

	TZ *time.Location

	// FeelsLikeCutoffs are the apparent-temperature band boundaries in
	// Celsius, ascending. Empty means DefaultFeelsLikeCutoffs.
	FeelsLikeCutoffs []float64
}

func (s Station) cutoffs() []float64 {
	if len(s.FeelsLikeCutoffs) == 0 {
		return DefaultFeelsLikeCutoffs
	}
	return s.FeelsLikeCutoffs
}

func (s Station) tz() *time.Location {
	if s.TZ == nil {
		return time.UTC
	}
	return s.TZ
}

// History serves windows of past observations for a device. backfill.Client
// is the production implementation.
type History interface {
	Window(ctx context.Context, deviceID string, kind backfill.WindowKind, end time.Time) (backfill.Batch, error)
}

// SunTimes supplies sunrise and sunset for the solar-potential calculation.
// Implementations that cannot answer return ok=false and the potential falls
// back to the raw peak-sun-hours banding.
type SunTimes interface {
	SunTimes(day time.Time) (sunrise, sunset time.Time, ok bool)
}

// windows older than this are refetched before trend calculations.
const trendWindowTTL = 5 * time.Minute

// seed fetch failures retry at most once per interval to avoid hammering a
// degraded history service.
const seedRetryInterval = time.Minute

type windowKey struct {
	deviceID string
	kind     backfill.WindowKind
}

type cachedBatch struct {
	batch     backfill.Batch
	fetchedAt time.Time
}

// Engine folds decoded observations for one station into its Derived
// snapshot. All methods are safe for concurrent use; Update releases the
// internal lock while history windows are fetched and discards the results
// if Reset ran in the meantime.
type Engine struct {
	cfg  Station
	hist History
	sun  SunTimes
	log  *slog.Logger
	now  func() time.Time

	mu           sync.Mutex
	generation   uuid.UUID
	derived      Derived
	lastEpoch    map[device.Class]int64
	seeded       map[device.Class]bool
	seedAttempt  map[device.Class]time.Time
	cache        map[windowKey]cachedBatch
	lastWind     device.Value
	lastRapidDir device.Value
	warned       map[string]struct{}
}

// New builds an engine for one station. hist may be nil when no history
// service is configured; trends and cold-start seeding then stay unavailable.
// sun may be nil.
func New(cfg Station, hist History, sun SunTimes, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:         cfg,
		hist:        hist,
		sun:         sun,
		log:         log,
		now:         time.Now,
		generation:  uuid.New(),
		derived:     emptyDerived(),
		lastEpoch:   make(map[device.Class]int64),
		seeded:      make(map[device.Class]bool),
		seedAttempt: make(map[device.Class]time.Time),
		cache:       make(map[windowKey]cachedBatch),
		warned:      make(map[string]struct{}),
	}
}

// Derived returns a copy of the current snapshot.
func (e *Engine) Derived() Derived {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.derived
}

// Generation identifies the engine's current lifetime. It changes on Reset.
func (e *Engine) Generation() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Reset discards all derived state, invalidates in-flight backfills and
// rotates the generation tag. Used when the console switches station.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation = uuid.New()
	e.derived = emptyDerived()
	e.lastEpoch = make(map[device.Class]int64)
	e.seeded = make(map[device.Class]bool)
	e.seedAttempt = make(map[device.Class]time.Time)
	e.cache = make(map[windowKey]cachedBatch)
	e.lastWind = device.None()
	e.lastRapidDir = device.None()
	e.warned = make(map[string]struct{})
}

// Update folds one decoded observation into the snapshot. Duplicate epochs
// for the same device class return ErrStaleObservation and leave the
// snapshot untouched.
func (e *Engine) Update(ctx context.Context, obs device.Observation) error {
	if obs.Epoch == 0 {
		return fmt.Errorf("derive: observation without epoch for device %s", obs.DeviceID)
	}

	e.mu.Lock()
	if last, ok := e.lastEpoch[obs.Class]; ok && obs.Epoch <= last {
		e.mu.Unlock()
		return ErrStaleObservation
	}
	e.lastEpoch[obs.Class] = obs.Epoch
	gen := e.generation
	wanted := e.windowsNeeded(obs)
	e.mu.Unlock()

	fetched := e.fetchWindows(ctx, obs.DeviceID, wanted, obs.Epoch)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		// Station switched while the history fetch was in flight.
		return nil
	}
	nowT := e.now()
	for kind, batch := range fetched {
		e.cache[windowKey{obs.DeviceID, kind}] = cachedBatch{batch: batch, fetchedAt: nowT}
	}

	e.apply(obs)
	return nil
}

// RapidWind folds a high-rate wind sample. At zero speed the bearing freezes
// at the last non-zero bearing so the needle does not snap north.
func (e *Engine) RapidWind(epoch int64, speed, dir device.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bearing := dir
	if speed.Valid && speed.Float64 == 0 {
		bearing = e.lastRapidDir
	} else if dir.Valid {
		e.lastRapidDir = dir
	}
	e.derived.RapidWind = CardinalDirection(bearing, speed)
}

// StrikeEvent records an out-of-band lightning strike. Period counters stay
// untouched; they advance with the per-minute counts on regular observations.
func (e *Engine) StrikeEvent(epoch int64, distanceKm device.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.derived.Lightning.LastEpoch = device.Some(float64(epoch))
	e.derived.Lightning.Distance = measurement(distanceKm, units.Kilometres)
	e.derived.Lightning.DeltaT = device.Some(0)
}

// windowsNeeded returns the history windows this observation's calculations
// want, honouring the cold-start seed state and the trend cache TTL.
// Call with the lock held.
func (e *Engine) windowsNeeded(obs device.Observation) []backfill.WindowKind {
	if e.hist == nil {
		return nil
	}
	var kinds []backfill.WindowKind

	if !e.seeded[obs.Class] && e.now().Sub(e.seedAttempt[obs.Class]) >= seedRetryInterval {
		e.seedAttempt[obs.Class] = e.now()
		switch obs.Class {
		case device.Tempest, device.Sky:
			kinds = append(kinds, backfill.Today, backfill.Yesterday, backfill.Month, backfill.Year)
		case device.OutdoorAir:
			kinds = append(kinds, backfill.Today, backfill.Month, backfill.Year)
		case device.IndoorAir:
			kinds = append(kinds, backfill.Today)
		}
	}

	if obs.Class == device.Tempest || obs.Class == device.OutdoorAir {
		for _, kind := range []backfill.WindowKind{backfill.Last6h, backfill.Last24h} {
			cached, ok := e.cache[windowKey{obs.DeviceID, kind}]
			if !ok || e.now().Sub(cached.fetchedAt) >= trendWindowTTL {
				kinds = append(kinds, kind)
			}
		}
	}
	return kinds
}

// fetchWindows downloads the given windows without holding the lock. Failed
// windows are logged and skipped; the dependent calculations degrade to
// missing values.
func (e *Engine) fetchWindows(ctx context.Context, deviceID string, kinds []backfill.WindowKind, epoch int64) map[backfill.WindowKind]backfill.Batch {
	if e.hist == nil || len(kinds) == 0 {
		return nil
	}
	end := time.Unix(epoch, 0).In(e.cfg.tz())
	out := make(map[backfill.WindowKind]backfill.Batch, len(kinds))
	for _, kind := range kinds {
		batch, err := e.hist.Window(ctx, deviceID, kind, end)
		if err != nil {
			e.log.Warn("history window unavailable",
				"device_id", deviceID, "window", kind.String(), "error", err)
			continue
		}
		out[kind] = batch
	}
	return out
}

func (e *Engine) window(deviceID string, kind backfill.WindowKind) (backfill.Batch, bool) {
	cached, ok := e.cache[windowKey{deviceID, kind}]
	return cached.batch, ok
}

// warnMissing logs once when a device omits a field its class normally
// reports. The fold for that quantity skips the sample.
func (e *Engine) warnMissing(obs device.Observation, quantity string, v device.Value) {
	if v.Valid {
		return
	}
	e.warnOnce(quantity, obs.DeviceID, "missing sample")
}

// warnOnce logs a degraded-data condition the first time it occurs for a
// given quantity and device.
func (e *Engine) warnOnce(quantity, deviceID, reason string) {
	key := quantity + "/" + deviceID
	if _, ok := e.warned[key]; ok {
		return
	}
	e.warned[key] = struct{}{}
	e.log.Warn("derived quantity degraded",
		"quantity", quantity, "device_id", deviceID, "reason", reason)
}

// apply dispatches the observation to the per-class fold. Call with the lock
// held and the window cache current.
func (e *Engine) apply(obs device.Observation) {
	switch obs.Class {
	case device.Tempest:
		e.applyOutdoorTemp(obs, e.cfg.Elevation+e.cfg.TempestHeight)
		e.applyWind(obs)
		e.applySolar(obs)
		e.applyRain(obs)
		e.applyStrikes(obs)
		e.maybeSeed(obs)
	case device.OutdoorAir:
		e.applyOutdoorTemp(obs, e.cfg.Elevation+e.cfg.OutAirHeight)
		e.applyStrikes(obs)
		e.maybeSeed(obs)
	case device.Sky:
		e.applyWind(obs)
		e.applySolar(obs)
		e.applyRain(obs)
		e.maybeSeed(obs)
	case device.IndoorAir:
		e.applyIndoor(obs)
		e.maybeSeed(obs)
	}
}

// applyOutdoorTemp covers the temperature, humidity and pressure family
// shared by the TEMPEST and outdoor AIR devices.
func (e *Engine) applyOutdoorTemp(obs device.Observation, elevation float64) {
	d := &e.derived
	tz := e.cfg.tz()

	wind := obs.WindSpeed
	if !wind.Valid {
		wind = e.lastWind
	}

	e.warnMissing(obs, "out_temp", obs.OutTemp)
	e.warnMissing(obs, "humidity", obs.Humidity)
	e.warnMissing(obs, "pressure", obs.Pressure)

	d.DewPoint = DewPoint(obs.OutTemp, obs.Humidity)
	d.FeelsLike = FeelsLikeTemp(obs.OutTemp, obs.Humidity, wind, e.cfg.cutoffs())
	d.SeaLevel = SeaLevelPressure(obs.Pressure, elevation)

	foldMax(&d.OutTempMax, obs.OutTemp, obs.Epoch, tz)
	foldMin(&d.OutTempMin, obs.OutTemp, obs.Epoch, tz)
	foldMax(&d.SLPMax, d.SeaLevel.Value, obs.Epoch, tz)
	foldMin(&d.SLPMin, d.SeaLevel.Value, obs.Epoch, tz)

	pIdx, _ := backfill.FieldIndex(obs.Class, backfill.QPressure, false)
	tIdx, _ := backfill.FieldIndex(obs.Class, backfill.QTemperature, false)

	if batch, ok := e.window(obs.DeviceID, backfill.Last6h); ok {
		d.SLPTrend = pressureTrend(obs.Pressure, obs.Epoch, batch, pIdx, elevation)
		d.OutTempTrend = tempTrend(obs.OutTemp, obs.Epoch, batch, tIdx)
	} else {
		e.warnOnce("slp_trend", obs.DeviceID, "no 6h history")
	}
	if batch, ok := e.window(obs.DeviceID, backfill.Last24h); ok {
		d.OutTempDiff = tempDiff(obs.OutTemp, obs.Epoch, batch, tIdx)
	} else {
		e.warnOnce("out_temp_diff", obs.DeviceID, "no 24h history")
	}
}

func (e *Engine) applyIndoor(obs device.Observation) {
	tz := e.cfg.tz()
	e.warnMissing(obs, "in_temp", obs.InTemp)
	foldMax(&e.derived.InTempMax, obs.InTemp, obs.Epoch, tz)
	foldMin(&e.derived.InTempMin, obs.InTemp, obs.Epoch, tz)
}

func (e *Engine) applyWind(obs device.Observation) {
	d := &e.derived
	tz := e.cfg.tz()

	e.warnMissing(obs, "wind_speed", obs.WindSpeed)
	e.warnMissing(obs, "wind_gust", obs.WindGust)

	if obs.WindSpeed.Valid {
		e.lastWind = obs.WindSpeed
	}
	foldAvg(&d.WindAvg, obs.WindSpeed, obs.Epoch, tz)
	foldMax(&d.GustMax, obs.WindGust, obs.Epoch, tz)
	d.WindDir = CardinalDirection(obs.WindDir, obs.WindSpeed)
	d.Beaufort = BeaufortScale(obs.WindSpeed)
}

func (e *Engine) applySolar(obs device.Observation) {
	d := &e.derived
	tz := e.cfg.tz()

	e.warnMissing(obs, "uv", obs.UV)
	e.warnMissing(obs, "radiation", obs.Radiation)

	d.UV = UVCategory(obs.UV)
	foldPeakSun(&d.PeakSun, obs.Radiation, obs.Epoch, tz)
	e.refreshSolarPotential(obs.Epoch)
}

// refreshSolarPotential rebinds the solar-potential band using the fraction
// of daylight elapsed at the observation instant.
func (e *Engine) refreshSolarPotential(epoch int64) {
	ps := &e.derived.PeakSun
	if !ps.Hours.Value.Valid {
		ps.Potential = "-"
		return
	}

	factor := 1.0
	if e.sun != nil {
		at := time.Unix(epoch, 0).In(e.cfg.tz())
		if sunrise, sunset, ok := e.sun.SunTimes(at); ok {
			ps.Sunrise = sunrise.Unix()
			ps.Sunset = sunset.Unix()
			if !at.Before(sunrise) && !at.After(sunset) && sunset.After(sunrise) {
				factor = at.Sub(sunrise).Seconds() / sunset.Sub(sunrise).Seconds()
			}
		}
	}
	ps.Potential = solarPotential(ps.Hours.Value.Float64, factor)
}

func (e *Engine) applyRain(obs device.Observation) {
	d := &e.derived
	tz := e.cfg.tz()

	if !obs.DailyRain.Valid && !obs.MinuteRain.Valid {
		e.warnOnce("rain", obs.DeviceID, "missing sample")
	}

	d.Rain.Rate = RainRateFrom(obs.MinuteRain)

	// A day rollover retires the running daily total into yesterday before
	// today restarts. A day with no data stays unavailable rather than zero.
	if periodRolled(PeriodDay, d.Rain.Today.Anchor, obs.Epoch, tz) {
		d.Rain.Yesterday.Value = d.Rain.Today.Value
		d.Rain.Yesterday.Anchor = obs.Epoch
	}

	// The device's own since-midnight counter is authoritative when present;
	// otherwise the per-minute increments accumulate.
	if obs.DailyRain.Valid {
		foldDailyTotal(&d.Rain.Today, obs.DailyRain, obs.Epoch, tz)
	} else {
		foldAdditive(&d.Rain.Today, PeriodDay, obs.MinuteRain, obs.Epoch, tz)
	}

	foldPeriodTotal(&d.Rain.Month, PeriodMonth, &d.Rain.Today, obs.Epoch, tz)
	foldPeriodTotal(&d.Rain.Year, PeriodYear, &d.Rain.Today, obs.Epoch, tz)
}

func (e *Engine) applyStrikes(obs device.Observation) {
	d := &e.derived
	tz := e.cfg.tz()

	e.warnMissing(obs, "strike_minute", obs.StrikeMinute)

	foldAdditive(&d.Lightning.Today, PeriodDay, obs.StrikeMinute, obs.Epoch, tz)
	foldAdditive(&d.Lightning.Month, PeriodMonth, obs.StrikeMinute, obs.Epoch, tz)
	foldAdditive(&d.Lightning.Year, PeriodYear, obs.StrikeMinute, obs.Epoch, tz)

	if d.Lightning.LastEpoch.Valid {
		d.Lightning.DeltaT = device.Some(float64(obs.Epoch) - d.Lightning.LastEpoch.Float64)
	}

	sIdx, _ := backfill.FieldIndex(obs.Class, backfill.QStrikes, false)
	if batch, ok := e.window(obs.DeviceID, backfill.Last24h); ok {
		d.Lightning.Frequency = strikeFrequency(obs.Epoch, batch, sIdx)
	} else {
		e.warnOnce("strike_frequency", obs.DeviceID, "no 24h history")
	}
}
