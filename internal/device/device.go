// Package device maps raw station records onto named observation fields.
//
// The station hardware reports fixed-position arrays whose layout depends on
// the device class: the combined TEMPEST sensor carries every field in one
// record, while the legacy AIR (pressure/temperature/lightning) and SKY
// (wind/rain/solar) sensors split them across two records. Any position that
// is null or absent decodes to a missing field, never to zero.
package device

import "encoding/json"

// Class identifies the sensor hardware family, resolved once at decode time
// from the configured device identifiers.
type Class int

const (
	Tempest Class = iota
	Sky
	OutdoorAir
	IndoorAir
)

// String returns the wire name of the record type for each class.
func (c Class) String() string {
	switch c {
	case Tempest:
		return "obs_st"
	case Sky:
		return "obs_sky"
	case OutdoorAir:
		return "obs_out_air"
	case IndoorAir:
		return "obs_in_air"
	}
	return "unknown"
}

// Value is an optional numeric reading. A missing field has Valid == false;
// a present field with value zero is a real measurement, not "no data".
type Value struct {
	Float64 float64 `json:"value"`
	Valid   bool    `json:"valid"`
}

// Some wraps a present reading.
func Some(v float64) Value { return Value{Float64: v, Valid: true} }

// None is the missing reading.
func None() Value { return Value{} }

// Observation is a decoded point-in-time reading from one physical sensor.
// Fields not carried by the source device class are always missing.
type Observation struct {
	DeviceID string `json:"device_id"`
	Class    Class  `json:"-"`
	Epoch    int64  `json:"epoch"` // seconds, UTC

	Pressure     Value `json:"pressure"`      // mb
	OutTemp      Value `json:"out_temp"`      // C
	InTemp       Value `json:"in_temp"`       // C
	Humidity     Value `json:"humidity"`      // %
	WindSpeed    Value `json:"wind_speed"`    // m/s
	WindGust     Value `json:"wind_gust"`     // m/s
	WindDir      Value `json:"wind_dir"`      // degrees
	UV           Value `json:"uv"`            // index
	Radiation    Value `json:"radiation"`     // W/m2
	MinuteRain   Value `json:"minute_rain"`   // mm over the last minute
	DailyRain    Value `json:"daily_rain"`    // mm since local midnight, device-reported
	StrikeMinute Value `json:"strike_minute"` // strikes over the last minute
}

// Raw record positions, per device class. Position 0 is always the epoch.
const (
	tempestWindSpeed  = 2
	tempestWindGust   = 3
	tempestWindDir    = 4
	tempestPressure   = 6
	tempestOutTemp    = 7
	tempestHumidity   = 8
	tempestUV         = 10
	tempestRadiation  = 11
	tempestMinuteRain = 12
	tempestStrikes    = 15
	tempestDailyRain  = 18

	skyUV         = 2
	skyMinuteRain = 3
	skyWindSpeed  = 5
	skyWindGust   = 6
	skyWindDir    = 7
	skyRadiation  = 10
	skyDailyRain  = 11

	airPressure = 1
	airTemp     = 2
	airHumidity = 3
	airStrikes  = 4
)

// Decode maps a raw fixed-position record onto an Observation for the given
// device class. Decoding never fails: an empty or malformed record yields an
// Observation whose fields are all missing.
func Decode(class Class, deviceID string, raw []any) Observation {
	obs := Observation{DeviceID: deviceID, Class: class}
	if ts := NumberAt(raw, 0); ts.Valid {
		obs.Epoch = int64(ts.Float64)
	}

	switch class {
	case Tempest:
		obs.WindSpeed = NumberAt(raw, tempestWindSpeed)
		obs.WindGust = NumberAt(raw, tempestWindGust)
		obs.WindDir = NumberAt(raw, tempestWindDir)
		obs.Pressure = NumberAt(raw, tempestPressure)
		obs.OutTemp = NumberAt(raw, tempestOutTemp)
		obs.Humidity = NumberAt(raw, tempestHumidity)
		obs.UV = NumberAt(raw, tempestUV)
		obs.Radiation = NumberAt(raw, tempestRadiation)
		obs.MinuteRain = NumberAt(raw, tempestMinuteRain)
		obs.StrikeMinute = NumberAt(raw, tempestStrikes)
		obs.DailyRain = NumberAt(raw, tempestDailyRain)
	case Sky:
		obs.UV = NumberAt(raw, skyUV)
		obs.MinuteRain = NumberAt(raw, skyMinuteRain)
		obs.WindSpeed = NumberAt(raw, skyWindSpeed)
		obs.WindGust = NumberAt(raw, skyWindGust)
		obs.WindDir = NumberAt(raw, skyWindDir)
		obs.Radiation = NumberAt(raw, skyRadiation)
		obs.DailyRain = NumberAt(raw, skyDailyRain)
	case OutdoorAir:
		obs.Pressure = NumberAt(raw, airPressure)
		obs.OutTemp = NumberAt(raw, airTemp)
		obs.Humidity = NumberAt(raw, airHumidity)
		obs.StrikeMinute = NumberAt(raw, airStrikes)
	case IndoorAir:
		obs.InTemp = NumberAt(raw, airTemp)
	}
	return obs
}

// NumberAt extracts an optional number from a decoded JSON array. Indexes
// past the end of the record and non-numeric entries are missing fields.
func NumberAt(raw []any, i int) Value {
	if i < 0 || i >= len(raw) {
		return None()
	}
	switch n := raw[i].(type) {
	case float64:
		return Some(n)
	case int:
		return Some(float64(n))
	case int64:
		return Some(float64(n))
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return None()
		}
		return Some(f)
	}
	return None()
}
