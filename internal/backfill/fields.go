package backfill

import "github.com/tempestwx/stationcore/internal/device"

// Quantity names a physical field inside a raw history row.
type Quantity int

const (
	QPressure Quantity = iota
	QTemperature
	QStrikes
	QRain
	QWindSpeed
	QWindGust
	QRadiation
)

// FieldIndex returns the raw-row index of a quantity for a device class.
// Minute-bucket ("a") and daily-bucket ("e") rows disagree for the strike and
// rain totals, so daily selects the bucket "e" layout. ok is false when the
// device class does not report the quantity at all.
func FieldIndex(class device.Class, q Quantity, daily bool) (int, bool) {
	switch class {
	case device.Tempest:
		switch q {
		case QPressure:
			return 6, true
		case QTemperature:
			return 7, true
		case QStrikes:
			if daily {
				return 24, true
			}
			return 15, true
		case QRain:
			if daily {
				return 28, true
			}
			return 12, true
		case QWindSpeed:
			return 2, true
		case QWindGust:
			return 3, true
		case QRadiation:
			return 11, true
		}
	case device.OutdoorAir, device.IndoorAir:
		switch q {
		case QPressure:
			return 1, true
		case QTemperature:
			return 2, true
		case QStrikes:
			return 4, true
		}
	case device.Sky:
		switch q {
		case QRain:
			return 3, true
		case QWindSpeed:
			return 5, true
		case QWindGust:
			return 6, true
		case QRadiation:
			return 10, true
		}
	}
	return 0, false
}
