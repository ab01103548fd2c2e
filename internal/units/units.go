// Package units converts the speed and distance units found in telemetry
// exports to the km/h and km the trip records use.
package units

// Speed unit names.
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const mphPerMPS = 2.2369362920544

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units leave the value in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * mphPerMPS
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// MetersToKm converts metres to kilometres.
func MetersToKm(m float64) float64 {
	return m / 1000
}
