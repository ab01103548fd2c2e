package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{MPS, 10},
		{KMPH, 36},
		{KPH, 36},
		{MPH, 22.369362920544},
		{"furlongs", 10},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := ConvertSpeed(10, tt.unit); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertSpeed(10, %q) = %v, want %v", tt.unit, got, tt.want)
			}
		})
	}
}

func TestMetersToKm(t *testing.T) {
	if got := MetersToKm(2500); got != 2.5 {
		t.Errorf("MetersToKm(2500) = %v", got)
	}
}
