package util

import (
	"fmt"
	"math"
)

func FormatPerUnit(value float64) string {
	if math.Abs(value) >= 1000 || (math.Abs(value) < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e pu", value) // e.g., "5.43e-05 pu"
	}
	return fmt.Sprintf("%8.4f pu", value) // e.g., "  1.0000 pu"
}

func FormatAngleDeg(rad float64) string {
	return fmt.Sprintf("%8.3f deg", rad*180/math.Pi)
}

func FormatPower(pu, baseMVA float64) string {
	mva := pu * baseMVA
	switch {
	case math.Abs(mva) >= 1e3:
		return fmt.Sprintf("%8.2f GVA", mva/1e3)
	case math.Abs(mva) >= 1:
		return fmt.Sprintf("%8.2f MVA", mva)
	default:
		return fmt.Sprintf("%8.2f kVA", mva*1e3)
	}
}

func FormatVoltage(pu, baseKV float64) string {
	kv := pu * baseKV
	if math.Abs(kv) >= 1e3 {
		return fmt.Sprintf("%7.3f MV", kv/1e3)
	}
	return fmt.Sprintf("%7.3f kV", kv)
}
