package consts

const (
	BASEMVA = 100.0 // System power base (MVA)
	BASEKV  = 110.0 // Default voltage rating (kV)
	FREQ    = 60.0  // Nominal frequency (Hz)
)
