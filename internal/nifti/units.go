package nifti

// NIFTI_UNITS_* codes.
const (
	UnitsUnknown byte = 0
	UnitsMeter   byte = 1
	UnitsMM      byte = 2
	UnitsMicron  byte = 3
	UnitsSec     byte = 8
	UnitsMsec    byte = 16
	UnitsUsec    byte = 24
	UnitsHz      byte = 32
	UnitsPPM     byte = 40
	UnitsRads    byte = 48
)

// SpatialUnits is the spatial part of xyzt_units.
func (h Header) SpatialUnits() byte { return h.XYZTUnits & 0x07 }

// TimeUnits is the temporal part of xyzt_units.
func (h Header) TimeUnits() byte { return h.XYZTUnits & 0x38 }

// SetXYZTUnits packs spatial and temporal unit codes into xyzt_units.
func (h *Header) SetXYZTUnits(spatial, temporal byte) {
	h.XYZTUnits = (spatial & 0x07) | (temporal & 0x38)
}

// UnitName returns a short label for a unit code.
func UnitName(code byte) string {
	switch code {
	case UnitsMeter:
		return "m"
	case UnitsMM:
		return "mm"
	case UnitsMicron:
		return "um"
	case UnitsSec:
		return "s"
	case UnitsMsec:
		return "ms"
	case UnitsUsec:
		return "us"
	case UnitsHz:
		return "Hz"
	case UnitsPPM:
		return "ppm"
	case UnitsRads:
		return "rad/s"
	default:
		return "unknown"
	}
}

// secondsPerUnit converts a temporal unit to seconds. Unknown units are
// taken as seconds, which is what most converters write.
func secondsPerUnit(code byte) float64 {
	switch code {
	case UnitsMsec:
		return 1e-3
	case UnitsUsec:
		return 1e-6
	default:
		return 1
	}
}
