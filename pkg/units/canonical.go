// Package units provides canonical unit types and conversions.
package units

import "strings"

// Unit represents a measurable quantity.
type Unit string

const (
	// Continuous units
	UnitMetre       Unit = "m"
	UnitSquareMetre Unit = "m²"
	UnitCubicMetre  Unit = "m³"

	// Discrete units
	UnitEach Unit = "each"
	UnitItem Unit = "item"
	UnitSet  Unit = "set"
)

// Kind groups units by the measurement they express.
type Kind string

const (
	KindLinear   Kind = "linear"
	KindArea     Kind = "area"
	KindVolume   Kind = "volume"
	KindCount    Kind = "count"
	KindAssembly Kind = "assembly"
	KindUnknown  Kind = ""
)

var aliases = map[string]Unit{
	"m":             UnitMetre,
	"lm":            UnitMetre,
	"lin m":         UnitMetre,
	"lin.m":         UnitMetre,
	"linm":          UnitMetre,
	"metre":         UnitMetre,
	"metres":        UnitMetre,
	"meter":         UnitMetre,
	"meters":        UnitMetre,
	"linear metre":  UnitMetre,
	"linear metres": UnitMetre,
	"linear meter":  UnitMetre,
	"linear meters": UnitMetre,
	"lineal metres": UnitMetre,

	"m²":            UnitSquareMetre,
	"m2":            UnitSquareMetre,
	"sqm":           UnitSquareMetre,
	"sq m":          UnitSquareMetre,
	"sq.m":          UnitSquareMetre,
	"sq. m":         UnitSquareMetre,
	"square metre":  UnitSquareMetre,
	"square metres": UnitSquareMetre,
	"square meter":  UnitSquareMetre,
	"square meters": UnitSquareMetre,
	"square_metres": UnitSquareMetre,

	"m³":           UnitCubicMetre,
	"m3":           UnitCubicMetre,
	"cum":          UnitCubicMetre,
	"cu m":         UnitCubicMetre,
	"cu.m":         UnitCubicMetre,
	"cubic metre":  UnitCubicMetre,
	"cubic metres": UnitCubicMetre,
	"cubic meter":  UnitCubicMetre,
	"cubic meters": UnitCubicMetre,

	"each":   UnitEach,
	"ea":     UnitEach,
	"no":     UnitEach,
	"no.":    UnitEach,
	"nr":     UnitEach,
	"pcs":    UnitEach,
	"pc":     UnitEach,
	"pieces": UnitEach,
	"units":  UnitEach,
	"unit":   UnitEach,

	"item":  UnitItem,
	"items": UnitItem,
	"ls":    UnitItem,
	"lot":   UnitItem,
	"set":   UnitSet,
	"sets":  UnitSet,
}

// Normalize maps a free-form unit spelling to its canonical unit.
// Unknown spellings return "" and false.
func Normalize(raw string) (Unit, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(key), " ")
	if key == "" {
		return "", false
	}
	u, ok := aliases[key]
	return u, ok
}

// KindOf reports which measurement a unit expresses.
func KindOf(u Unit) Kind {
	switch u {
	case UnitMetre:
		return KindLinear
	case UnitSquareMetre:
		return KindArea
	case UnitCubicMetre:
		return KindVolume
	case UnitEach:
		return KindCount
	case UnitItem, UnitSet:
		return KindAssembly
	default:
		return KindUnknown
	}
}

// ForKind returns the canonical unit for a measurement kind.
func ForKind(k Kind) Unit {
	switch k {
	case KindLinear:
		return UnitMetre
	case KindArea:
		return UnitSquareMetre
	case KindVolume:
		return UnitCubicMetre
	case KindCount:
		return UnitEach
	default:
		return UnitItem
	}
}

// IsDiscrete reports whether quantities in this kind are whole numbers.
func IsDiscrete(k Kind) bool {
	return k == KindCount || k == KindAssembly
}

// MillimetresToMetres converts a millimetre dimension to metres.
func MillimetresToMetres(mm float64) float64 {
	return mm / 1000
}
