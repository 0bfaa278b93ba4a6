package geometry

type Category string

const (
	CategoryBuilding Category = "building"
	CategoryHighway  Category = "highway"
	CategoryWater    Category = "water"
	CategoryNatural  Category = "natural"
	CategoryLanduse  Category = "landuse"
	CategoryOther    Category = "other"
)

// degreesToKm converts one degree of latitude or longitude to kilometres.
const degreesToKm = 111.32

// Counts carries the per-category element counters.
type Counts struct {
	Building int
	Highway  int
	Water    int
	Natural  int
	Landuse  int
	Other    int
}

// Classify maps one feature's properties to exactly one element category.
// First match wins: building, highway, waterway-or-natural-water, natural,
// landuse, other. Deterministic and total.
func Classify(props map[string]any) Category {
	switch {
	case hasTag(props, "building"):
		return CategoryBuilding
	case hasTag(props, "highway"):
		return CategoryHighway
	case hasTag(props, "waterway") || tagEquals(props, "natural", "water"):
		return CategoryWater
	case hasTag(props, "natural"):
		return CategoryNatural
	case hasTag(props, "landuse"):
		return CategoryLanduse
	default:
		return CategoryOther
	}
}

// Summarize classifies every feature of the collection and returns the
// per-category counters together with the total element count.
func Summarize(fc FeatureCollection) (Counts, int) {
	var counts Counts
	for _, feature := range fc.Features {
		switch Classify(feature.Properties) {
		case CategoryBuilding:
			counts.Building++
		case CategoryHighway:
			counts.Highway++
		case CategoryWater:
			counts.Water++
		case CategoryNatural:
			counts.Natural++
		case CategoryLanduse:
			counts.Landuse++
		default:
			counts.Other++
		}
	}
	return counts, len(fc.Features)
}

// Area estimates the covered surface in km² by summing the spans of every
// bounding box. Boxes with a non-positive span contribute zero.
func Area(boxes []Bounds) float64 {
	var total float64
	for _, b := range boxes {
		latSpan := b.North - b.South
		lonSpan := b.East - b.West
		if latSpan <= 0 || lonSpan <= 0 {
			continue
		}
		total += latSpan * lonSpan * degreesToKm * degreesToKm
	}
	return total
}

// hasTag reports whether the property is present with a meaningful value.
// Empty strings, explicit false and nulls do not count; any other value,
// including "no", does.
func hasTag(props map[string]any, key string) bool {
	value, ok := props[key]
	if !ok {
		return false
	}
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		return true
	}
}

func tagEquals(props map[string]any, key, want string) bool {
	value, ok := props[key]
	if !ok {
		return false
	}
	s, ok := value.(string)
	return ok && s == want
}
