// Package geo prepares map marker data for the frontend: clustering of
// nearby points and value-to-color grading.
package geo

import (
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// scaleSteps is the resolution of the precomputed color ramp.
const scaleSteps = 1000

// ColorScale maps a position in [0,1] to a hex color through a precomputed
// ramp interpolated in Lab space.
type ColorScale struct {
	colors []string
}

// DefaultRampStops is the cold-to-hot ramp used by the opportunity map.
var DefaultRampStops = []string{"#1d4ed8", "#10b981", "#f59e0b", "#dc2626"}

// NewColorScale precomputes a ramp from the given hex stops. Invalid stops
// fall back to the default ramp.
func NewColorScale(stops []string) *ColorScale {
	parsed := make([]colorful.Color, 0, len(stops))
	for _, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			parsed = parsed[:0]
			break
		}
		parsed = append(parsed, c)
	}
	if len(parsed) < 2 {
		for _, s := range DefaultRampStops {
			c, _ := colorful.Hex(s)
			parsed = append(parsed, c)
		}
	}

	colors := make([]string, scaleSteps)
	segments := len(parsed) - 1
	for i := 0; i < scaleSteps; i++ {
		t := float64(i) / float64(scaleSteps-1)
		seg := int(t * float64(segments))
		if seg >= segments {
			seg = segments - 1
		}
		local := t*float64(segments) - float64(seg)
		colors[i] = parsed[seg].BlendLab(parsed[seg+1], local).Clamped().Hex()
	}
	return &ColorScale{colors: colors}
}

// At returns the color at position t in [0,1]. Out-of-range values clamp.
func (s *ColorScale) At(t float64) string {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	idx := int(t * float64(scaleSteps-1))
	return s.colors[idx]
}

// PositionFixed places a value inside a fixed [min,max] range.
func PositionFixed(value, min, max float64) float64 {
	if max <= min {
		return 0
	}
	return (value - min) / (max - min)
}

// PositionByRank places a value by its rank among all values, which keeps
// the ramp readable when a single outlier dominates the range.
func PositionByRank(value float64, all []float64) float64 {
	if len(all) <= 1 {
		return 0
	}
	sorted := make([]float64, len(all))
	copy(sorted, all)
	sort.Float64s(sorted)
	rank := sort.SearchFloat64s(sorted, value)
	return float64(rank) / float64(len(sorted)-1)
}
