package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
)

// cellPrecision controls the clustering grid: markers whose coordinates
// round to the same cell at this many decimal places merge into one cluster.
const cellPrecision = 1

// spreadStep is the offset, in degrees, applied to markers that share the
// exact same coordinates so they render as distinct points.
const spreadStep = 0.0035

// Cluster is a group of markers sharing a grid cell.
type Cluster struct {
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	Count     int                `json:"count"`
	Value     float64            `json:"value"`
	Color     string             `json:"color"`
	Markers   []models.MapMarker `json:"markers"`
}

// ClusterMarkers groups markers into grid cells, spreads exact coordinate
// collisions, and grades each cluster by its aggregate value using the
// given scale. Cluster order follows descending value, ties broken by
// latitude then longitude so output is deterministic.
func ClusterMarkers(markers []models.MapMarker, scale *ColorScale) []Cluster {
	if len(markers) == 0 {
		return []Cluster{}
	}

	cells := make(map[string][]models.MapMarker)
	order := make([]string, 0, len(markers))
	for _, m := range markers {
		key := cellKey(m.Latitude, m.Longitude)
		if _, seen := cells[key]; !seen {
			order = append(order, key)
		}
		cells[key] = append(cells[key], m)
	}

	clusters := make([]Cluster, 0, len(order))
	values := make([]float64, 0, len(order))
	for _, key := range order {
		group := spreadOverlaps(cells[key])
		c := Cluster{Markers: group, Count: len(group)}
		for _, m := range group {
			c.Latitude += m.Latitude
			c.Longitude += m.Longitude
			c.Value += m.Value
		}
		c.Latitude /= float64(len(group))
		c.Longitude /= float64(len(group))
		clusters = append(clusters, c)
		values = append(values, c.Value)
	}

	for i := range clusters {
		clusters[i].Color = scale.At(PositionByRank(clusters[i].Value, values))
	}

	sort.Slice(clusters, func(i, j int) bool { return less(clusters[i], clusters[j]) })
	return clusters
}

func cellKey(lat, lng float64) string {
	factor := math.Pow10(cellPrecision)
	return fmt.Sprintf("%.1f:%.1f", math.Round(lat*factor)/factor, math.Round(lng*factor)/factor)
}

// spreadOverlaps nudges markers with identical coordinates onto a small
// square grid around the shared point.
func spreadOverlaps(group []models.MapMarker) []models.MapMarker {
	byCoord := make(map[string][]int)
	for i, m := range group {
		k := fmt.Sprintf("%.6f:%.6f", m.Latitude, m.Longitude)
		byCoord[k] = append(byCoord[k], i)
	}

	out := make([]models.MapMarker, len(group))
	copy(out, group)
	for _, idxs := range byCoord {
		if len(idxs) < 2 {
			continue
		}
		side := int(math.Ceil(math.Sqrt(float64(len(idxs)))))
		for n, i := range idxs {
			row := n / side
			col := n % side
			out[i].Latitude += float64(row-side/2) * spreadStep
			out[i].Longitude += float64(col-side/2) * spreadStep
		}
	}
	return out
}

func less(a, b Cluster) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	if a.Latitude != b.Latitude {
		return a.Latitude < b.Latitude
	}
	return a.Longitude < b.Longitude
}
