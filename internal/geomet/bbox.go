package geomet

import (
	"fmt"
	"strconv"
	"strings"
)

// LonLat is a longitude/latitude coordinate pair.
type LonLat struct {
	Lon float64
	Lat float64
}

// BBoxString converts coordinates spanning a region into the bbox form the
// service understands: "<minLon>,<minLat>,<maxLon>,<maxLat>". At least two
// points are required.
func BBoxString(points []LonLat) (string, error) {
	if len(points) < 2 {
		return "", fmt.Errorf("two points needed to create a bounding box, got %d", len(points))
	}
	minLon, minLat := points[0].Lon, points[0].Lat
	maxLon, maxLat := minLon, minLat
	for _, p := range points[1:] {
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
	}
	return fmt.Sprintf("%v,%v,%v,%v", minLon, minLat, maxLon, maxLat), nil
}

// NormalizeBBox reorders a user-supplied bbox string so the minimum
// longitude and latitude come first, preserving each value's original
// textual form. The input is assumed to alternate longitude, latitude.
func NormalizeBBox(bbox string) (string, error) {
	coords := strings.Split(bbox, ",")
	if len(coords) < 4 {
		return "", fmt.Errorf("could not find 4 values for a lon/lat bbox: %v", coords)
	}

	type coord struct {
		text  string
		value float64
	}
	var lons, lats []coord
	for i, c := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return "", fmt.Errorf("value %q does not appear to be a number: %w", c, err)
		}
		if i%2 == 0 {
			lons = append(lons, coord{text: c, value: v})
		} else {
			lats = append(lats, coord{text: c, value: v})
		}
	}

	minIdx := func(cs []coord) int {
		best := 0
		for i, c := range cs {
			if c.value < cs[best].value {
				best = i
			}
		}
		return best
	}
	maxIdx := func(cs []coord) int {
		best := 0
		for i, c := range cs {
			if c.value > cs[best].value {
				best = i
			}
		}
		return best
	}

	return strings.Join([]string{
		lons[minIdx(lons)].text,
		lats[minIdx(lats)].text,
		lons[maxIdx(lons)].text,
		lats[maxIdx(lats)].text,
	}, ","), nil
}
