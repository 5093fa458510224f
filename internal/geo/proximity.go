// Package geo selects stations by proximity to a reference coordinate and
// resolves street addresses to coordinates.
package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/kelvins/geocoder"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

const earthRadiusMeters = 6371000.0

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between two coordinates in
// meters.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SelectWithinDistance returns the rows of stations whose coordinates fall
// within maxMeters of ref. Rows without usable coordinates are skipped.
func SelectWithinDistance(stations *frame.Frame, latColumn, lonColumn string, ref Coordinate, maxMeters float64) (*frame.Frame, error) {
	if stations == nil {
		return nil, fmt.Errorf("no station dataset given")
	}
	for _, col := range []string{latColumn, lonColumn} {
		if !stations.HasColumn(col) {
			return nil, fmt.Errorf("column %q not found; columns available: %v", col, stations.Columns())
		}
	}
	if maxMeters < 0 {
		return nil, fmt.Errorf("distance must be non-negative, got %v", maxMeters)
	}

	out := frame.New(stations.Columns()...)
	for i := 0; i < stations.NumRows(); i++ {
		c, ok := rowCoordinate(stations, i, latColumn, lonColumn)
		if !ok {
			continue
		}
		if Distance(ref, c) <= maxMeters {
			out.Append(stations.Row(i))
		}
	}
	return out, nil
}

// NearestStations returns up to n rows of stations ordered by distance to
// ref, nearest first. Rows without usable coordinates are skipped.
func NearestStations(stations *frame.Frame, latColumn, lonColumn string, ref Coordinate, n int) (*frame.Frame, error) {
	if stations == nil {
		return nil, fmt.Errorf("no station dataset given")
	}
	for _, col := range []string{latColumn, lonColumn} {
		if !stations.HasColumn(col) {
			return nil, fmt.Errorf("column %q not found; columns available: %v", col, stations.Columns())
		}
	}

	type candidate struct {
		row  frame.Row
		dist float64
	}
	var candidates []candidate
	for i := 0; i < stations.NumRows(); i++ {
		c, ok := rowCoordinate(stations, i, latColumn, lonColumn)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{row: stations.Row(i), dist: Distance(ref, c)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	out := frame.New(stations.Columns()...)
	for i, c := range candidates {
		if n > 0 && i >= n {
			break
		}
		out.Append(c.row)
	}
	return out, nil
}

// SetAPIKey configures the geocoding backend's API key.
func SetAPIKey(key string) {
	geocoder.ApiKey = key
}

// ResolveAddress geocodes a street address to a coordinate, so callers can
// ask for the stations nearest a place they only know by address.
func ResolveAddress(address geocoder.Address) (Coordinate, error) {
	loc, err := geocoder.Geocoding(address)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode address: %w", err)
	}
	return Coordinate{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}

// rowCoordinate reads a row's coordinates, accepting float cells or the
// "geometry" wasn't-requested case where lat/lon arrive as strings.
func rowCoordinate(f *frame.Frame, i int, latColumn, lonColumn string) (Coordinate, bool) {
	lat, ok := floatCell(f.Value(i, latColumn))
	if !ok {
		return Coordinate{}, false
	}
	lon, ok := floatCell(f.Value(i, lonColumn))
	if !ok {
		return Coordinate{}, false
	}
	return Coordinate{Lat: lat, Lon: lon}, true
}

func floatCell(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(val, "%g", &f); err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
