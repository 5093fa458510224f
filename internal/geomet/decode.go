package geomet

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

// Page formats the engine knows how to decode.
const (
	FormatGeoJSON = "json"
	FormatCSV     = "csv"
)

// decodePage turns one page body into a frame, dispatching on the request
// format.
func decodePage(body []byte, format string) (*frame.Frame, error) {
	switch format {
	case FormatCSV:
		return DecodeCSV(body)
	case FormatGeoJSON:
		return DecodeGeoJSON(body)
	default:
		return nil, fmt.Errorf("unsupported page format %q", format)
	}
}

// DecodeGeoJSON decodes a FeatureCollection body into a frame. Column
// order follows the property order of the features as serialized, with the
// feature id first and the geometry last, so nothing about the service's
// column layout is lost. JSON numbers become float64, null becomes a null
// cell, and geometries are kept as their compact JSON text.
func DecodeGeoJSON(body []byte) (*frame.Frame, error) {
	var payload struct {
		Features []struct {
			ID         any             `json:"id"`
			Properties json.RawMessage `json:"properties"`
			Geometry   json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	f := frame.New()
	var hasID, hasGeometry bool
	rows := make([]frame.Row, 0, len(payload.Features))
	var cols []string
	seen := make(map[string]bool)

	for _, feat := range payload.Features {
		row := frame.Row{}
		if feat.ID != nil {
			hasID = true
			row["id"] = normalizeJSONValue(feat.ID)
		}
		keys, values, err := decodeOrderedObject(feat.Properties)
		if err != nil {
			return nil, fmt.Errorf("decode feature properties: %w", err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
			row[k] = values[k]
		}
		if len(feat.Geometry) > 0 && string(feat.Geometry) != "null" {
			hasGeometry = true
			row["geometry"] = string(compactJSON(feat.Geometry))
		}
		rows = append(rows, row)
	}

	if hasID {
		f.AddColumn("id")
	}
	for _, c := range cols {
		f.AddColumn(c)
	}
	if hasGeometry {
		f.AddColumn("geometry")
	}
	for _, row := range rows {
		f.Append(row)
	}
	return f, nil
}

// decodeOrderedObject decodes a JSON object keeping its key order, which
// encoding/json's map decoding would destroy.
func decodeOrderedObject(raw json.RawMessage) ([]string, map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	var keys []string
	values := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values[key] = normalizeJSONValue(v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// normalizeJSONValue maps decoded JSON values to the frame's cell types.
func normalizeJSONValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case float64, string, bool, nil:
		return val
	default:
		// Nested arrays/objects are rare in properties; keep their
		// JSON text rather than dropping them.
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func compactJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// DecodeCSV decodes a CSV page body into a frame. The header row gives the
// column order; empty fields become null cells and everything else stays a
// string, leaving type interpretation to the consumer.
func DecodeCSV(body []byte) (*frame.Frame, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv page: %w", err)
	}
	if len(records) == 0 {
		return frame.New(), nil
	}

	header := records[0]
	f := frame.New(header...)
	for _, rec := range records[1:] {
		row := frame.Row{}
		for i, field := range rec {
			if i >= len(header) {
				break
			}
			if field == "" {
				continue
			}
			row[header[i]] = field
		}
		f.Append(row)
	}
	return f, nil
}
