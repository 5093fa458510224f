package geomet

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
)

// NumberMatched probes how many items match the given parameters by asking
// for a single-item JSON page and reading the numberMatched field. The
// caller's params are copied, never mutated.
//
// Any failure — transport error, non-2xx status, undecodable body, absent
// count field — is logged and reported as 0. Callers must treat 0 as
// "nothing to fetch", not as an error to abort on.
func (c *Client) NumberMatched(ctx context.Context, collection string, params url.Values) int {
	alt := cloneValues(params)
	alt.Set("f", "json")
	alt.Set("items", "1")
	alt.Set("offset", "0")

	body, err := c.get(ctx, c.itemsURL(collection), alt)
	if err != nil {
		log.Printf("geomet: error querying number of entries for %s: %v", collection, err)
		return 0
	}

	var payload struct {
		NumberMatched *int `json:"numberMatched"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("geomet: failed to decode match-count response for %s: %v", collection, err)
		return 0
	}
	if payload.NumberMatched == nil {
		log.Printf("geomet: entry 'numberMatched' not found in response for %s", collection)
		return 0
	}
	return *payload.NumberMatched
}
