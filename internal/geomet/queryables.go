package geomet

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
)

// QueryableNames fetches the declared queryable field names of a collection
// from its queryables metadata endpoint. On any failure the condition is
// logged and an empty set is returned, which degrades to "everything is
// unqueryable" for callers of UnqueryableProperties.
func (c *Client) QueryableNames(ctx context.Context, collection string) []string {
	params := url.Values{}
	params.Set("f", "json")

	body, err := c.get(ctx, c.queryablesURL(collection), params)
	if err != nil {
		log.Printf("geomet: invalid queryables response for %s: %v", collection, err)
		return nil
	}

	var payload struct {
		Properties map[string]struct {
			Title string `json:"title"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("geomet: failed to decode queryables response for %s: %v", collection, err)
		return nil
	}

	names := make([]string, 0, len(payload.Properties))
	for _, p := range payload.Properties {
		if p.Title != "" {
			names = append(names, p.Title)
		}
	}
	return names
}

// UnqueryableProperties returns the subset of properties that the
// collection does not declare as queryable, preserving the caller's order.
// No retries; one metadata request per call.
func (c *Client) UnqueryableProperties(ctx context.Context, collection string, properties []string) []string {
	allowed := make(map[string]bool)
	for _, name := range c.QueryableNames(ctx, collection) {
		allowed[name] = true
	}

	var unqueryable []string
	for _, p := range properties {
		if !allowed[p] {
			unqueryable = append(unqueryable, p)
		}
	}
	return unqueryable
}
