package geomet

import (
	"context"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

// Names of the climate collections this client is used against.
const (
	DailyCollection    = "climate-daily"
	HourlyCollection   = "climate-hourly"
	StationsCollection = "climate-stations"
)

// RequestDailyData fetches daily observations for the given stations,
// sorted by date, returning the full dataset in memory.
func (c *Client) RequestDailyData(ctx context.Context, stationIDs []int, properties []string, interval *Interval, extra map[string]string) (*frame.Frame, error) {
	return c.Acquire(ctx, Request{
		Collection: DailyCollection,
		StationIDs: stationIDs,
		Properties: properties,
		Interval:   interval,
		SortBy:     "+" + DateProperty,
		Extra:      extra,
	})
}

// RequestHourlyData fetches hourly observations for the given stations,
// sorted by date, returning the full dataset in memory.
func (c *Client) RequestHourlyData(ctx context.Context, stationIDs []int, properties []string, interval *Interval, extra map[string]string) (*frame.Frame, error) {
	return c.Acquire(ctx, Request{
		Collection: HourlyCollection,
		StationIDs: stationIDs,
		Properties: properties,
		Interval:   interval,
		SortBy:     "+" + DateProperty,
		Extra:      extra,
	})
}

// RequestClimateStations fetches the station catalogue.
func (c *Client) RequestClimateStations(ctx context.Context, properties []string, extra map[string]string) (*frame.Frame, error) {
	return c.Acquire(ctx, Request{
		Collection: StationsCollection,
		Properties: properties,
		Extra:      extra,
	})
}

// DownloadAllDailyData pulls every matching daily record and streams
// completed station groups to the sink instead of holding decades of rows
// in memory. Pages are requested as CSV sorted by climate identifier then
// date; properties must include the identifier and station name so output
// files can be named.
func (c *Client) DownloadAllDailyData(ctx context.Context, properties []string, interval *Interval, sink Sink, retry RetryPolicy, extra map[string]string) error {
	_, err := c.Acquire(ctx, Request{
		Collection: DailyCollection,
		Properties: properties,
		Interval:   interval,
		Format:     FormatCSV,
		Sink:       sink,
		Retry:      retry,
		Extra:      extra,
	})
	return err
}
