package geomet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/prairieclim/climate-data-acquisition/internal/frame"
)

// recordingSink captures flushed groups in write order.
type recordingSink struct {
	names []string
	rows  []int
}

func (s *recordingSink) Write(data *frame.Frame, destName string) error {
	s.names = append(s.names, destName)
	s.rows = append(s.rows, data.NumRows())
	return nil
}

func featurePage(rows ...string) string {
	features := ""
	for i, r := range rows {
		if i > 0 {
			features += ","
		}
		features += r
	}
	return `{"type":"FeatureCollection","features":[` + features + `]}`
}

func dailyFeature(station string, date string, temp float64) string {
	return fmt.Sprintf(
		`{"id":"%s.%s","properties":{"STATION_NAME":"%s","LOCAL_DATE":"%s","MEAN_TEMPERATURE":%g}}`,
		station, date, station, date, temp)
}

func TestAcquireZeroMatchesIssuesOnlyProbe(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"numberMatched": 0}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Acquire(context.Background(), Request{Collection: DailyCollection})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.NumRows() != 0 {
		t.Fatalf("rows = %d, want 0", got.NumRows())
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("network calls = %d, want exactly 1 (the probe)", n)
	}
}

func TestAcquirePagesInOffsetOrder(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("items") == "1" {
			w.Write([]byte(`{"numberMatched": 2}`))
			return
		}
		offsets = append(offsets, q.Get("offset"))
		switch q.Get("offset") {
		case "0":
			w.Write([]byte(featurePage(dailyFeature("STN A", "2024-03-01 00:00:00", -4.5))))
		case "1":
			w.Write([]byte(featurePage(dailyFeature("STN A", "2024-03-02 00:00:00", -2.0))))
		default:
			t.Errorf("unexpected offset %s", q.Get("offset"))
			w.Write([]byte(featurePage()))
		}
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		PageLimit:  1,
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(offsets) != 2 || offsets[0] != "0" || offsets[1] != "1" {
		t.Fatalf("page offsets = %v, want [0 1]", offsets)
	}
	if got.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", got.NumRows())
	}
	if got.Value(0, "LOCAL_DATE") != "2024-03-01 00:00:00" || got.Value(1, "LOCAL_DATE") != "2024-03-02 00:00:00" {
		t.Fatal("rows not in request order")
	}
}

func TestAcquireRetriesTransientStatus(t *testing.T) {
	var pageCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("items") == "1" {
			w.Write([]byte(`{"numberMatched": 1}`))
			return
		}
		if atomic.AddInt32(&pageCalls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(featurePage(dailyFeature("STN A", "2024-03-01 00:00:00", -4.5))))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Retry:      RetryPolicy{Backoff: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", got.NumRows())
	}
	if n := atomic.LoadInt32(&pageCalls); n != 2 {
		t.Fatalf("page calls = %d, want 2 (one failure, one retry)", n)
	}
}

func TestAcquireRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("items") == "1" {
			w.Write([]byte(`{"numberMatched": 1}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Retry:      RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond},
	})
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
}

func TestAcquireTimeoutIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("items") == "1" {
			w.Write([]byte(`{"numberMatched": 1}`))
			return
		}
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(featurePage()))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
	})
	_, err := client.Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Retry:      RetryPolicy{Backoff: time.Millisecond},
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected a timeout to propagate immediately, got %v", err)
	}
}

func TestAcquireDropsUnqueryableProperties(t *testing.T) {
	var pageProperties string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/climate-daily/queryables":
			w.Write([]byte(`{"properties": {"A": {"title": "A"}}}`))
		case r.URL.Query().Get("items") == "1":
			w.Write([]byte(`{"numberMatched": 1}`))
		default:
			pageProperties = r.URL.Query().Get("properties")
			w.Write([]byte(featurePage(`{"id":"x","properties":{"A":1}}`)))
		}
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Properties: []string{"A", "B"},
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if pageProperties != "A" {
		t.Fatalf("page properties param = %q, want only the queryable A", pageProperties)
	}
	if got.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", got.NumRows())
	}
}

func TestAcquireEmptyPageStillAdvances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("items") == "1" {
			w.Write([]byte(`{"numberMatched": 2}`))
			return
		}
		if q.Get("offset") == "0" {
			w.Write([]byte(featurePage(dailyFeature("STN A", "2024-03-01 00:00:00", -4.5))))
			return
		}
		w.Write([]byte(featurePage()))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		PageLimit:  1,
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", got.NumRows())
	}
}

func TestAcquireFlushRequiresNamingProperties(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	_, err := newTestClient(srv.URL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Properties: []string{DateProperty},
		Sink:       sink,
	})
	if !errors.Is(err, ErrMissingNamingProperties) {
		t.Fatalf("err = %v, want ErrMissingNamingProperties", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("network calls = %d, want 0 (config error raised first)", n)
	}
}

// startFakeService runs a fiber app standing in for the collections
// service, serving CSV pages whose rows arrive sorted by climate
// identifier as the flush path demands.
func startFakeService(t *testing.T, pages []string, matched int) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/collections/:collection/queryables", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"properties": fiber.Map{
			StationNameProperty: fiber.Map{"title": StationNameProperty},
			GroupIDProperty:     fiber.Map{"title": GroupIDProperty},
			DateProperty:        fiber.Map{"title": DateProperty},
		}})
	})
	app.Get("/collections/:collection/items", func(c *fiber.Ctx) error {
		if c.Query("items") == "1" {
			return c.JSON(fiber.Map{"numberMatched": matched})
		}
		offset, _ := strconv.Atoi(c.Query("offset", "0"))
		limit, _ := strconv.Atoi(c.Query("limit", "10000"))
		page := offset / limit
		if page >= len(pages) {
			return c.SendString("STATION_NAME,CLIMATE_IDENTIFIER,LOCAL_DATE\n")
		}
		return c.SendString(pages[page])
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		if err := app.Listener(ln); err != nil {
			t.Logf("fake service stopped: %v", err)
		}
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String()
}

func TestAcquireFlushesCompletedGroups(t *testing.T) {
	header := "STATION_NAME,CLIMATE_IDENTIFIER,LOCAL_DATE\n"
	pages := []string{
		header +
			"EDMONTON INTL A,3012205,2024-03-01 00:00:00\n" +
			"EDMONTON INTL A,3012205,2024-03-02 00:00:00\n" +
			"CALGARY INTL A,3031093,2024-03-01 00:00:00\n",
		header +
			"CALGARY INTL A,3031093,2024-03-02 00:00:00\n" +
			"BANFF CS,3050520,2024-03-01 00:00:00\n",
	}
	baseURL := startFakeService(t, pages, 5)

	sink := &recordingSink{}
	got, err := newTestClient(baseURL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Properties: []string{StationNameProperty, GroupIDProperty, DateProperty},
		Format:     FormatCSV,
		PageLimit:  3,
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Page 1 completes Edmonton (Calgary appeared); page 2 completes
	// Calgary (Banff appeared); the final flush writes Banff.
	wantNames := []string{
		"EDMONTON_INTL_A_3012205",
		"CALGARY_INTL_A_3031093",
		"BANFF_CS_3050520",
	}
	if len(sink.names) != len(wantNames) {
		t.Fatalf("flushed %v, want %v", sink.names, wantNames)
	}
	for i, want := range wantNames {
		if sink.names[i] != want {
			t.Fatalf("flush %d = %q, want %q", i, sink.names[i], want)
		}
	}
	wantRows := []int{2, 2, 1}
	for i, want := range wantRows {
		if sink.rows[i] != want {
			t.Fatalf("flush %d rows = %d, want %d", i, sink.rows[i], want)
		}
	}
	if got.NumRows() != 0 {
		t.Fatalf("flushing acquisition returned %d rows, want an empty frame", got.NumRows())
	}
}

// The group-complete flush trusts the service's sort order. This pins down
// what happens when that trust is betrayed: a group reappearing after its
// flush is written a second time under the same name, silently splitting
// its data across two writes.
func TestAcquireFlushWithDishonestSortOrder(t *testing.T) {
	header := "STATION_NAME,CLIMATE_IDENTIFIER,LOCAL_DATE\n"
	pages := []string{
		header +
			"EDMONTON INTL A,3012205,2024-03-01 00:00:00\n" +
			"CALGARY INTL A,3031093,2024-03-01 00:00:00\n",
		header +
			"EDMONTON INTL A,3012205,2024-03-02 00:00:00\n",
	}
	baseURL := startFakeService(t, pages, 3)

	sink := &recordingSink{}
	_, err := newTestClient(baseURL).Acquire(context.Background(), Request{
		Collection: DailyCollection,
		Properties: []string{StationNameProperty, GroupIDProperty, DateProperty},
		Format:     FormatCSV,
		PageLimit:  2,
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	want := []string{
		"EDMONTON_INTL_A_3012205",
		"CALGARY_INTL_A_3031093",
		"EDMONTON_INTL_A_3012205",
	}
	if len(sink.names) != len(want) {
		t.Fatalf("flushed %v, want %v", sink.names, want)
	}
	for i := range want {
		if sink.names[i] != want[i] {
			t.Fatalf("flush %d = %q, want %q", i, sink.names[i], want[i])
		}
	}
}
