// climate-pull downloads daily climate observations for the configured
// provinces and writes one CSV per station, flushing each station's data
// as soon as it is complete so a multi-day pull never loses finished work.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prairieclim/climate-data-acquisition/internal/config"
	"github.com/prairieclim/climate-data-acquisition/internal/csvout"
	"github.com/prairieclim/climate-data-acquisition/internal/geo"
	"github.com/prairieclim/climate-data-acquisition/internal/geomet"
	"github.com/prairieclim/climate-data-acquisition/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.GeocoderAPIKey != "" {
		geo.SetAPIKey(cfg.GeocoderAPIKey)
	}

	client := geomet.NewClient(geomet.ClientConfig{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})

	writer := &csvout.Writer{
		Dir:        cfg.OutputDir,
		DateColumn: geomet.DateProperty,
	}

	var interval *geomet.Interval
	if cfg.DateInterval != "" {
		interval = geomet.RawExpression(cfg.DateInterval)
	}
	retry := geomet.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pull := func() {
		for _, province := range cfg.Provinces {
			log.Printf("pulling daily data for province %s", province)
			err := client.DownloadAllDailyData(ctx, cfg.Properties, interval, writer, retry, map[string]string{
				geomet.ProvinceParam: string(province),
			})
			if err != nil {
				log.Printf("pull for province %s failed: %v", province, err)
			}
		}
	}

	if cfg.PullInterval <= 0 {
		pull()
		return
	}

	sched := scheduler.New(cfg.PullInterval, pull)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	<-ctx.Done()
	log.Println("shutting down")
}
