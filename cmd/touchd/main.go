// Command touchd runs the touch-tracking daemon: it loads a sensor/screen
// configuration, starts the pipeline, and fans out TUIO 1.1 /tuio/2Dcur
// bundles to the configured endpoints until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jithumediapro/lidar-touch/internal/config"
	"github.com/jithumediapro/lidar-touch/internal/monitoring"
	"github.com/jithumediapro/lidar-touch/internal/pipeline"
	"github.com/jithumediapro/lidar-touch/internal/store"
)

var (
	configPath = flag.String("config", "config.json", "path to the sensor/screen configuration JSON file")
	dbFile     = flag.String("db", "", "path to a SQLite database for session recording (disabled if empty)")
	host       = flag.String("host", "", "host identity reported in outgoing TUIO source messages (default: os.Hostname)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("touchd: %v", err)
	}

	var st *store.Store
	if *dbFile != "" {
		st, err = store.Open(*dbFile)
		if err != nil {
			log.Fatalf("touchd: open store: %v", err)
		}
		defer st.Close()
	}

	identity := *host
	if identity == "" {
		if h, err := os.Hostname(); err == nil {
			identity = h
		} else {
			identity = "touchd"
		}
	}

	p, err := pipeline.New(cfg, pipeline.DefaultScannerFactory, cfg.Params.AppNameOrDefault(), identity, st)
	if err != nil {
		log.Fatalf("touchd: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.Infof("touchd: starting with %d sensor(s), %d screen(s), %d endpoint(s)",
		len(cfg.Sensors), len(cfg.Screens), len(cfg.Endpoints))

	p.Run(ctx)

	monitoring.Infof("touchd: shut down cleanly")
}
