// Command touchreplay renders a recorded touch session to a standalone
// HTML scatter chart of every tracked point's trajectory, for offline
// inspection of what touchd saw (spec §6, "optional recording for
// replay/analysis").
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jithumediapro/lidar-touch/internal/config"
	"github.com/jithumediapro/lidar-touch/internal/store"
)

var (
	dbFile     = flag.String("db", "", "path to the SQLite database written by touchd -db")
	sessionID  = flag.String("session", "", "session id to replay, for -db mode")
	scriptFile = flag.String("script", "", "path to a scripted scan file to replay instead of -db/-session")
	configFile = flag.String("config", "config.json", "sensor/screen configuration, required by -script")
	outFile    = flag.String("out", "touchreplay.html", "path to write the rendered HTML chart")
)

func main() {
	flag.Parse()

	var label string
	var events []store.RecordedEvent

	switch {
	case *scriptFile != "":
		cfg, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("touchreplay: %v", err)
		}
		f, err := os.Open(*scriptFile)
		if err != nil {
			log.Fatalf("touchreplay: open %q: %v", *scriptFile, err)
		}
		defer f.Close()

		events, err = replayScript(cfg, f)
		if err != nil {
			log.Fatalf("touchreplay: %v", err)
		}
		label = scriptSessionID

	case *dbFile != "" && *sessionID != "":
		st, err := store.Open(*dbFile)
		if err != nil {
			log.Fatalf("touchreplay: %v", err)
		}
		defer st.Close()

		events, err = st.EventsForSession(*sessionID)
		if err != nil {
			log.Fatalf("touchreplay: %v", err)
		}
		if len(events) == 0 {
			log.Fatalf("touchreplay: session %q has no recorded events", *sessionID)
		}
		label = *sessionID

	default:
		log.Fatal("touchreplay: either -script (with -config), or -db with -session, is required")
	}

	scatter := buildChart(label, events)

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("touchreplay: create %q: %v", *outFile, err)
	}
	defer f.Close()

	if err := scatter.Render(f); err != nil {
		log.Fatalf("touchreplay: render: %v", err)
	}

	log.Printf("touchreplay: wrote %s (%d events, %d track(s))", *outFile, len(events), countTracks(events))
}

// buildChart groups events by track id, one scatter series per track, so
// a reviewer can see how each touch point moved across its lifetime.
func buildChart(sessionID string, events []store.RecordedEvent) *charts.Scatter {
	byTrack := make(map[int64][]store.RecordedEvent)
	for _, ev := range events {
		byTrack[ev.TrackID] = append(byTrack[ev.TrackID], ev)
	}

	first, last := events[0].ObservedAt, events[0].ObservedAt
	for _, ev := range events {
		if ev.ObservedAt.Before(first) {
			first = ev.ObservedAt
		}
		if ev.ObservedAt.After(last) {
			last = ev.ObservedAt
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Touch Replay", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Touch Replay: %s", sessionID),
			Subtitle: fmt.Sprintf("%d events, %s", len(events), durationLabel(first, last)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 1, Name: "u", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "v", NameLocation: "middle", NameGap: 30}),
	)

	for trackID, evs := range byTrack {
		data := make([]opts.ScatterData, 0, len(evs))
		for _, ev := range evs {
			data = append(data, opts.ScatterData{Value: []interface{}{ev.U, ev.V}})
		}
		scatter.AddSeries(fmt.Sprintf("track %d", trackID), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		)
	}

	return scatter
}

func durationLabel(first, last time.Time) string {
	d := last.Sub(first)
	if d < 0 {
		d = -d
	}
	return fmt.Sprintf("span %s", d.Round(time.Millisecond))
}

func countTracks(events []store.RecordedEvent) int {
	seen := make(map[int64]struct{})
	for _, ev := range events {
		seen[ev.TrackID] = struct{}{}
	}
	return len(seen)
}
