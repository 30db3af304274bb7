package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/background"
	"github.com/jithumediapro/lidar-touch/internal/cluster"
	"github.com/jithumediapro/lidar-touch/internal/config"
	"github.com/jithumediapro/lidar-touch/internal/fusion"
	"github.com/jithumediapro/lidar-touch/internal/geometry"
	"github.com/jithumediapro/lidar-touch/internal/scan"
	"github.com/jithumediapro/lidar-touch/internal/screen"
	"github.com/jithumediapro/lidar-touch/internal/store"
	"github.com/jithumediapro/lidar-touch/internal/track"
)

// scriptSessionID labels events produced by a direct scan-file replay,
// since there is no store.Store session behind them.
const scriptSessionID = "script-replay"

// replayScript drives cfg's first sensor's scripted scan file through
// the same background/geometry/cluster/screen/fusion/track stages the
// live pipeline runs across goroutines, but sequentially in one
// single-sensor, single-screen pass — there is no concurrency to
// coordinate when replaying one recorded file. It returns the resulting
// touch events shaped like a recorded session, so buildChart can render
// them exactly as it would a SQLite-backed session.
func replayScript(cfg *config.Config, src io.Reader) ([]store.RecordedEvent, error) {
	if len(cfg.Sensors) == 0 {
		return nil, fmt.Errorf("touchreplay: config has no sensors")
	}
	if len(cfg.Screens) == 0 {
		return nil, fmt.Errorf("touchreplay: config has no screens")
	}
	sensorCfg := cfg.Sensors[0]
	screenCfg := cfg.Screens[0]

	ctx := context.Background()
	scanner := scan.NewMockScanner(sensorCfg.ID, src)
	if err := scanner.Open(ctx); err != nil {
		return nil, err
	}
	defer scanner.Close()

	model := background.NewModel(sensorCfg.AngleCount, sensorCfg.LearnFrames, sensorCfg.FgThreshold)
	for !model.Learned() {
		sc, err := scanner.NextScan(ctx)
		if err != nil {
			if errors.Is(err, scan.ErrScanTimeout) {
				break
			}
			return nil, fmt.Errorf("touchreplay: learn background: %w", err)
		}
		model.Learn(sc.Ranges)
	}

	clusterer := cluster.NewClusterer(sensorCfg.ClusterEps, sensorCfg.ClusterMin)
	mapper := screen.NewMapper([]screen.Rect{{
		ID: screenCfg.ID, X: screenCfg.X, Y: screenCfg.Y, W: screenCfg.W, H: screenCfg.H, Phi: screenCfg.Phi,
		Allowed: screenCfg.Allows,
	}})
	diag := screenCfg.Diagonal()
	rMerge := cfg.Params.RMerge(diag)
	tracker := track.NewTracker(track.Params{
		Beta:           cfg.Params.BetaOrDefault(),
		Gamma:          cfg.Params.GammaOrDefault(),
		RGate:          cfg.Params.RGate(diag),
		DeathThreshold: cfg.Params.DeathThresholdOrDefault(),
		BirthGrace:     cfg.Params.BirthGraceOrDefault(),
	})

	pose := geometry.Pose{
		X: sensorCfg.Pose.X, Y: sensorCfg.Pose.Y, Theta: sensorCfg.Pose.Theta,
		MountOff: sensorCfg.Pose.MountOff, AngleStep: sensorCfg.AngleStep,
	}

	var events []store.RecordedEvent
	var lastFrame time.Time

	for {
		sc, err := scanner.NextScan(ctx)
		if err != nil {
			if errors.Is(err, scan.ErrScanTimeout) {
				break
			}
			return nil, fmt.Errorf("touchreplay: read scan: %w", err)
		}

		fg, err := model.Classify(sc.Ranges)
		if err != nil {
			return nil, fmt.Errorf("touchreplay: classify: %w", err)
		}

		points := make([]cluster.FgPoint, 0, len(fg))
		for i, isForeground := range fg {
			if !isForeground {
				continue
			}
			r := sc.Ranges[i]
			if r < sensorCfg.MinRange || r > sensorCfg.MaxRange {
				continue
			}
			p := geometry.Project(pose.X, pose.Y, pose.Theta, pose.MountOff, pose.AngleStep, i, r)
			points = append(points, cluster.FgPoint{X: p.X, Y: p.Y, SensorID: sensorCfg.ID})
		}

		candidates := clusterer.Cluster(points, sensorCfg.ID, sc.Timestamp)
		merged := fusion.Merge(mapper.MapAll(candidates), rMerge)

		observations := make([]track.Observation, len(merged))
		for i, mc := range merged {
			observations[i] = track.Observation{X: mc.U, Y: mc.V}
		}

		if lastFrame.IsZero() {
			lastFrame = sc.Timestamp
		}
		dt := sc.Timestamp.Sub(lastFrame).Seconds()
		lastFrame = sc.Timestamp

		for _, ev := range tracker.Update(observations, sc.Timestamp, dt) {
			events = append(events, store.RecordedEvent{
				SessionID:  scriptSessionID,
				TrackID:    ev.TrackID,
				Kind:       string(ev.Kind),
				U:          ev.X,
				V:          ev.Y,
				VU:         ev.VX,
				VV:         ev.VY,
				ObservedAt: sc.Timestamp,
			})
		}
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("touchreplay: scripted scan file produced no touch events")
	}
	return events, nil
}
