package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/background"
	"github.com/jithumediapro/lidar-touch/internal/cluster"
	"github.com/jithumediapro/lidar-touch/internal/config"
	"github.com/jithumediapro/lidar-touch/internal/geometry"
	"github.com/jithumediapro/lidar-touch/internal/monitoring"
	"github.com/jithumediapro/lidar-touch/internal/scan"
	"github.com/jithumediapro/lidar-touch/internal/screen"
	"github.com/jithumediapro/lidar-touch/internal/timeutil"
)

// staleAfter is how long a sensor may sit in continuous ScanTimeout
// before the pipeline marks it stale (spec §7).
const staleAfter = time.Second

// sensorWorker runs one sensor's stages 4.1-4.5 sequentially in its own
// goroutine: scan, background subtraction, geometry projection,
// clustering, and screen mapping. No parallelism within a sensor —
// these stages run in well under the ~25ms scan interval at 40Hz (spec
// §5).
type sensorWorker struct {
	cfg     config.SensorConfig
	scanner scan.Scanner
	model   *background.Model
	cluster *cluster.Clusterer
	mapper  *screen.Mapper

	outputs map[int]*dropOldestQueue[screen.MappedCandidate]

	onStale func(sensorID string, stale bool)
	clock   timeutil.Clock
}

func newSensorWorker(cfg config.SensorConfig, scanner scan.Scanner, mapper *screen.Mapper, outputs map[int]*dropOldestQueue[screen.MappedCandidate], onStale func(string, bool)) *sensorWorker {
	return &sensorWorker{
		cfg:     cfg,
		scanner: scan.NewGuard(scanner),
		model:   background.NewModel(cfg.AngleCount, cfg.LearnFrames, cfg.FgThreshold),
		cluster: cluster.NewClusterer(cfg.ClusterEps, cfg.ClusterMin),
		mapper:  mapper,
		outputs: outputs,
		onStale: onStale,
		clock:   timeutil.RealClock{},
	}
}

// Run opens the scanner, learns the background, then processes scans
// until ctx is done. It returns background.ErrInsufficientBackground if
// learning never accumulates enough angles — a fatal condition for this
// sensor (spec §4.2, §7).
func (w *sensorWorker) Run(ctx context.Context) error {
	if err := w.scanner.Open(ctx); err != nil {
		return err
	}
	defer w.scanner.Close()

	if err := w.learnBackground(ctx); err != nil {
		return err
	}

	var timeoutSince time.Time
	stale := false

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sc, err := w.scanner.NextScan(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, scan.ErrScanTimeout) {
				if timeoutSince.IsZero() {
					timeoutSince = w.clock.Now()
				} else if !stale && w.clock.Since(timeoutSince) >= staleAfter {
					stale = true
					w.setStale(true)
				}
				continue
			}
			monitoring.Errorf("sensor %s: scan error: %v", w.cfg.ID, err)
			continue
		}

		timeoutSince = time.Time{}
		if stale {
			stale = false
			w.setStale(false)
		}

		w.process(sc)
	}
}

func (w *sensorWorker) setStale(stale bool) {
	if w.onStale != nil {
		w.onStale(w.cfg.ID, stale)
	}
}

func (w *sensorWorker) learnBackground(ctx context.Context) error {
	for !w.model.Learned() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		sc, err := w.scanner.NextScan(ctx)
		if err != nil {
			if errors.Is(err, scan.ErrScanTimeout) {
				continue
			}
			return err
		}
		w.model.Learn(sc.Ranges)
	}
	if populatedFraction(w.model.Floor()) < 0.5 {
		return background.ErrInsufficientBackground
	}
	return nil
}

// populatedFraction reports how much of a learned floor consists of
// finite (non-infinite) values, the "at least 50% of angles populated"
// check spec.md §4.2 requires before trusting the background model.
func populatedFraction(floor []float64) float64 {
	if len(floor) == 0 {
		return 0
	}
	n := 0
	for _, r := range floor {
		if r < infRangeSentinel {
			n++
		}
	}
	return float64(n) / float64(len(floor))
}

// infRangeSentinel bounds "a real range was ever observed at this
// angle" without importing math.IsInf at every call site.
const infRangeSentinel = 1e300

func (w *sensorWorker) process(sc scan.Scan) {
	fg, err := w.model.Classify(sc.Ranges)
	if err != nil {
		monitoring.Warnf("sensor %s: classify: %v", w.cfg.ID, err)
		return
	}

	pose := geometry.Pose{
		X: w.cfg.Pose.X, Y: w.cfg.Pose.Y, Theta: w.cfg.Pose.Theta,
		MountOff: w.cfg.Pose.MountOff, AngleStep: w.cfg.AngleStep,
	}

	points := make([]cluster.FgPoint, 0, len(fg))
	for i, isForeground := range fg {
		if !isForeground {
			continue
		}
		r := sc.Ranges[i]
		if r < w.cfg.MinRange || r > w.cfg.MaxRange {
			continue
		}
		p := geometry.Project(pose.X, pose.Y, pose.Theta, pose.MountOff, pose.AngleStep, i, r)
		points = append(points, cluster.FgPoint{X: p.X, Y: p.Y, SensorID: w.cfg.ID})
	}

	candidates := w.cluster.Cluster(points, w.cfg.ID, sc.Timestamp)
	mapped := w.mapper.MapAll(candidates)

	for _, mc := range mapped {
		q, ok := w.outputs[mc.ScreenID]
		if !ok {
			continue
		}
		q.Push(mc)
	}
}
