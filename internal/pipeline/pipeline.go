// Package pipeline wires the Scan Source, Background Model, Geometry,
// Cluster Engine, Screen Mapper, Fusion, Tracker, and TUIO Emitter
// components named in spec.md §2 into the running system: one worker
// per configured sensor feeding bounded per-screen queues, one worker
// per configured screen draining them, and graceful shutdown across
// all of it (spec §5, §7).
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/config"
	"github.com/jithumediapro/lidar-touch/internal/monitoring"
	"github.com/jithumediapro/lidar-touch/internal/scan"
	"github.com/jithumediapro/lidar-touch/internal/screen"
	"github.com/jithumediapro/lidar-touch/internal/store"
	"github.com/jithumediapro/lidar-touch/internal/track"
	"github.com/jithumediapro/lidar-touch/internal/tuio"
)

// ScannerFactory opens the Scanner a sensor's configuration names.
// Pulled out as a function var, following the teacher's
// PCAPReaderFactory pattern, so tests can substitute scripted scanners
// without touching real hardware or capture files.
type ScannerFactory func(cfg config.SensorConfig) (scan.Scanner, error)

// DefaultScannerFactory builds the real Scanner for a sensor's
// configured kind: a serial port for hardware, a pcap replay for
// recorded captures. It has no mock case — tests wire mock sensors via
// their own ScannerFactory, and touchreplay's script mode builds a
// MockScanner directly without a ScannerFactory.
func DefaultScannerFactory(cfg config.SensorConfig) (scan.Scanner, error) {
	switch cfg.Kind {
	case config.ScannerHardwareSerial:
		return scan.NewSerialScanner(cfg.ID, cfg.URI, 115200), nil
	case config.ScannerPCAPReplay:
		return scan.NewPCAPScanner(cfg.ID, cfg.URI, 5000, 1.0, scan.GopacketReaderFactory{}), nil
	default:
		return nil, fmt.Errorf("pipeline: sensor %q: no default scanner for kind %q", cfg.ID, cfg.Kind)
	}
}

// Pipeline owns every sensor and screen worker and the TUIO emitter
// that fans their output out over UDP.
type Pipeline struct {
	cfg      *config.Config
	scanners ScannerFactory
	store    *store.Store

	emitter        *tuio.Emitter
	sensorWorkers  []*sensorWorker
	screenWorkers  []*screenWorker
	forwarders     []*tuio.Forwarder
	recorders      []*store.Recorder
	staleSensors   map[string]bool
	staleSensorsMu sync.Mutex
}

// New builds a Pipeline from a validated config. appName/host identify
// this process in outgoing TUIO source messages. st may be nil to
// disable recording.
func New(cfg *config.Config, scanners ScannerFactory, appName, host string, st *store.Store) (*Pipeline, error) {
	p := &Pipeline{
		cfg:          cfg,
		scanners:     scanners,
		store:        st,
		emitter:      tuio.NewEmitter(appName, host),
		staleSensors: make(map[string]bool),
	}

	screenRects := make([]screen.Rect, len(cfg.Screens))
	for i, sc := range cfg.Screens {
		sc := sc
		screenRects[i] = screen.Rect{
			ID: sc.ID, X: sc.X, Y: sc.Y, W: sc.W, H: sc.H, Phi: sc.Phi,
			Allowed: sc.Allows,
		}
	}
	mapper := screen.NewMapper(screenRects)

	queuesByScreen := make(map[int][]*dropOldestQueue[screen.MappedCandidate])

	// One bounded queue per (sensor, screen) pair the sensor is allowed
	// to contribute to, so a slow screen never backs up another.
	perSensorOutputs := make(map[string]map[int]*dropOldestQueue[screen.MappedCandidate], len(cfg.Sensors))
	for _, sensorCfg := range cfg.Sensors {
		outputs := make(map[int]*dropOldestQueue[screen.MappedCandidate])
		for _, sc := range cfg.Screens {
			if !sc.Allows(sensorCfg.ID) {
				continue
			}
			q := newDropOldestQueue[screen.MappedCandidate]()
			outputs[sc.ID] = q
			queuesByScreen[sc.ID] = append(queuesByScreen[sc.ID], q)
		}
		perSensorOutputs[sensorCfg.ID] = outputs
	}

	for _, endpointCfg := range cfg.Endpoints {
		fwd, err := tuio.NewForwarder(endpointCfg.Host, endpointCfg.Port)
		if err != nil {
			return nil, fmt.Errorf("pipeline: endpoint %s:%d: %w", endpointCfg.Host, endpointCfg.Port, err)
		}
		p.forwarders = append(p.forwarders, fwd)
		p.emitter.AddEndpoint(endpointCfg.ScreenID, fwd)
	}

	for _, sensorCfg := range cfg.Sensors {
		scanner, err := scanners(sensorCfg)
		if err != nil {
			return nil, err
		}
		w := newSensorWorker(sensorCfg, scanner, mapper, perSensorOutputs[sensorCfg.ID], p.markStale)
		p.sensorWorkers = append(p.sensorWorkers, w)
	}

	for _, screenCfg := range cfg.Screens {
		diag := screenCfg.Diagonal()
		params := track.Params{
			Beta:           cfg.Params.BetaOrDefault(),
			Gamma:          cfg.Params.GammaOrDefault(),
			RGate:          cfg.Params.RGate(diag),
			DeathThreshold: cfg.Params.DeathThresholdOrDefault(),
			BirthGrace:     cfg.Params.BirthGraceOrDefault(),
		}
		var rec *store.Recorder
		if st != nil {
			var err error
			rec, err = store.NewRecorder(st, screenCfg.ID, time.Now())
			if err != nil {
				return nil, fmt.Errorf("pipeline: start recording session for screen %d: %w", screenCfg.ID, err)
			}
			p.recorders = append(p.recorders, rec)
		}

		w := newScreenWorker(screenCfg.ID, cfg.Params.RMerge(diag), queuesByScreen[screenCfg.ID], params, p.emitter, rec)
		p.screenWorkers = append(p.screenWorkers, w)
	}

	return p, nil
}

func (p *Pipeline) markStale(sensorID string, stale bool) {
	p.staleSensorsMu.Lock()
	defer p.staleSensorsMu.Unlock()
	if stale {
		monitoring.Warnf("sensor %q has gone stale (no scans for >1s)", sensorID)
	} else {
		monitoring.Infof("sensor %q recovered", sensorID)
	}
	p.staleSensors[sensorID] = stale
}

// Run starts every sensor worker, screen worker, forwarder, and
// (if enabled) recorder, and blocks until ctx is canceled. On
// cancellation every goroutine drains and exits before Run returns
// (spec §5, "Cancellation").
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, fwd := range p.forwarders {
		fwd.Start(ctx)
	}

	for _, w := range p.sensorWorkers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				monitoring.Errorf("sensor %q: %v", w.cfg.ID, err)
			}
		}()
	}

	for _, w := range p.screenWorkers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	for _, rec := range p.recorders {
		rec := rec
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.emitter.Run(ctx, framePeriod)
	}()

	<-ctx.Done()
	wg.Wait()

	for _, fwd := range p.forwarders {
		fwd.Close()
	}
}
