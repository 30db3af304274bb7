// Package config loads and validates the immutable configuration snapshot
// consumed by the touch-tracking pipeline: sensors, screens, TUIO endpoints,
// and the global tuning parameters shared by fusion and tracking.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/fsutil"
)

// ErrConfigInvalid is wrapped by every validation failure returned from
// Validate or Load. The pipeline must refuse to start when this is
// returned (spec §7, ConfigInvalid).
var ErrConfigInvalid = errors.New("config invalid")

// ScannerKind is a closed tagged variant identifying how a sensor's scan
// source is opened.
type ScannerKind string

const (
	ScannerHardwareSerial ScannerKind = "serial"
	ScannerPCAPReplay     ScannerKind = "pcap"
	ScannerMock           ScannerKind = "mock"
)

// Pose is the sensor's position and heading in world units (meters, radians),
// plus a mounting angular offset applied before projection (spec §3, §4.3).
type Pose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Theta    float64 `json:"theta"`
	MountOff float64 `json:"mount_offset"`
}

// SensorConfig describes one scanner, its pose, and its per-sensor tuning
// (spec §3).
type SensorConfig struct {
	ID          string      `json:"id"`
	Kind        ScannerKind `json:"kind"`
	URI         string      `json:"uri"` // serial device path or pcap file, per Kind
	Pose        Pose        `json:"pose"`
	LearnFrames int         `json:"learn_frames"`  // W
	FgThreshold float64     `json:"fg_threshold"`  // t, meters
	ClusterEps  float64     `json:"cluster_eps"`   // epsilon, meters
	ClusterMin  int         `json:"cluster_min"`   // minPts
	MinRange    float64     `json:"min_range"`     // meters
	MaxRange    float64     `json:"max_range"`     // meters
	AngleStep   float64     `json:"angle_step"`    // radians between samples (delta)
	AngleCount  int         `json:"angle_count"`   // N, samples per scan
}

// ScreenRect is an axis-aligned-in-local-frame rectangle in the world frame,
// plus the set of sensors allowed to contribute to it (spec §3).
type ScreenRect struct {
	ID            int      `json:"id"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	W             float64  `json:"w"`
	H             float64  `json:"h"`
	Phi           float64  `json:"phi"` // rotation in the world frame, radians
	AllowedSensor []string `json:"allowed_sensors"`
}

// Allows reports whether sensorID is permitted to contribute candidates to
// this screen.
func (s ScreenRect) Allows(sensorID string) bool {
	for _, id := range s.AllowedSensor {
		if id == sensorID {
			return true
		}
	}
	return false
}

// Diagonal returns the rectangle's diagonal length in meters, used to scale
// r_merge and r_gate defaults relative to screen size (spec §4.6, §4.7).
func (s ScreenRect) Diagonal() float64 {
	return math.Hypot(s.W, s.H)
}

// Endpoint is one TUIO fan-out target: (host, port, screen id) (spec §6).
type Endpoint struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	ScreenID int    `json:"screen_id"`
}

// GlobalParams holds the tunables shared by fusion, tracking, and the TUIO
// emitter. Fields are optional pointers, following the teacher's tuning-file
// convention: absent fields fall back to the defaults named in spec.md.
type GlobalParams struct {
	RMergeFraction    *float64 `json:"r_merge_fraction,omitempty"`    // of screen diagonal, default 0.02
	RGateFraction     *float64 `json:"r_gate_fraction,omitempty"`     // of screen diagonal, default 0.08
	Beta              *float64 `json:"beta,omitempty"`                // position EMA factor, default 0.5
	Gamma             *float64 `json:"gamma,omitempty"`               // velocity EMA factor, default 0.3
	DeathThreshold    *int     `json:"death_threshold,omitempty"`     // default 3
	BirthGrace        *int     `json:"birth_grace,omitempty"`         // default 2
	HeartbeatInterval *string  `json:"heartbeat_interval,omitempty"`  // duration string, default "1s"; the TUIO emitter does not read it and always uses a fixed 1s heartbeat
	AppName           *string  `json:"app_name,omitempty"`            // TUIO source app name, default "lidar-touch"
}

func (p GlobalParams) RMerge(diag float64) float64 {
	if p.RMergeFraction == nil {
		return 0.02 * diag
	}
	return *p.RMergeFraction * diag
}

func (p GlobalParams) RGate(diag float64) float64 {
	if p.RGateFraction == nil {
		return 0.08 * diag
	}
	return *p.RGateFraction * diag
}

func (p GlobalParams) BetaOrDefault() float64 {
	if p.Beta == nil {
		return 0.5
	}
	return *p.Beta
}

func (p GlobalParams) GammaOrDefault() float64 {
	if p.Gamma == nil {
		return 0.3
	}
	return *p.Gamma
}

func (p GlobalParams) DeathThresholdOrDefault() int {
	if p.DeathThreshold == nil {
		return 3
	}
	return *p.DeathThreshold
}

func (p GlobalParams) BirthGraceOrDefault() int {
	if p.BirthGrace == nil {
		return 2
	}
	return *p.BirthGrace
}

func (p GlobalParams) HeartbeatIntervalOrDefault() time.Duration {
	if p.HeartbeatInterval == nil || *p.HeartbeatInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*p.HeartbeatInterval)
	if err != nil {
		return time.Second
	}
	return d
}

func (p GlobalParams) AppNameOrDefault() string {
	if p.AppName == nil || *p.AppName == "" {
		return "lidar-touch"
	}
	return *p.AppName
}

// Config is the validated, immutable snapshot consumed by the pipeline
// (spec §6). Reconfiguration replaces the snapshot wholesale at a frame
// boundary; nothing in this package or its consumers mutates a Config
// after Validate succeeds.
type Config struct {
	Sensors   []SensorConfig `json:"sensors"`
	Screens   []ScreenRect   `json:"screens"`
	Endpoints []Endpoint     `json:"endpoints"`
	Params    GlobalParams   `json:"params"`
}

// Load reads and validates a Config from a JSON file on disk.
func Load(path string) (*Config, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS reads and validates a Config through fsys instead of the real
// filesystem, so tests can supply an fsutil.MemoryFileSystem in place of
// actual config files on disk.
func LoadFS(fsys fsutil.FileSystem, path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q", ErrConfigInvalid, ext)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %v", ErrConfigInvalid, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config JSON: %v", ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the configuration is internally consistent. It
// returns an error wrapping ErrConfigInvalid on any failure, per spec §7:
// "ConfigInvalid — fatal at startup; the pipeline refuses to initialize."
func (c *Config) Validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("%w: at least one sensor is required", ErrConfigInvalid)
	}
	seenSensor := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.ID == "" {
			return fmt.Errorf("%w: sensor[%d] has no id", ErrConfigInvalid, i)
		}
		if seenSensor[s.ID] {
			return fmt.Errorf("%w: duplicate sensor id %q", ErrConfigInvalid, s.ID)
		}
		seenSensor[s.ID] = true

		switch s.Kind {
		case ScannerHardwareSerial, ScannerPCAPReplay, ScannerMock:
		default:
			return fmt.Errorf("%w: sensor %q has unknown kind %q", ErrConfigInvalid, s.ID, s.Kind)
		}
		if s.Kind != ScannerMock && s.URI == "" {
			return fmt.Errorf("%w: sensor %q requires a uri for kind %q", ErrConfigInvalid, s.ID, s.Kind)
		}
		if s.AngleCount <= 0 {
			return fmt.Errorf("%w: sensor %q angle_count must be positive", ErrConfigInvalid, s.ID)
		}
		if s.AngleStep <= 0 {
			return fmt.Errorf("%w: sensor %q angle_step must be positive", ErrConfigInvalid, s.ID)
		}
		if s.LearnFrames <= 0 {
			return fmt.Errorf("%w: sensor %q learn_frames must be positive", ErrConfigInvalid, s.ID)
		}
		if s.FgThreshold <= 0 {
			return fmt.Errorf("%w: sensor %q fg_threshold must be positive", ErrConfigInvalid, s.ID)
		}
		if s.ClusterEps <= 0 {
			return fmt.Errorf("%w: sensor %q cluster_eps must be positive", ErrConfigInvalid, s.ID)
		}
		if s.ClusterMin <= 0 {
			return fmt.Errorf("%w: sensor %q cluster_min must be positive", ErrConfigInvalid, s.ID)
		}
		if s.MinRange < 0 || s.MaxRange <= s.MinRange {
			return fmt.Errorf("%w: sensor %q has invalid min/max range [%f, %f]", ErrConfigInvalid, s.ID, s.MinRange, s.MaxRange)
		}
	}

	if len(c.Screens) == 0 {
		return fmt.Errorf("%w: at least one screen is required", ErrConfigInvalid)
	}
	seenScreen := make(map[int]bool, len(c.Screens))
	for _, sc := range c.Screens {
		if seenScreen[sc.ID] {
			return fmt.Errorf("%w: duplicate screen id %d", ErrConfigInvalid, sc.ID)
		}
		seenScreen[sc.ID] = true
		if sc.W <= 0 || sc.H <= 0 {
			return fmt.Errorf("%w: screen %d has non-positive dimensions", ErrConfigInvalid, sc.ID)
		}
		for _, sid := range sc.AllowedSensor {
			if !seenSensor[sid] {
				return fmt.Errorf("%w: screen %d references unknown sensor %q", ErrConfigInvalid, sc.ID, sid)
			}
		}
	}

	for i, e := range c.Endpoints {
		if e.Host == "" {
			return fmt.Errorf("%w: endpoint[%d] has no host", ErrConfigInvalid, i)
		}
		if e.Port <= 0 || e.Port > 65535 {
			return fmt.Errorf("%w: endpoint[%d] has invalid port %d", ErrConfigInvalid, i, e.Port)
		}
		if !seenScreen[e.ScreenID] {
			return fmt.Errorf("%w: endpoint[%d] references unknown screen %d", ErrConfigInvalid, i, e.ScreenID)
		}
	}

	if c.Params.Beta != nil && (*c.Params.Beta <= 0 || *c.Params.Beta > 1) {
		return fmt.Errorf("%w: params.beta must be in (0, 1]", ErrConfigInvalid)
	}
	if c.Params.Gamma != nil && (*c.Params.Gamma <= 0 || *c.Params.Gamma > 1) {
		return fmt.Errorf("%w: params.gamma must be in (0, 1]", ErrConfigInvalid)
	}
	if c.Params.DeathThreshold != nil && *c.Params.DeathThreshold < 1 {
		return fmt.Errorf("%w: params.death_threshold must be >= 1", ErrConfigInvalid)
	}
	if c.Params.BirthGrace != nil && *c.Params.BirthGrace < 0 {
		return fmt.Errorf("%w: params.birth_grace must be >= 0", ErrConfigInvalid)
	}

	return nil
}

// ScreenByID returns the screen with the given id, or false if none match.
func (c *Config) ScreenByID(id int) (ScreenRect, bool) {
	for _, s := range c.Screens {
		if s.ID == id {
			return s, true
		}
	}
	return ScreenRect{}, false
}

// EndpointsForScreen returns the endpoints subscribed to the given screen.
func (c *Config) EndpointsForScreen(screenID int) []Endpoint {
	var out []Endpoint
	for _, e := range c.Endpoints {
		if e.ScreenID == screenID {
			out = append(out, e)
		}
	}
	return out
}
