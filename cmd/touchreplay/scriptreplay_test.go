package main

import (
	"strings"
	"testing"

	"github.com/jithumediapro/lidar-touch/internal/config"
)

func replayCfgFixture() *config.Config {
	return &config.Config{
		Sensors: []config.SensorConfig{{
			ID:          "s1",
			Kind:        config.ScannerMock,
			Pose:        config.Pose{X: 0, Y: 0, Theta: 0, MountOff: 0},
			LearnFrames: 2,
			FgThreshold: 0.2,
			ClusterEps:  0.1,
			ClusterMin:  1,
			MinRange:    0.01,
			MaxRange:    10,
			AngleStep:   0.01,
			AngleCount:  4,
		}},
		Screens: []config.ScreenRect{{
			ID: 0, X: -10, Y: -10, W: 20, H: 20,
			AllowedSensor: []string{"s1"},
		}},
	}
}

func TestReplayScriptProducesEventsFromAScriptedFile(t *testing.T) {
	cfg := replayCfgFixture()

	var b strings.Builder
	for i := 0; i < cfg.Sensors[0].LearnFrames; i++ {
		b.WriteString(`{"ranges":[5.0,5.0,5.0,5.0]}` + "\n")
	}
	// Three foreground frames with a near return at index 0, so the
	// tracker has enough consecutive matches to emit at least one event.
	for i := 0; i < 3; i++ {
		b.WriteString(`{"ranges":[1.0,5.0,5.0,5.0]}` + "\n")
	}

	events, err := replayScript(cfg, strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("replayScript() error = %v", err)
	}
	if len(events) == 0 {
		t.Fatal("replayScript() returned no events")
	}
	for _, ev := range events {
		if ev.SessionID != scriptSessionID {
			t.Errorf("event session id = %q, want %q", ev.SessionID, scriptSessionID)
		}
	}
}

func TestReplayScriptRejectsConfigWithNoSensors(t *testing.T) {
	cfg := &config.Config{Screens: []config.ScreenRect{{ID: 0, W: 1, H: 1}}}
	if _, err := replayScript(cfg, strings.NewReader("")); err == nil {
		t.Fatal("expected error for config with no sensors")
	}
}

func TestReplayScriptRejectsEmptyScript(t *testing.T) {
	cfg := replayCfgFixture()
	if _, err := replayScript(cfg, strings.NewReader("")); err == nil {
		t.Fatal("expected error when the scripted scan file produces no events")
	}
}
