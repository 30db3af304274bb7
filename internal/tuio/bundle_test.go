package tuio

import (
	"bytes"
	"testing"
)

func TestBuildFirstFrameIncludesSource(t *testing.T) {
	b := NewBuilder()
	bundles, err := b.Build(Frame{
		Source:        "touchd@host",
		Alive:         []int32{1},
		Cursors:       []Cursor{{SessionID: 1, U: 0.5, V: 0.5}},
		SeqNumber:     0,
		SourceChanged: true,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("Build() returned %d bundles, want 1", len(bundles))
	}
	if !bytes.Contains(bundles[0], []byte("source")) {
		t.Error("first frame's bundle does not contain a source message")
	}
	if !bytes.Contains(bundles[0], []byte("fseq")) {
		t.Error("bundle does not contain an fseq message")
	}
}

func TestBuildOmitsSourceWhenAliveSetUnchanged(t *testing.T) {
	b := NewBuilder()
	frame := Frame{Source: "touchd@host", Alive: []int32{1}, SourceChanged: true}
	if _, err := b.Build(frame); err != nil {
		t.Fatalf("Build() #1 error = %v", err)
	}

	frame.SourceChanged = false
	frame.SeqNumber = 1
	bundles, err := b.Build(frame)
	if err != nil {
		t.Fatalf("Build() #2 error = %v", err)
	}
	if bytes.Contains(bundles[0], []byte("source")) {
		t.Error("second frame with unchanged alive set should not repeat source")
	}
}

func TestBuildIncludesSourceWhenAliveSetChanges(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(Frame{Source: "touchd@host", Alive: []int32{1}, SourceChanged: true}); err != nil {
		t.Fatalf("Build() #1 error = %v", err)
	}

	bundles, err := b.Build(Frame{Source: "touchd@host", Alive: []int32{1, 2}, SeqNumber: 1})
	if err != nil {
		t.Fatalf("Build() #2 error = %v", err)
	}
	if !bytes.Contains(bundles[0], []byte("source")) {
		t.Error("frame with a changed alive set should repeat source")
	}
}

func TestBuildSplitsOversizedFrameAcrossBundles(t *testing.T) {
	b := NewBuilder()
	cursors := make([]Cursor, 200)
	alive := make([]int32, 200)
	for i := range cursors {
		cursors[i] = Cursor{SessionID: int32(i), U: 0.1, V: 0.2, DU: 0.01, DV: -0.01}
		alive[i] = int32(i)
	}

	bundles, err := b.Build(Frame{Source: "touchd@host", Alive: alive, Cursors: cursors, SeqNumber: 5, SourceChanged: true})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(bundles) < 2 {
		t.Fatalf("Build() with 200 cursors returned %d bundles, want >1 (should split)", len(bundles))
	}
	for i, bun := range bundles {
		if len(bun) > maxDatagramSize {
			t.Errorf("bundle %d length = %d, exceeds maxDatagramSize %d", i, len(bun), maxDatagramSize)
		}
	}
	if !bytes.Contains(bundles[len(bundles)-1], []byte("fseq")) {
		t.Error("fseq must appear in the final split bundle")
	}
	for _, bun := range bundles[:len(bundles)-1] {
		if bytes.Contains(bun, []byte("fseq")) {
			t.Error("fseq must not appear before the final split bundle")
		}
	}
}

func TestHeartbeatReusesLastSource(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(Frame{Source: "touchd@host", SourceChanged: true}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	hb := b.Heartbeat(3, []int32{1})
	if hb.Source != "touchd@host" {
		t.Errorf("Heartbeat() source = %q, want \"touchd@host\"", hb.Source)
	}
	if hb.SeqNumber != 3 {
		t.Errorf("Heartbeat() seq = %d, want 3", hb.SeqNumber)
	}
}
