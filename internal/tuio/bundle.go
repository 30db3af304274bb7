package tuio

import "fmt"

// maxDatagramSize is the maximum UDP payload this package will emit in
// one bundle before splitting set messages across multiple bundles
// (spec §6).
const maxDatagramSize = 1472

// profile is the OSC address prefix for the 2D cursor profile.
const profile = "/tuio/2Dcur"

// Cursor is one alive, confirmed touch as seen by the TUIO Emitter for a
// single screen/endpoint.
type Cursor struct {
	SessionID int32
	U, V      float32
	DU, DV    float32 // velocity, units/sec
}

// Frame is everything the Builder needs to assemble one screen's bundle
// for one frame.
type Frame struct {
	Source    string  // "<app_name>@<host>"
	Alive     []int32 // all currently alive confirmed session ids, any order
	Cursors   []Cursor
	SeqNumber int32
	// SourceChanged forces a source message even if Source is unchanged
	// from the previous frame, used the one time at startup.
	SourceChanged bool
}

// Builder assembles TUIO 1.1 /tuio/2Dcur bundles, tracking whether the
// alive set has changed since the last frame so it only repeats the
// source message when required (spec §4.8 rule 1).
type Builder struct {
	lastSource string
	haveSource bool
	lastAlive  map[int32]bool
}

// NewBuilder creates a Builder with no prior frame state.
func NewBuilder() *Builder {
	return &Builder{lastAlive: make(map[int32]bool)}
}

// Build returns the OSC bundle(s) for one frame, already split to fit
// within maxDatagramSize. Most frames produce exactly one bundle; a
// frame with enough live cursors to overflow the datagram limit splits
// its set messages across multiple bundles sharing the same fseq value,
// with alive repeated at the head of every split and fseq present only in
// the last (spec §6).
func (b *Builder) Build(f Frame) ([][]byte, error) {
	aliveSet := make(map[int32]bool, len(f.Alive))
	for _, id := range f.Alive {
		aliveSet[id] = true
	}
	aliveChanged := f.SourceChanged || !sameSet(aliveSet, b.lastAlive)

	sourceMsg, err := encodeMessage(message{address: profile, args: []any{"source", f.Source}})
	if err != nil {
		return nil, err
	}
	aliveMsg, err := encodeMessage(message{address: profile, args: aliveArgs(f.Alive)})
	if err != nil {
		return nil, err
	}

	setMsgs := make([][]byte, len(f.Cursors))
	for i, c := range f.Cursors {
		m, err := encodeMessage(message{address: profile, args: setArgs(c)})
		if err != nil {
			return nil, err
		}
		setMsgs[i] = m
	}

	fseqMsg, err := encodeMessage(message{address: profile, args: []any{"fseq", f.SeqNumber}})
	if err != nil {
		return nil, err
	}

	groups := splitSetMessages(setMsgs, sourceMsg, aliveMsg, fseqMsg, aliveChanged)

	b.lastSource = f.Source
	b.haveSource = true
	b.lastAlive = aliveSet

	return groups, nil
}

func aliveArgs(ids []int32) []any {
	args := make([]any, 0, len(ids)+1)
	args = append(args, "alive")
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func setArgs(c Cursor) []any {
	return []any{"set", c.SessionID, c.U, c.V, c.DU, c.DV, float32(0.0)}
}

func sameSet(a, b map[int32]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// splitSetMessages packs source/alive/set.../fseq into one or more
// bundles under maxDatagramSize, in TUIO's required order: a source
// message only when includeSource is true, then alive, then as many set
// messages fit, then fseq in the final bundle only.
func splitSetMessages(setMsgs [][]byte, sourceMsg, aliveMsg, fseqMsg []byte, includeSource bool) [][]byte {
	var bundles [][]byte
	var current [][]byte
	if includeSource {
		current = append(current, sourceMsg)
	}
	current = append(current, aliveMsg)
	baseLen := bundleOverheadLen(current)

	flush := func(withFseq bool) {
		elements := append([][]byte(nil), current...)
		if withFseq {
			elements = append(elements, fseqMsg)
		}
		bundles = append(bundles, encodeBundle(elements))
	}

	currLen := baseLen
	for _, set := range setMsgs {
		setLen := 4 + len(set)
		if currLen+setLen+4+len(fseqMsg) > maxDatagramSize && len(current) > 1 {
			flush(false)
			current = [][]byte{aliveMsg}
			currLen = bundleOverheadLen(current)
		}
		current = append(current, set)
		currLen += setLen
	}
	flush(true)
	return bundles
}

// bundleOverheadLen estimates a bundle's encoded size given only its
// non-set elements, for the splitting threshold check.
func bundleOverheadLen(elements [][]byte) int {
	n := 16 // "#bundle\0" + 8-byte timetag
	for _, e := range elements {
		n += 4 + len(e)
	}
	return n
}

// Heartbeat returns a silent frame for when no touches changed this
// tick but the heartbeat interval (spec §4.8: at least once per second)
// has elapsed — same alive set, no new source.
func (b *Builder) Heartbeat(seq int32, alive []int32) Frame {
	return Frame{Source: b.lastSource, Alive: alive, SeqNumber: seq}
}

// String is a debug helper.
func (f Frame) String() string {
	return fmt.Sprintf("Frame{alive=%v, cursors=%d, fseq=%d}", f.Alive, len(f.Cursors), f.SeqNumber)
}
