// Package tuio builds and transmits TUIO 1.1 /tuio/2Dcur cursor bundles
// over UDP (spec §4.8). No OSC or TUIO library appears anywhere in the
// retrieved reference pack, so the wire encoder here is hand-rolled —
// the same spirit as the cluster package's from-scratch DBSCAN.
package tuio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// message is one OSC message: an address pattern plus a typetagged
// argument list. TUIO never nests bundles, so this package has no
// bundle-of-bundles support.
type message struct {
	address string
	args    []any
}

// encodeMessage serializes one OSC message: address, then a
// comma-prefixed typetag string, then each argument, all individually
// padded to a 4-byte boundary per the OSC 1.0 spec.
func encodeMessage(m message) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOSCString(&buf, m.address); err != nil {
		return nil, err
	}

	typetags := make([]byte, 0, len(m.args)+1)
	typetags = append(typetags, ',')
	for _, a := range m.args {
		tag, err := oscTypeTag(a)
		if err != nil {
			return nil, err
		}
		typetags = append(typetags, tag)
	}
	if err := writeOSCString(&buf, string(typetags)); err != nil {
		return nil, err
	}

	for _, a := range m.args {
		if err := writeOSCArg(&buf, a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func oscTypeTag(a any) (byte, error) {
	switch a.(type) {
	case int32:
		return 'i', nil
	case float32:
		return 'f', nil
	case string:
		return 's', nil
	default:
		return 0, fmt.Errorf("tuio: unsupported OSC argument type %T", a)
	}
}

func writeOSCArg(buf *bytes.Buffer, a any) error {
	switch v := a.(type) {
	case int32:
		return binary.Write(buf, binary.BigEndian, v)
	case float32:
		return binary.Write(buf, binary.BigEndian, v)
	case string:
		return writeOSCString(buf, v)
	default:
		return fmt.Errorf("tuio: unsupported OSC argument type %T", a)
	}
}

// writeOSCString writes s as a NUL-terminated string, zero-padded so the
// total length is a multiple of 4 bytes.
func writeOSCString(buf *bytes.Buffer, s string) error {
	buf.WriteString(s)
	buf.WriteByte(0)
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	return nil
}

// encodeBundle wraps one or more already-encoded OSC messages in an OSC
// bundle: "#bundle", an 8-byte NTP-ish timetag (TUIO ignores it; we send
// the immediate-execution tag 1, per OSC convention), then each element
// prefixed by its length.
func encodeBundle(elements [][]byte) []byte {
	var buf bytes.Buffer
	writeOSCString(&buf, "#bundle")
	binary.Write(&buf, binary.BigEndian, uint64(1)) // immediate-execution timetag

	for _, el := range elements {
		binary.Write(&buf, binary.BigEndian, int32(len(el)))
		buf.Write(el)
	}
	return buf.Bytes()
}
