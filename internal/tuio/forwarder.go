package tuio

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/monitoring"
)

// Forwarder sends already-encoded TUIO bundles to one UDP endpoint
// asynchronously, so a slow or unreachable endpoint never stalls the
// per-screen emitter loop (spec §4.8: "UDP send failures are
// non-fatal"). It mirrors the teacher's PacketForwarder: a buffered
// channel plus one goroutine owning the socket write.
type Forwarder struct {
	conn    *net.UDPConn
	channel chan []byte
	address string

	dropped int
}

// NewForwarder dials a UDP "connection" (no handshake, just a default
// destination for Write) to host:port.
func NewForwarder(host string, port int) (*Forwarder, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve tuio endpoint %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial tuio endpoint %q: %w", addr, err)
	}
	return &Forwarder{conn: conn, channel: make(chan []byte, 64), address: addr}, nil
}

// Start runs the forwarding goroutine until ctx is done.
func (f *Forwarder) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case bundle, ok := <-f.channel:
				if !ok {
					return
				}
				f.write(bundle)
			}
		}
	}()
}

func (f *Forwarder) write(bundle []byte) {
	deadline := time.Now().Add(10 * time.Millisecond)
	if err := f.conn.SetWriteDeadline(deadline); err != nil {
		monitoring.Warnf("tuio: set write deadline for %s: %v", f.address, err)
	}
	if _, err := f.conn.Write(bundle); err != nil {
		f.dropped++
		monitoring.Warnf("tuio: send to %s failed (endpoint retained): %v", f.address, err)
	}
}

// SendAsync queues bundle for delivery without blocking the caller. If
// the channel is full the bundle is dropped — freshness matters more
// than completeness for a liveness stream that repeats every frame.
func (f *Forwarder) SendAsync(bundle []byte) {
	cp := append([]byte(nil), bundle...)
	select {
	case f.channel <- cp:
	default:
		f.dropped++
	}
}

// Dropped returns the number of bundles dropped so far, for
// observability.
func (f *Forwarder) Dropped() int {
	return f.dropped
}

// Close closes the forwarding channel and the underlying socket.
func (f *Forwarder) Close() error {
	close(f.channel)
	return f.conn.Close()
}
