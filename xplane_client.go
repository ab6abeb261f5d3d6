package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrLinkUnavailable = errors.New("simulator link unavailable")

const (
	rrefRequestLen  = 413 // "RREF\0" + freq + index + 400 byte path
	drefRequestLen  = 509 // "DREF\0" + float32 + 500 byte path
	subscribeEvery  = 10 * time.Second
	readDeadline    = time.Second
	updateQueueSize = 256
)

// SimLink is the engine-facing view of the simulator connection.
type SimLink interface {
	Subscribe() error
	WriteDataref(ref string, value float64) error
	SendCommand(cmd string) error
	Updates() <-chan DatarefUpdate
}

// XPlaneClient speaks the X-Plane UDP protocol: RREF subscriptions for
// telemetry, DREF for dataref writes and CMND for commands. Subscriptions are
// re-sent periodically since X-Plane forgets them across sim restarts.
type XPlaneClient struct {
	host      string
	port      int
	localPort int
	clock     clockwork.Clock

	mu      sync.Mutex
	conn    *net.UDPConn
	updates chan DatarefUpdate
	dropped int
}

func NewXPlaneClient(host string, port, localPort int, clock clockwork.Clock) *XPlaneClient {
	return &XPlaneClient{
		host:      host,
		port:      port,
		localPort: localPort,
		clock:     clock,
		updates:   make(chan DatarefUpdate, updateQueueSize),
	}
}

func (x *XPlaneClient) Connect() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", x.host, x.port))
	if err != nil {
		return fmt.Errorf("resolve addr: %w", err)
	}

	var local *net.UDPAddr
	if x.localPort != 0 {
		local = &net.UDPAddr{Port: x.localPort}
	}
	conn, err := net.DialUDP("udp", local, addr)
	if err != nil {
		return fmt.Errorf("dial udp: %w", err)
	}
	x.conn = conn

	slog.Info("X-Plane UDP link ready", "addr", addr.String())
	return nil
}

func (x *XPlaneClient) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.conn == nil {
		return nil
	}
	// Unsubscribe by re-requesting everything at frequency zero.
	for i, d := range subscribedDatarefs {
		x.writeLocked(rrefRequest(i, 0, d.Ref))
	}
	err := x.conn.Close()
	x.conn = nil
	return err
}

func (x *XPlaneClient) Updates() <-chan DatarefUpdate { return x.updates }

// Subscribe issues RREF requests for the full dataref set. Idempotent, also
// used as the keep-alive.
func (x *XPlaneClient) Subscribe() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, d := range subscribedDatarefs {
		if err := x.writeLocked(rrefRequest(i, d.Freq, d.Ref)); err != nil {
			return fmt.Errorf("subscribe %s: %w", d.Ref, err)
		}
	}
	return nil
}

// WriteDataref sets a dataref via a DREF packet.
func (x *XPlaneClient) WriteDataref(ref string, value float64) error {
	buf := make([]byte, drefRequestLen)
	copy(buf[0:4], "DREF")
	binary.LittleEndian.PutUint32(buf[5:9], math.Float32bits(float32(value)))
	copy(buf[9:], ref)

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.writeLocked(buf)
}

// SendCommand fires an X-Plane command via a CMND packet.
func (x *XPlaneClient) SendCommand(cmd string) error {
	buf := make([]byte, 5+len(cmd))
	copy(buf[0:4], "CMND")
	copy(buf[5:], cmd)

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.writeLocked(buf)
}

func (x *XPlaneClient) writeLocked(buf []byte) error {
	if x.conn == nil {
		return ErrLinkUnavailable
	}
	if _, err := x.conn.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
	}
	return nil
}

// Run reads RREF responses until the context is cancelled, re-issuing
// subscriptions on a timer. Read deadlines are short so cancellation is
// honored within one deadline period.
func (x *XPlaneClient) Run(ctx context.Context) error {
	keepalive := x.clock.NewTicker(subscribeEvery)
	defer keepalive.Stop()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-keepalive.Chan():
			if err := x.Subscribe(); err != nil {
				slog.Warn("resubscribe failed", "error", err)
			}
		default:
		}

		x.mu.Lock()
		conn := x.conn
		x.mu.Unlock()
		if conn == nil {
			return ErrLinkUnavailable
		}

		conn.SetReadDeadline(x.clock.Now().Add(readDeadline))
		n, err := conn.Read(buf)
		if err != nil {
			continue // timeouts and ICMP refusals both self-heal
		}
		x.handlePacket(buf[:n])
	}
}

// handlePacket parses one RREF response frame: 5 header bytes followed by
// (index, float32) pairs, little-endian.
func (x *XPlaneClient) handlePacket(pkt []byte) {
	if len(pkt) < 5 || string(pkt[0:4]) != "RREF" {
		return
	}
	for off := 5; off+8 <= len(pkt); off += 8 {
		idx := int(binary.LittleEndian.Uint32(pkt[off : off+4]))
		val := math.Float32frombits(binary.LittleEndian.Uint32(pkt[off+4 : off+8]))
		if idx < 0 || idx >= len(subscribedDatarefs) {
			continue
		}
		u := DatarefUpdate{Ref: subscribedDatarefs[idx].Ref, Value: float64(val)}
		select {
		case x.updates <- u:
		default:
			x.dropped++ // engine will catch up from the next frame
		}
	}
}

func rrefRequest(index, freq int, ref string) []byte {
	buf := make([]byte, rrefRequestLen)
	copy(buf[0:4], "RREF")
	binary.LittleEndian.PutUint32(buf[5:9], uint32(freq))
	binary.LittleEndian.PutUint32(buf[9:13], uint32(index))
	copy(buf[13:], ref)
	return buf
}
