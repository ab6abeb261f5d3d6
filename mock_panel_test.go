package main

import (
	"sync"
	"time"
)

// MockPanelTransport implements PanelTransport for use in tests. Input
// reports are fed through a channel; written reports are recorded. Errors can
// be toggled dynamically to exercise disconnect handling.
type MockPanelTransport struct {
	mu       sync.Mutex
	reports  chan []byte
	written  [][]byte
	readErr  error
	writeErr error
	units    DeviceUnits
	closed   bool
}

func NewMockPanelTransport(units DeviceUnits) *MockPanelTransport {
	return &MockPanelTransport{
		reports: make(chan []byte, 16),
		units:   units,
	}
}

func (m *MockPanelTransport) ReadReport(timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	err := m.readErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case r := <-m.reports:
		return r, nil
	case <-time.After(timeout):
		return nil, ErrReadTimeout
	}
}

func (m *MockPanelTransport) WriteReport(report []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := make([]byte, len(report))
	copy(cp, report)
	m.written = append(m.written, cp)
	return nil
}

func (m *MockPanelTransport) Units() DeviceUnits { return m.units }

func (m *MockPanelTransport) Name() string { return "test panel" }

func (m *MockPanelTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPanelTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

func (m *MockPanelTransport) PushReport(report []byte) {
	m.reports <- report
}

func (m *MockPanelTransport) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

func (m *MockPanelTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// inputReport builds a valid 41-byte input report with the given buttons
// held, by bit index (FCU 0..31, EFIS-R 32..63).
func inputReport(pressed ...int) []byte {
	r := make([]byte, inputReportLen)
	r[0] = inputReportID
	for _, bit := range pressed {
		if bit < 32 {
			r[1+bit/8] |= 1 << uint(bit%8)
		} else {
			r[9+(bit-32)/8] |= 1 << uint(bit%8)
		}
	}
	return r
}

type datarefWrite struct {
	Ref   string
	Value float64
}

// MockSimLink implements SimLink, recording outgoing traffic and exposing a
// channel tests can feed updates through.
type MockSimLink struct {
	mu         sync.Mutex
	updates    chan DatarefUpdate
	commands   []string
	writes     []datarefWrite
	subscribes int
	err        error
}

func NewMockSimLink() *MockSimLink {
	return &MockSimLink{updates: make(chan DatarefUpdate, 64)}
}

func (m *MockSimLink) Subscribe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribes++
	return m.err
}

func (m *MockSimLink) WriteDataref(ref string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, datarefWrite{Ref: ref, Value: value})
	return nil
}

func (m *MockSimLink) SendCommand(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.commands = append(m.commands, cmd)
	return nil
}

func (m *MockSimLink) Updates() <-chan DatarefUpdate { return m.updates }

func (m *MockSimLink) PushUpdate(ref string, value float64) {
	m.updates <- DatarefUpdate{Ref: ref, Value: value}
}

func (m *MockSimLink) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockSimLink) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}

func (m *MockSimLink) Writes() []datarefWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]datarefWrite, len(m.writes))
	copy(out, m.writes)
	return out
}
