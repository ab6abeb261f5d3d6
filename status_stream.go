package main

import "sync"

// BridgeState is the sync engine's connection state machine.
type BridgeState int

const (
	StateDeviceDisconnected BridgeState = iota
	StateSimDisconnected
	StateBridging
	StateShuttingDown
)

func (s BridgeState) String() string {
	switch s {
	case StateDeviceDisconnected:
		return "device disconnected"
	case StateSimDisconnected:
		return "simulator disconnected"
	case StateBridging:
		return "bridging"
	case StateShuttingDown:
		return "shutting down"
	}
	return "unknown"
}

// StatusEvent is pushed to presentation subscribers: a state change, a fresh
// panel image, or a diagnostic line. Image is nil unless the event carries
// one.
type StatusEvent struct {
	State   BridgeState
	Image   *PanelOutputImage
	Message string
}

// StatusStream is the one-way surface a GUI or tray layer can observe, plus
// the narrow control inlet (reconnect, shutdown). A slow subscriber drops
// events rather than stalling the engine.
type StatusStream struct {
	mu   sync.Mutex
	subs map[chan StatusEvent]struct{}

	reconnect chan struct{}
	shutdown  chan struct{}
	stopOnce  sync.Once
}

func NewStatusStream() *StatusStream {
	return &StatusStream{
		subs:      make(map[chan StatusEvent]struct{}),
		reconnect: make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
	}
}

// Subscribe returns a buffered event channel and a cancel func that must be
// called when the subscriber goes away.
func (s *StatusStream) Subscribe() (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *StatusStream) Publish(ev StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// RequestReconnect asks the engine to drop and reopen the device connection.
func (s *StatusStream) RequestReconnect() {
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
}

func (s *StatusStream) reconnectRequests() <-chan struct{} { return s.reconnect }

// Shutdown requests a clean stop. Safe to call more than once.
func (s *StatusStream) Shutdown() {
	s.stopOnce.Do(func() { close(s.shutdown) })
}

// ShutdownRequested is closed once Shutdown has been called.
func (s *StatusStream) ShutdownRequested() <-chan struct{} { return s.shutdown }
