package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	reconnectBaseDelay  = time.Second
	reconnectMaxBackoff = 8 * time.Second
	deviceReadTimeout   = 20 * time.Millisecond
	eventQueueSize      = 64
)

// deviceEvent is a connect or disconnect transition from the device loop.
// Both travel over one channel so the engine sees them in the order they
// happened; separate channels would let a fast reconnect be consumed before
// the disconnect that preceded it.
type deviceEvent struct {
	connected bool
	units     DeviceUnits
	model     string
}

// PanelMode is the engine's view of which reference modes are active on the
// panel. Owned exclusively by the engine goroutine, mutated only by input
// events, used as fallback for the display flags while the matching sim
// values are unknown.
type PanelMode struct {
	Mach        bool
	Trk         bool
	AltStep1000 bool
}

// BridgeService is the sync engine: it owns the state machine tying the panel
// transport and the simulator link together. The device reader and the UDP
// listener run as independent goroutines feeding channels; all mutable bridge
// state (PanelMode, last sent image) lives on the engine goroutine.
type BridgeService struct {
	settings Settings
	clock    clockwork.Clock
	status   *StatusStream
	link     SimLink
	runLink  func(ctx context.Context) error
	open     func() (PanelTransport, error)

	events    chan PanelInputEvent
	devEvents chan deviceEvent
	output    chan [][]byte

	mu               sync.Mutex
	state            BridgeState
	stateKnown       bool
	malformedReports int

	// engine goroutine only
	sim         *SimState
	simWasFresh bool
	mode        PanelMode
	units       DeviceUnits
	deviceUp    bool
	haveImage   bool
	lastImage   PanelOutputImage
	lastLEDs    map[LedID]byte
	lastPress   map[int]time.Time
	encoderSum  map[EncoderID]int
}

func NewBridgeService(settings Settings, clock clockwork.Clock, status *StatusStream, link SimLink, open func() (PanelTransport, error)) *BridgeService {
	s := &BridgeService{
		settings:   settings,
		clock:      clock,
		status:     status,
		link:       link,
		open:       open,
		events:     make(chan PanelInputEvent, eventQueueSize),
		devEvents:  make(chan deviceEvent, 8),
		output:     make(chan [][]byte, 1),
		sim:        newSimState(clock, settings.staleness()),
		lastPress:  make(map[int]time.Time),
		encoderSum: make(map[EncoderID]int),
	}
	if c, ok := link.(*XPlaneClient); ok {
		s.runLink = c.Run
	}
	return s
}

// State returns the engine's current connection state.
func (s *BridgeService) State() BridgeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MalformedReports returns the diagnostic count of undecodable input reports.
func (s *BridgeService) MalformedReports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.malformedReports
}

// Run drives the bridge until ctx is cancelled. Loops are joined through the
// errgroup so a stop request unwinds everything within one timeout period.
func (s *BridgeService) Run(ctx context.Context) error {
	if err := s.link.Subscribe(); err != nil {
		slog.Warn("initial subscribe failed, sim presumed down", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.deviceLoop(ctx) })
	g.Go(func() error { return s.engineLoop(ctx) })
	if s.runLink != nil {
		g.Go(func() error { return s.runLink(ctx) })
	}

	err := g.Wait()
	s.setState(StateShuttingDown, "bridge stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *BridgeService) setState(state BridgeState, msg string) {
	s.mu.Lock()
	changed := !s.stateKnown || s.state != state
	s.state = state
	s.stateKnown = true
	s.mu.Unlock()

	if changed {
		slog.Info("bridge state", "state", state.String(), "detail", msg)
		s.status.Publish(StatusEvent{State: state, Message: msg})
	}
}

func (s *BridgeService) countMalformed() {
	s.mu.Lock()
	s.malformedReports++
	s.mu.Unlock()
}

// deviceLoop owns the HID handle: it opens the panel with capped backoff,
// reads input reports, pushes decoded events to the engine and writes the
// frames the engine queues. No other goroutine touches the handle.
func (s *BridgeService) deviceLoop(ctx context.Context) error {
	attempts := 0
	for {
		panel, err := s.open()
		if err != nil {
			backoff := time.Duration(1<<uint(attempts)) * reconnectBaseDelay
			if backoff > reconnectMaxBackoff {
				backoff = reconnectMaxBackoff
			}
			attempts++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(backoff):
				continue
			}
		}
		attempts = 0

		if err := panel.WriteReport(lcdInitReport()); err != nil {
			slog.Warn("panel init write failed", "error", err)
			panel.Close()
			continue
		}
		s.notifyDevice(ctx, deviceEvent{connected: true, units: panel.Units(), model: panel.Name()})

		err = s.servePanel(ctx, panel)
		panel.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.notifyDevice(ctx, deviceEvent{})
		slog.Warn("panel connection lost", "error", err)
	}
}

func (s *BridgeService) servePanel(ctx context.Context, panel PanelTransport) error {
	var prevMask uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.status.reconnectRequests():
			return errors.New("reconnect requested")
		case frame := <-s.output:
			for _, report := range frame {
				if err := panel.WriteReport(report); err != nil {
					return err
				}
			}
		default:
		}

		report, err := panel.ReadReport(deviceReadTimeout)
		if errors.Is(err, ErrReadTimeout) {
			continue
		}
		if err != nil {
			return err
		}

		events, next, ok := decodeInputReport(prevMask, report)
		if !ok {
			s.countMalformed()
			continue
		}
		prevMask = next
		for _, ev := range events {
			s.queueEvent(ev)
		}
	}
}

// queueEvent keeps the newest events when the queue is full: bounded, drop
// oldest.
func (s *BridgeService) queueEvent(ev PanelInputEvent) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}

// notifyDevice forwards a connection transition to the engine. The send
// blocks rather than drops so no transition is ever lost; the engine drains
// the channel every loop iteration.
func (s *BridgeService) notifyDevice(ctx context.Context, ev deviceEvent) {
	select {
	case s.devEvents <- ev:
	case <-ctx.Done():
	}
}

// pushFrame queues raw reports for the device writer, replacing any frame not
// yet written. Latest wins, never blocks.
func (s *BridgeService) pushFrame(frame [][]byte) {
	for {
		select {
		case s.output <- frame:
			return
		default:
			select {
			case <-s.output:
			default:
			}
		}
	}
}

// engineLoop is the single writer for PanelMode, SimState and the last sent
// image. Each tick: drain input events, fold sim updates, recompute the
// image, emit only on change.
func (s *BridgeService) engineLoop(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.settings.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.devEvents:
			s.handleDeviceEvent(ev)
		case <-ticker.Chan():
			s.tick()
		}
	}
}

func (s *BridgeService) handleDeviceEvent(ev deviceEvent) {
	s.deviceUp = ev.connected
	if !ev.connected {
		return
	}
	s.units = ev.units
	s.haveImage = false
	s.lastLEDs = nil
	// A frame queued for the previous connection would race the init report.
	select {
	case <-s.output:
	default:
	}
	s.status.Publish(StatusEvent{State: s.State(), Message: "panel connected: " + ev.model})
}

func (s *BridgeService) tick() {
	s.processInput()

	for {
		select {
		case u := <-s.link.Updates():
			s.sim.Apply(u)
			continue
		default:
		}
		break
	}

	fresh := s.sim.Fresh()
	if s.simWasFresh && !fresh {
		s.sim.Reset()
	}
	s.simWasFresh = fresh

	switch {
	case !s.deviceUp:
		s.setState(StateDeviceDisconnected, "waiting for panel")
	case !fresh:
		s.setState(StateSimDisconnected, "waiting for simulator data")
	default:
		s.setState(StateBridging, "")
	}

	if !s.deviceUp {
		return
	}

	img := blankImage()
	if fresh {
		img = imageFromSim(s.sim, s.mode)
	}
	if s.haveImage && img == s.lastImage {
		return
	}

	frame := [][]byte{encodeLCD(img), encodeLCDCommit()}
	if s.units.EfisR {
		frame = append(frame, encodeEFISRLCD(img))
	}
	frame = append(frame, s.ledReports(img)...)
	s.pushFrame(frame)

	s.lastImage = img
	s.haveImage = true
	published := img
	s.status.Publish(StatusEvent{State: s.State(), Image: &published})
}

// ledReports diffs the desired LED levels against what was last sent and
// returns reports for the changed channels only.
func (s *BridgeService) ledReports(img PanelOutputImage) [][]byte {
	want := map[LedID]byte{
		LedBacklight:       img.Backlight,
		LedScreenBacklight: img.LCDBrightness,
		LedFlagGreen:       img.Backlight,
		LedExpedYellow:     img.Backlight,
	}
	lamp := func(id LedID, on bool) {
		if on {
			want[id] = img.Backlight
		} else {
			want[id] = 0
		}
	}
	lamp(LedAP1Green, img.Lamps.AP1)
	lamp(LedAP2Green, img.Lamps.AP2)
	lamp(LedAthrGreen, img.Lamps.Athr)
	lamp(LedApprGreen, img.Lamps.Appr)
	lamp(LedLocGreen, img.Lamps.Loc)
	lamp(LedExpedGreen, img.Lamps.Exped)
	if s.units.EfisR {
		want[LedEfisrBacklight] = img.Backlight
		want[LedEfisrScreenBacklight] = img.LCDBrightness
		want[LedEfisrFlagGreen] = img.Backlight
		lamp(LedEfisrFdGreen, img.Lamps.EfisFd)
		lamp(LedEfisrLsGreen, img.Lamps.EfisLs)
		lamp(LedEfisrCstrGreen, img.Lamps.EfisCstr)
		lamp(LedEfisrWptGreen, img.Lamps.EfisWpt)
		lamp(LedEfisrVordGreen, img.Lamps.EfisVord)
		lamp(LedEfisrNdbGreen, img.Lamps.EfisNdb)
		lamp(LedEfisrArptGreen, img.Lamps.EfisArpt)
	}

	var reports [][]byte
	for id, level := range want {
		if s.lastLEDs != nil && s.lastLEDs[id] == level {
			continue
		}
		reports = append(reports, encodeLEDReport(id, level))
	}
	s.lastLEDs = want
	return reports
}

// processInput drains the event queue in arrival order, applies press
// debouncing, accumulates encoder deltas and translates everything into
// simulator traffic.
func (s *BridgeService) processInput() {
	for id := range s.encoderSum {
		delete(s.encoderSum, id)
	}

	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		default:
			s.flushEncoders()
			return
		}
	}
}

func (s *BridgeService) handleEvent(ev PanelInputEvent) {
	switch ev.Kind {
	case EventEncoderDelta:
		// Deltas faster than the tick rate sum up, never drop.
		s.encoderSum[ev.Encoder] += ev.Delta

	case EventSwitchState:
		s.applySwitch(ev.Switch, ev.Position)

	case EventButtonPress:
		now := s.clock.Now()
		if last, ok := s.lastPress[ev.Button]; ok && now.Sub(last) < s.settings.debounce() {
			return
		}
		s.lastPress[ev.Button] = now
		s.applyPress(ev.Button)

	case EventButtonRelease:
		// No momentary-switch bindings on this panel.
	}
}

func (s *BridgeService) applySwitch(sw SwitchID, pos int) {
	if sw == SwAltStep {
		s.mode.AltStep1000 = pos == 1
	}
	ref, ok := switchDatarefs[sw]
	if !ok {
		return
	}
	if err := s.link.WriteDataref(ref, float64(pos)); err != nil {
		slog.Warn("dataref write failed", "ref", ref, "error", err)
	}
}

func (s *BridgeService) applyPress(button int) {
	b, ok := buttonBindings[button]
	if !ok {
		return
	}

	switch button {
	case 0: // MACH
		s.mode.Mach = !s.mode.Mach
	case 2: // TRK
		s.mode.Trk = !s.mode.Trk
	}

	switch b.Kind {
	case BindCommand:
		if err := s.link.SendCommand(b.Ref); err != nil {
			slog.Warn("command failed", "cmd", b.Ref, "error", err)
		}
	case BindToggle:
		cur := s.sim.Bool(b.Ref)
		val := 1.0
		if cur {
			val = 0
		}
		if err := s.link.WriteDataref(b.Ref, val); err != nil {
			slog.Warn("dataref write failed", "ref", b.Ref, "error", err)
		}
	}
	slog.Debug("button", "label", b.Label)
}

func (s *BridgeService) flushEncoders() {
	for enc, delta := range s.encoderSum {
		if delta == 0 {
			continue
		}
		cmds := encoderCommands[enc]
		cmd := cmds[1]
		n := delta
		if delta < 0 {
			cmd = cmds[0]
			n = -delta
		}
		for i := 0; i < n; i++ {
			if err := s.link.SendCommand(cmd); err != nil {
				slog.Warn("encoder command failed", "cmd", cmd, "error", err)
				break
			}
		}
	}
}
