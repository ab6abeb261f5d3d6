package main

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSimStateFreshness(t *testing.T) {
	fc := clockwork.NewFakeClock()
	sim := newSimState(fc, 5*time.Second)

	assert.False(t, sim.Fresh(), "no data yet")
	_, ok := sim.Value("sim/cockpit/autopilot/altitude")
	assert.False(t, ok)

	sim.Apply(DatarefUpdate{Ref: "sim/cockpit/autopilot/altitude", Value: 35000})
	assert.True(t, sim.Fresh())
	v, ok := sim.Value("sim/cockpit/autopilot/altitude")
	assert.True(t, ok)
	assert.Equal(t, 35000.0, v)

	fc.Advance(5 * time.Second)
	assert.True(t, sim.Fresh(), "threshold is inclusive")

	fc.Advance(time.Millisecond)
	assert.False(t, sim.Fresh())
	_, ok = sim.Value("sim/cockpit/autopilot/altitude")
	assert.False(t, ok, "stale values read as unknown")
}

func TestSimStateLatestValueWins(t *testing.T) {
	fc := clockwork.NewFakeClock()
	sim := newSimState(fc, 5*time.Second)

	sim.Apply(DatarefUpdate{Ref: "sim/cockpit/autopilot/heading_mag", Value: 90})
	sim.Apply(DatarefUpdate{Ref: "sim/cockpit/autopilot/heading_mag", Value: 180})

	v, ok := sim.Value("sim/cockpit/autopilot/heading_mag")
	assert.True(t, ok)
	assert.Equal(t, 180.0, v)
}

func TestSimStateBool(t *testing.T) {
	fc := clockwork.NewFakeClock()
	sim := newSimState(fc, 5*time.Second)

	assert.False(t, sim.Bool("AirbusFBW/AP1Engage"))
	sim.Apply(DatarefUpdate{Ref: "AirbusFBW/AP1Engage", Value: 1})
	assert.True(t, sim.Bool("AirbusFBW/AP1Engage"))
	sim.Apply(DatarefUpdate{Ref: "AirbusFBW/AP1Engage", Value: 0})
	assert.False(t, sim.Bool("AirbusFBW/AP1Engage"))
}

func TestSimStateReset(t *testing.T) {
	fc := clockwork.NewFakeClock()
	sim := newSimState(fc, 5*time.Second)

	sim.Apply(DatarefUpdate{Ref: "AirbusFBW/SPDmanaged", Value: 1})
	sim.Reset()

	assert.False(t, sim.Fresh())
	assert.False(t, sim.Bool("AirbusFBW/SPDmanaged"))
}
