package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseSegments maps segment patterns back to the characters used on the
// numeric displays. Restricted to the display charset so shared patterns
// (e.g. '5' and 'S') stay unambiguous.
var reverseSegments = func() map[byte]byte {
	m := make(map[byte]byte)
	for _, c := range []byte("0123456789-# ") {
		m[segmentMap[c]] = c
	}
	return m
}()

// unswapSegments inverts segmentsSwapped: n+1 packed bytes back to n raw
// segment patterns.
func unswapSegments(d []byte) []byte {
	n := len(d) - 1
	out := make([]byte, n)
	for k := 0; k < n; k++ {
		out[k] = swapNibbles(d[k]&0x0f | d[k+1]&0xf0)
	}
	return out
}

func segmentsToString(segs []byte) string {
	// segments renders last digit first
	out := make([]byte, len(segs))
	for i, b := range segs {
		c, ok := reverseSegments[b]
		if !ok {
			c = '?'
		}
		out[len(segs)-1-i] = c
	}
	return string(out)
}

// decodeLCDFields reverses the display packet back into the four rendered
// strings, stripping the flag bits the way the hardware masks them out.
func decodeLCDFields(t *testing.T, img PanelOutputImage, data []byte) (spd, hdg, alt, vs string) {
	t.Helper()
	require.Len(t, data, outputReportLen)
	bl := flagBytes(img)

	spd = segmentsToString([]byte{data[27], data[26] &^ bl[byteS1], data[25]})

	h := []byte{data[31] &^ bl[byteH0], data[30], data[29], data[28] &^ bl[byteH3]}
	hdg = segmentsToString(unswapSegments(h))

	a := []byte{
		data[37] & 0x0f,
		data[36] &^ bl[byteA1],
		data[35] &^ bl[byteA2],
		data[34] &^ bl[byteA3],
		data[33] &^ bl[byteA4],
		data[32] &^ bl[byteA5],
	}
	alt = segmentsToString(unswapSegments(a))

	v := []byte{
		data[41] &^ bl[byteV0],
		data[40] &^ bl[byteV1],
		data[39] &^ bl[byteV2],
		data[38] &^ bl[byteV3],
		data[37] & 0xf0 &^ bl[byteA0],
	}
	vs = segmentsToString(unswapSegments(v))
	return spd, hdg, alt, vs
}

// TestLCDRoundTrip verifies that the digits recovered from an encoded display
// packet match the rendered field values, across dashed, negative and managed
// variants.
func TestLCDRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		img  PanelOutputImage
	}{
		{"cruise", PanelOutputImage{Speed: 250, Heading: 180, Altitude: 35000, VSpeed: -500}},
		{"climb", PanelOutputImage{Speed: 320, Heading: 90, Altitude: 4000, VSpeed: 2400}},
		{"managed", PanelOutputImage{
			Speed: 142, Heading: 7, Altitude: 100, VSpeed: 0,
			SpeedManaged: true, HeadingManaged: true, AltManaged: true,
		}},
		{"mach", PanelOutputImage{Speed: 80, Mach: true, Heading: 360, Altitude: 39000, VSpeed: 100}},
		{"track fpa", PanelOutputImage{Speed: 137, Heading: 245, Altitude: 12000, VSpeed: -700, Trk: true, FpaComma: true}},
		{"all dashed", blankImage()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeLCD(tt.img)
			spd, hdg, alt, vs := decodeLCDFields(t, tt.img, data)
			assert.Equal(t, tt.img.speedText(), spd)
			assert.Equal(t, tt.img.headingText(), hdg)
			assert.Equal(t, tt.img.altitudeText(), alt)
			assert.Equal(t, tt.img.vspeedText(), vs)
		})
	}
}

// TestLCDDeterministic verifies that encoding the same image twice yields
// byte-identical reports.
func TestLCDDeterministic(t *testing.T) {
	img := PanelOutputImage{Speed: 250, Heading: 180, Altitude: 35000, VSpeed: -500}
	assert.Equal(t, encodeLCD(img), encodeLCD(img))
	assert.Equal(t, encodeEFISRLCD(img), encodeEFISRLCD(img))
}

func TestLCDPacketFraming(t *testing.T) {
	data := encodeLCD(blankImage())
	require.Len(t, data, outputReportLen)
	assert.Equal(t, byte(0xf0), data[0])
	assert.Equal(t, byte(0x31), data[3])
	assert.Equal(t, []byte{0x10, 0xbb}, data[4:6])

	commit := encodeLCDCommit()
	require.Len(t, commit, outputReportLen)
	assert.Equal(t, byte(0x11), commit[3])

	init := lcdInitReport()
	require.Len(t, init, outputReportLen)
	assert.Equal(t, []byte{0xf0, 0x02}, init[0:2])
}

func TestEFISRBaroEncoding(t *testing.T) {
	t.Run("std shows Std", func(t *testing.T) {
		img := PanelOutputImage{Baro: 1013, BaroStd: true}
		data := encodeEFISRLCD(img)
		want := segmentsEFIS(4, "Std ")
		assert.Equal(t, want[3], data[25])
		assert.Equal(t, want[1], data[27])
		assert.Equal(t, want[0], data[28])
	})

	t.Run("qnh flag set when not std", func(t *testing.T) {
		img := PanelOutputImage{Baro: 2992, BaroQNH: true}
		data := encodeEFISRLCD(img)
		assert.Equal(t, byte(0x02), data[29]&0x02)
	})

	t.Run("efis targets the right unit", func(t *testing.T) {
		data := encodeEFISRLCD(PanelOutputImage{Baro: 1013})
		assert.Equal(t, []byte{0x0e, 0xbf}, data[4:6])
	})
}

func TestLEDReportLayout(t *testing.T) {
	t.Run("fcu led", func(t *testing.T) {
		data := encodeLEDReport(LedAP1Green, 200)
		require.Len(t, data, ledReportLen)
		assert.Equal(t, []byte{0x02, 0x10, 0xbb}, data[0:3])
		assert.Equal(t, byte(LedAP1Green), data[7])
		assert.Equal(t, byte(200), data[8])
	})

	t.Run("efisr led uses offset channel", func(t *testing.T) {
		data := encodeLEDReport(LedEfisrFdGreen, 80)
		assert.Equal(t, []byte{0x02, 0x0e, 0xbf}, data[0:3])
		assert.Equal(t, byte(3), data[7]) // 103 - 100
		assert.Equal(t, byte(80), data[8])
	})
}

func TestDecodeInputReport(t *testing.T) {
	t.Run("press and release edges", func(t *testing.T) {
		events, mask, ok := decodeInputReport(0, inputReport(1)) // LOC
		require.True(t, ok)
		require.Len(t, events, 1)
		assert.Equal(t, EventButtonPress, events[0].Kind)
		assert.Equal(t, 1, events[0].Button)

		events, _, ok = decodeInputReport(mask, inputReport())
		require.True(t, ok)
		require.Len(t, events, 1)
		assert.Equal(t, EventButtonRelease, events[0].Kind)
	})

	t.Run("encoder detents become deltas", func(t *testing.T) {
		events, _, ok := decodeInputReport(0, inputReport(10)) // SPD INC
		require.True(t, ok)
		require.Len(t, events, 1)
		assert.Equal(t, EventEncoderDelta, events[0].Kind)
		assert.Equal(t, EncSpeed, events[0].Encoder)
		assert.Equal(t, 1, events[0].Delta)

		events, _, _ = decodeInputReport(0, inputReport(17)) // ALT DEC
		require.Len(t, events, 1)
		assert.Equal(t, EncAltitude, events[0].Encoder)
		assert.Equal(t, -1, events[0].Delta)
	})

	t.Run("encoder release is silent", func(t *testing.T) {
		_, mask, _ := decodeInputReport(0, inputReport(10))
		events, _, ok := decodeInputReport(mask, inputReport())
		require.True(t, ok)
		assert.Empty(t, events)
	})

	t.Run("alt step selector becomes switch state", func(t *testing.T) {
		events, _, ok := decodeInputReport(0, inputReport(26))
		require.True(t, ok)
		require.Len(t, events, 1)
		assert.Equal(t, EventSwitchState, events[0].Kind)
		assert.Equal(t, SwAltStep, events[0].Switch)
		assert.Equal(t, 1, events[0].Position)
	})

	t.Run("efisr buttons decode from the upper bytes", func(t *testing.T) {
		events, _, ok := decodeInputReport(0, inputReport(39)) // R STD PUSH
		require.True(t, ok)
		require.Len(t, events, 1)
		assert.Equal(t, EventButtonPress, events[0].Kind)
		assert.Equal(t, 39, events[0].Button)
	})

	t.Run("simultaneous changes keep bit order", func(t *testing.T) {
		events, _, ok := decodeInputReport(0, inputReport(3, 8))
		require.True(t, ok)
		require.Len(t, events, 2)
		assert.Equal(t, 3, events[0].Button)
		assert.Equal(t, 8, events[1].Button)
	})

	t.Run("malformed reports are rejected", func(t *testing.T) {
		events, mask, ok := decodeInputReport(7, []byte{0x01, 0x02})
		assert.False(t, ok)
		assert.Empty(t, events)
		assert.Equal(t, uint64(7), mask, "previous mask must be preserved")

		bad := inputReport()
		bad[0] = 0x55
		_, _, ok = decodeInputReport(0, bad)
		assert.False(t, ok)
	})
}

func TestSegmentHelpers(t *testing.T) {
	t.Run("swap nibbles", func(t *testing.T) {
		assert.Equal(t, byte(0xaf), swapNibbles(0xfa))
		assert.Equal(t, byte(0x00), swapNibbles(0x00))
	})

	t.Run("unknown characters render blank", func(t *testing.T) {
		d := segments(3, "1%3")
		assert.Equal(t, byte(0x00), d[1])
	})
}
