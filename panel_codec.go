package main

// Raw report encoding for the WinWing FCU/EFIS panels. The byte layouts here
// were captured from real hardware and must stay bit-exact: the LCD uses
// three different 7-segment wiring schemes (speed direct, heading/altitude/
// vertical-speed nibble-carry, EFIS bit-permuted) and a fixed set of flag
// bits shared across the digit bytes.

const (
	inputReportLen  = 41
	inputReportID   = 0x01
	outputReportLen = 64
	ledReportLen    = 14

	panelButtonCount = 64 // FCU 0..31, EFIS-R 32..63
)

// Segment bit assignment for the speed display:
//
//	   A
//	  ---
//	F | G | B
//	  ---
//	E |   | C
//	  ---
//	   D
//
// A=0x80 B=0x40 C=0x20 D=0x10 E=0x02 F=0x08 G=0x04. All other displays share
// bits across two data bytes per digit and go through segmentsSwapped or
// segmentsEFIS below.
var segmentMap = map[byte]byte{
	'0': 0xfa, '1': 0x60, '2': 0xd6, '3': 0xf4, '4': 0x6c,
	'5': 0xbc, '6': 0xbe, '7': 0xe0, '8': 0xfe, '9': 0xfc,
	'A': 0xee, 'B': 0xfe, 'C': 0x9a, 'D': 0x76, 'E': 0x9e,
	'F': 0x8e, 'G': 0xbe, 'H': 0x6e, 'I': 0x60, 'J': 0x70,
	'K': 0x0e, 'L': 0x1a, 'M': 0xa6, 'N': 0x26, 'O': 0xfa,
	'P': 0xce, 'Q': 0xec, 'R': 0x06, 'S': 0xbc, 'T': 0x1e,
	'U': 0x7a, 'V': 0x32, 'W': 0x58, 'X': 0x6e, 'Y': 0x7c,
	'Z': 0xd6, '-': 0x04, '#': 0x36, '/': 0x60, '\\': 0xa0,
	' ': 0x00,
}

// Flag byte slots inside the display packet.
const (
	byteH0 = iota
	byteH3
	byteA0
	byteA1
	byteA2
	byteA3
	byteA4
	byteA5
	byteV2
	byteV3
	byteV0
	byteV1
	byteS1
	byteEfisrB0
	byteEfisrB2
	byteEfislB0
	byteEfislB2
	flagByteCount
)

func swapNibbles(x byte) byte {
	return x&0x0f<<4 | x&0xf0>>4
}

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// segments renders s onto n 7-segment digits, last digit first. Characters
// without a segment pattern render blank.
func segments(n int, s string) []byte {
	d := make([]byte, n)
	for i := 0; i < n && i < len(s); i++ {
		d[n-1-i] = segmentMap[upperByte(s[i])]
	}
	return d
}

// segmentsSwapped handles the displays whose digits share bits across two
// data bytes: nibbles are swapped, then the high nibble of each digit is
// carried into the following byte. Returns n+1 bytes.
func segmentsSwapped(n int, s string) []byte {
	d := make([]byte, n+1)
	copy(d, segments(n, s))
	for i := range d {
		d[i] = swapNibbles(d[i])
	}
	for i := 0; i < n; i++ {
		d[n-i] = d[n-i]&0x0f | d[n-1-i]&0xf0
		d[n-1-i] &= 0x0f
	}
	return d
}

// segmentsEFIS handles the EFIS baro display, which permutes the segment bits
// yet again.
func segmentsEFIS(n int, s string) []byte {
	d := segments(n, s)
	out := make([]byte, n)
	for i, b := range d {
		var v byte
		if b&0x08 != 0 {
			v |= 0x01
		}
		if b&0x04 != 0 {
			v |= 0x02
		}
		if b&0x02 != 0 {
			v |= 0x04
		}
		if b&0x10 != 0 {
			v |= 0x08
		}
		if b&0x80 != 0 {
			v |= 0x10
		}
		if b&0x40 != 0 {
			v |= 0x20
		}
		if b&0x20 != 0 {
			v |= 0x40
		}
		if b&0x01 != 0 {
			v |= 0x80
		}
		out[i] = v
	}
	return out
}

// flagBytes collects the indicator flag bits for the FCU and EFIS-R displays.
// The lat, alt, v/s-plus-horizontal and lvl-change arrows are always lit on
// the real unit.
func flagBytes(img PanelOutputImage) [flagByteCount]byte {
	var bl [flagByteCount]byte

	set := func(idx int, mask byte, on bool) {
		if on {
			bl[idx] |= mask
		}
	}

	set(byteH3, 0x08, !img.Mach) // SPD label
	set(byteH3, 0x04, img.Mach)  // MACH label
	set(byteH3, 0x02, img.SpeedManaged)
	set(byteS1, 0x01, img.Mach) // mach decimal point

	set(byteH0, 0x80, !img.Trk) // HDG label
	set(byteH0, 0x40, img.Trk)  // TRK label
	set(byteH0, 0x20, true)     // LAT label
	set(byteH0, 0x10, img.HeadingManaged)

	set(byteA5, 0x08, !img.Trk) // HDG in hdg-v/s pair
	set(byteA5, 0x04, !img.Trk) // V/S in hdg-v/s pair
	set(byteA5, 0x02, img.Trk)  // TRK in trk-fpa pair
	set(byteA5, 0x01, img.Trk)  // FPA in trk-fpa pair

	set(byteA4, 0x10, true) // ALT label
	set(byteV1, 0x10, img.AltManaged)

	set(byteA0, 0x10, true)          // v/s plus sign, horizontal bar
	set(byteV2, 0x10, img.VSPlus)    // v/s plus sign, vertical bar
	set(byteA2, 0x10, true)          // lvl change
	set(byteA3, 0x10, true)          // lvl change left
	set(byteA1, 0x10, true)          // lvl change right
	set(byteV0, 0x40, !img.Trk)      // V/S in v/s-fpa pair
	set(byteV0, 0x80, img.Trk)       // FPA in v/s-fpa pair
	set(byteV3, 0x10, img.FpaComma)  // fpa decimal point

	set(byteEfisrB0, 0x02, img.BaroQNH)
	set(byteEfisrB2, 0x80, img.BaroHpaDecimal)

	return bl
}

// encodeLCD builds the first display packet for the FCU LCD. The header and
// trailing command bytes are fixed; digits and flags land in bytes 25..41.
func encodeLCD(img PanelOutputImage) []byte {
	s := segments(3, img.speedText())
	h := segmentsSwapped(3, img.headingText())
	a := segmentsSwapped(5, img.altitudeText())
	v := segmentsSwapped(4, img.vspeedText())
	bl := flagBytes(img)

	data := make([]byte, outputReportLen)
	copy(data, []byte{
		0xf0, 0x00, 0x01, 0x31, 0x10, 0xbb, 0x00, 0x00,
		0x02, 0x01, 0x00, 0x00, 0xff, 0xff, 0x02, 0x00,
		0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	})
	data[25] = s[2]
	data[26] = s[1] | bl[byteS1]
	data[27] = s[0]
	data[28] = h[3] | bl[byteH3]
	data[29] = h[2]
	data[30] = h[1]
	data[31] = h[0] | bl[byteH0]
	data[32] = a[5] | bl[byteA5]
	data[33] = a[4] | bl[byteA4]
	data[34] = a[3] | bl[byteA3]
	data[35] = a[2] | bl[byteA2]
	data[36] = a[1] | bl[byteA1]
	data[37] = a[0] | v[4] | bl[byteA0]
	data[38] = v[3] | bl[byteV3]
	data[39] = v[2] | bl[byteV2]
	data[40] = v[1] | bl[byteV1]
	data[41] = v[0] | bl[byteV0]
	return data
}

// encodeLCDCommit builds the second packet that latches the display data.
func encodeLCDCommit() []byte {
	data := make([]byte, outputReportLen)
	copy(data, []byte{
		0xf0, 0x00, 0x01, 0x11, 0x10, 0xbb, 0x00, 0x00,
		0x03, 0x01, 0x00, 0x00, 0xff, 0xff, 0x02,
	})
	return data
}

// encodeEFISRLCD builds the single packet driving the EFIS-R baro display.
func encodeEFISRLCD(img PanelOutputImage) []byte {
	b := segmentsEFIS(4, img.baroText())
	bl := flagBytes(img)

	data := make([]byte, outputReportLen)
	copy(data, []byte{
		0xf0, 0x00, 0x01, 0x1a, 0x0e, 0xbf, 0x00, 0x00,
		0x02, 0x01, 0x00, 0x00, 0xff, 0xff, 0x1d, 0x00,
		0x00, 0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	})
	data[25] = b[3]
	data[26] = b[2] | bl[byteEfisrB2]
	data[27] = b[1]
	data[28] = b[0]
	data[29] = bl[byteEfisrB0]
	copy(data[30:], []byte{
		0x0e, 0xbf, 0x00, 0x00, 0x03, 0x01, 0x00, 0x00,
		0x4c, 0x0c, 0x1d,
	})
	return data
}

// lcdInitReport must be written once after opening the device before any
// display packet is accepted.
func lcdInitReport() []byte {
	data := make([]byte, outputReportLen)
	data[0] = 0xf0
	data[1] = 0x02
	return data
}

// encodeLEDReport sets a single LED or backlight channel. EFIS-R LEDs use a
// different target id and a 100-offset channel number.
func encodeLEDReport(led LedID, brightness byte) []byte {
	data := make([]byte, ledReportLen)
	data[0] = 0x02
	if led < ledEfisrBase {
		data[1] = 0x10
		data[2] = 0xbb
		data[7] = byte(led)
	} else {
		data[1] = 0x0e
		data[2] = 0xbf
		data[7] = byte(led - ledEfisrBase)
	}
	data[5] = 0x03
	data[6] = 0x49
	data[8] = brightness
	return data
}

// decodeInputReport diffs a 41-byte input report against the previous button
// bitmask and returns the resulting events in bit order. FCU buttons occupy
// bytes 1..4, EFIS-R bytes 9..12 (EFIS-L reports in bytes 5..8 are ignored,
// the unit is not supported). Malformed reports yield ok=false and no events.
func decodeInputReport(prev uint64, report []byte) (events []PanelInputEvent, next uint64, ok bool) {
	if len(report) != inputReportLen || report[0] != inputReportID {
		return nil, prev, false
	}

	next = uint64(report[1]) | uint64(report[2])<<8 | uint64(report[3])<<16 | uint64(report[4])<<24
	next |= uint64(report[9])<<32 | uint64(report[10])<<40 | uint64(report[11])<<48 | uint64(report[12])<<56

	for i := 0; i < panelButtonCount; i++ {
		mask := uint64(1) << uint(i)
		if prev&mask == next&mask {
			continue
		}
		pressed := next&mask != 0
		if enc, ok := encoderSteps[i]; ok {
			if pressed {
				events = append(events, PanelInputEvent{Kind: EventEncoderDelta, Encoder: enc.Encoder, Delta: enc.Delta})
			}
			continue
		}
		if sw, ok := switchPositions[i]; ok {
			if pressed {
				events = append(events, PanelInputEvent{Kind: EventSwitchState, Switch: sw.Switch, Position: sw.Position})
			}
			continue
		}
		if pressed {
			events = append(events, PanelInputEvent{Kind: EventButtonPress, Button: i})
		} else {
			events = append(events, PanelInputEvent{Kind: EventButtonRelease, Button: i})
		}
	}
	return events, next, true
}
