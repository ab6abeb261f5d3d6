package main

import "fmt"

// PanelLamps holds the on/off state of every indicator LED.
type PanelLamps struct {
	AP1      bool
	AP2      bool
	Athr     bool
	Appr     bool
	Loc      bool
	Exped    bool
	EfisFd   bool
	EfisLs   bool
	EfisCstr bool
	EfisWpt  bool
	EfisVord bool
	EfisNdb  bool
	EfisArpt bool
}

// PanelOutputImage is an immutable snapshot of everything shown on the panel.
// Dashed fields render the blank dash pattern. The struct is comparable, the
// engine writes a new image only when it differs from the last one sent.
type PanelOutputImage struct {
	Speed         int
	SpeedDashed   bool
	Mach          bool
	SpeedManaged  bool

	Heading        int
	HeadingDashed  bool
	Trk            bool
	HeadingManaged bool

	Altitude       int
	AltitudeDashed bool
	AltManaged     bool

	VSpeed   int
	VSDashed bool
	VSPlus   bool
	FpaComma bool

	Baro           int
	BaroStd        bool
	BaroDashed     bool
	BaroQNH        bool
	BaroHpaDecimal bool

	Lamps PanelLamps

	Backlight     byte
	LCDBrightness byte
}

const (
	defaultBacklight     = 80
	defaultLCDBrightness = 180
)

// blankImage is what the panel shows while either endpoint is down.
func blankImage() PanelOutputImage {
	return PanelOutputImage{
		SpeedDashed:    true,
		HeadingDashed:  true,
		AltitudeDashed: true,
		VSDashed:       true,
		BaroDashed:     true,
		Backlight:      defaultBacklight,
		LCDBrightness:  defaultLCDBrightness,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (img PanelOutputImage) speedText() string {
	if img.SpeedDashed {
		return "---"
	}
	return fmt.Sprintf("%03d", clampInt(img.Speed, 0, 999))
}

func (img PanelOutputImage) headingText() string {
	if img.HeadingDashed {
		return "---"
	}
	return fmt.Sprintf("%03d", clampInt(img.Heading, 0, 360))
}

func (img PanelOutputImage) altitudeText() string {
	if img.AltitudeDashed {
		return "-----"
	}
	return fmt.Sprintf("%05d", clampInt(img.Altitude, -2000, 99999))
}

// vspeedText renders vertical speed in hundreds of ft/min. In HDG/V/S mode
// the trailing digits show as small zeros ('#' pattern), in TRK/FPA mode they
// stay blank and the decimal point is lit instead.
func (img PanelOutputImage) vspeedText() string {
	if img.VSDashed {
		return "----"
	}
	v := clampInt(img.VSpeed, -9900, 9900)
	if v < 0 {
		v = -v
	}
	s := fmt.Sprintf("%02d", v/100)
	pad := "#"
	if img.Trk {
		pad = " "
	}
	for len(s) < 4 {
		s += pad
	}
	return s
}

func (img PanelOutputImage) baroText() string {
	if img.BaroDashed {
		return "----"
	}
	if img.BaroStd {
		return "Std "
	}
	return fmt.Sprintf("%04d", clampInt(img.Baro, 0, 9999))
}

// imageFromSim derives the panel image from the current simulator state.
// Stale or missing values dash their field; the engine's PanelMode fills in
// for the mode flags until the matching datarefs arrive.
func imageFromSim(sim *SimState, mode PanelMode) PanelOutputImage {
	img := blankImage()

	mach := mode.Mach
	if v, ok := sim.Value("sim/cockpit/autopilot/airspeed_is_mach"); ok {
		mach = v != 0
	}
	img.Mach = mach

	if v, ok := sim.Value("sim/cockpit2/autopilot/airspeed_dial_kts_mach"); ok {
		if mach && v < 1 {
			v = (v + 0.005) * 100
		}
		img.Speed = int(v)
		img.SpeedDashed = sim.Bool("AirbusFBW/SPDdashed")
	}

	trk := mode.Trk
	if v, ok := sim.Value("AirbusFBW/HDGTRKmode"); ok {
		trk = v != 0
	}
	img.Trk = trk

	if v, ok := sim.Value("sim/cockpit/autopilot/heading_mag"); ok {
		img.Heading = int(v)
		img.HeadingDashed = sim.Bool("AirbusFBW/HDGdashed")
	}

	if v, ok := sim.Value("sim/cockpit/autopilot/altitude"); ok {
		img.Altitude = int(v)
		img.AltitudeDashed = false
	}

	if v, ok := sim.Value("sim/cockpit/autopilot/vertical_velocity"); ok {
		img.VSpeed = int(v)
		img.VSDashed = sim.Bool("AirbusFBW/VSdashed")
		img.VSPlus = !img.VSDashed && img.VSpeed >= 0
		img.FpaComma = !img.VSDashed && trk
	}

	img.SpeedManaged = sim.Bool("AirbusFBW/SPDmanaged")
	img.HeadingManaged = sim.Bool("AirbusFBW/HDGmanaged")
	img.AltManaged = sim.Bool("AirbusFBW/ALTmanaged")

	if v, ok := sim.Value("sim/cockpit2/gauges/actuators/barometer_setting_in_hg_copilot"); ok {
		if v < 100 {
			v = (v + 0.005) * 100
		}
		std := sim.Bool("AirbusFBW/BaroStdFO")
		hpa := sim.Bool("AirbusFBW/BaroUnitFO")
		img.BaroDashed = false
		img.BaroStd = std
		img.BaroQNH = !std
		img.BaroHpaDecimal = !hpa && !std
		if hpa {
			img.Baro = int((v*33.86388 + 50) / 100)
		} else {
			img.Baro = int(v)
		}
	}

	img.Lamps = PanelLamps{
		AP1:      sim.Bool("AirbusFBW/AP1Engage"),
		AP2:      sim.Bool("AirbusFBW/AP2Engage"),
		Athr:     sim.Bool("AirbusFBW/ATHRmode"),
		Appr:     sim.Bool("AirbusFBW/APPRilluminated"),
		Loc:      sim.Bool("AirbusFBW/LOCilluminated"),
		EfisFd:   sim.Bool("AirbusFBW/FD2Engage"),
		EfisLs:   sim.Bool("AirbusFBW/ILSonFO"),
		EfisCstr: sim.Bool("AirbusFBW/NDShowCSTRFO"),
		EfisWpt:  sim.Bool("AirbusFBW/NDShowWPTFO"),
		EfisVord: sim.Bool("AirbusFBW/NDShowVORDFO"),
		EfisNdb:  sim.Bool("AirbusFBW/NDShowNDBFO"),
		EfisArpt: sim.Bool("AirbusFBW/NDShowARPTFO"),
	}
	if v, ok := sim.Value("AirbusFBW/APVerticalMode"); ok {
		img.Lamps.Exped = v >= 112
	}

	if v, ok := sim.Value("AirbusFBW/SupplLightLevelRehostats[0]"); ok && v <= 1 {
		img.Backlight = byte(clampInt(int(v*255), 0, 255))
	}
	if v, ok := sim.Value("AirbusFBW/SupplLightLevelRehostats[1]"); ok && v <= 1 {
		img.LCDBrightness = byte(clampInt(int(v*235+20), 0, 255))
	}

	return img
}
