package main

// Input event model and the ToLiss Airbus bindings for every control on the
// FCU and EFIS-R panels.

type EventKind int

const (
	EventButtonPress EventKind = iota
	EventButtonRelease
	EventEncoderDelta
	EventSwitchState
)

type EncoderID int

const (
	EncSpeed EncoderID = iota
	EncHeading
	EncAltitude
	EncVertical
	EncBaro
)

type SwitchID int

const (
	SwAltStep SwitchID = iota // ALT selector increment: 100 / 1000
	SwBaroUnit
	SwNDMode
	SwNDRange
	SwEFIS1Sel
	SwEFIS2Sel
)

// PanelInputEvent is a tagged variant: exactly one of the field groups is
// meaningful depending on Kind.
type PanelInputEvent struct {
	Kind     EventKind
	Button   int
	Encoder  EncoderID
	Delta    int
	Switch   SwitchID
	Position int
}

type LedID int

const ledEfisrBase LedID = 100

// LED and backlight channels, as the firmware numbers them.
const (
	LedBacklight       LedID = 0
	LedScreenBacklight LedID = 1
	LedLocGreen        LedID = 3
	LedAP1Green        LedID = 5
	LedAP2Green        LedID = 7
	LedAthrGreen       LedID = 9
	LedExpedGreen      LedID = 11
	LedApprGreen       LedID = 13
	LedFlagGreen       LedID = 17
	LedExpedYellow     LedID = 30

	LedEfisrBacklight       = ledEfisrBase + 0
	LedEfisrScreenBacklight = ledEfisrBase + 1
	LedEfisrFlagGreen       = ledEfisrBase + 2
	LedEfisrFdGreen         = ledEfisrBase + 3
	LedEfisrLsGreen         = ledEfisrBase + 4
	LedEfisrCstrGreen       = ledEfisrBase + 5
	LedEfisrWptGreen        = ledEfisrBase + 6
	LedEfisrVordGreen       = ledEfisrBase + 7
	LedEfisrNdbGreen        = ledEfisrBase + 8
	LedEfisrArptGreen       = ledEfisrBase + 9
)

// encoderSteps maps the inc/dec detent buttons of each rotary encoder onto
// signed single steps.
var encoderSteps = map[int]struct {
	Encoder EncoderID
	Delta   int
}{
	9:  {EncSpeed, -1},
	10: {EncSpeed, +1},
	13: {EncHeading, -1},
	14: {EncHeading, +1},
	17: {EncAltitude, -1},
	18: {EncAltitude, +1},
	21: {EncVertical, -1},
	22: {EncVertical, +1},
	41: {EncBaro, -1}, // EFIS-R pressure knob
	42: {EncBaro, +1},
}

// encoderCommands holds the X-Plane command pair (down, up) per encoder.
var encoderCommands = map[EncoderID][2]string{
	EncSpeed:    {"sim/autopilot/airspeed_down", "sim/autopilot/airspeed_up"},
	EncHeading:  {"sim/autopilot/heading_down", "sim/autopilot/heading_up"},
	EncAltitude: {"sim/autopilot/altitude_down", "sim/autopilot/altitude_up"},
	EncVertical: {"sim/autopilot/vertical_speed_down", "sim/autopilot/vertical_speed_up"},
	EncBaro:     {"sim/instruments/barometer_copilot_down", "sim/instruments/barometer_copilot_up"},
}

// switchPositions maps multi-position selector detents onto switch states.
var switchPositions = map[int]struct {
	Switch   SwitchID
	Position int
}{
	25: {SwAltStep, 0}, // 100 ft
	26: {SwAltStep, 1}, // 1000 ft
	43: {SwBaroUnit, 0}, // inHg
	44: {SwBaroUnit, 1}, // hPa
	45: {SwNDMode, 0},
	46: {SwNDMode, 1},
	47: {SwNDMode, 2},
	48: {SwNDMode, 3},
	49: {SwNDMode, 4},
	50: {SwNDRange, 0},
	51: {SwNDRange, 1},
	52: {SwNDRange, 2},
	53: {SwNDRange, 3},
	54: {SwNDRange, 4},
	55: {SwNDRange, 5},
	56: {SwEFIS1Sel, 2}, // VOR
	57: {SwEFIS1Sel, 1}, // OFF
	58: {SwEFIS1Sel, 0}, // ADF
	59: {SwEFIS2Sel, 2},
	60: {SwEFIS2Sel, 1},
	61: {SwEFIS2Sel, 0},
}

// switchDatarefs maps each switch onto the dataref that receives its position.
var switchDatarefs = map[SwitchID]string{
	SwAltStep:  "AirbusFBW/ALT100_1000",
	SwBaroUnit: "AirbusFBW/BaroUnitFO",
	SwNDMode:   "AirbusFBW/NDmodeFO",
	SwNDRange:  "AirbusFBW/NDrangeFO",
	SwEFIS1Sel: "sim/cockpit2/EFIS/EFIS_1_selection_copilot",
	SwEFIS2Sel: "sim/cockpit2/EFIS/EFIS_2_selection_copilot",
}

type BindingKind int

const (
	BindCommand BindingKind = iota // press fires an X-Plane command
	BindToggle                     // press inverts a boolean dataref
)

type ButtonBinding struct {
	Label string
	Ref   string
	Kind  BindingKind
}

// buttonBindings covers the plain push buttons. Encoder detents and selector
// switches are handled through encoderSteps/switchPositions instead.
var buttonBindings = map[int]ButtonBinding{
	0:  {"MACH", "toliss_airbus/ias_mach_button_push", BindCommand},
	1:  {"LOC", "AirbusFBW/LOCbutton", BindCommand},
	2:  {"TRK", "toliss_airbus/hdgtrk_button_push", BindCommand},
	3:  {"AP1", "AirbusFBW/AP1Engage", BindToggle},
	4:  {"AP2", "AirbusFBW/AP2Engage", BindToggle},
	5:  {"A/THR", "AirbusFBW/ATHRbutton", BindCommand},
	6:  {"EXPED", "AirbusFBW/EXPEDbutton", BindCommand},
	7:  {"METRIC", "toliss_airbus/metric_alt_button_push", BindCommand},
	8:  {"APPR", "AirbusFBW/APPRbutton", BindCommand},
	11: {"SPD PUSH", "AirbusFBW/PushSPDSel", BindCommand},
	12: {"SPD PULL", "AirbusFBW/PullSPDSel", BindCommand},
	15: {"HDG PUSH", "AirbusFBW/PushHDGSel", BindCommand},
	16: {"HDG PULL", "AirbusFBW/PullHDGSel", BindCommand},
	19: {"ALT PUSH", "AirbusFBW/PushAltitude", BindCommand},
	20: {"ALT PULL", "AirbusFBW/PullAltitude", BindCommand},
	23: {"VS PUSH", "AirbusFBW/PushVSSel", BindCommand},
	24: {"VS PULL", "AirbusFBW/PullVSSel", BindCommand},

	32: {"R FD", "toliss_airbus/fd2_push", BindCommand},
	33: {"R LS", "toliss_airbus/dispcommands/CoLSButtonPush", BindCommand},
	34: {"R CSTR", "toliss_airbus/dispcommands/CoCstrPushButton", BindCommand},
	35: {"R WPT", "toliss_airbus/dispcommands/CoWptPushButton", BindCommand},
	36: {"R VOR.D", "toliss_airbus/dispcommands/CoVorDPushButton", BindCommand},
	37: {"R NDB", "toliss_airbus/dispcommands/CoNdbPushButton", BindCommand},
	38: {"R ARPT", "toliss_airbus/dispcommands/CoArptPushButton", BindCommand},
	39: {"R STD PUSH", "toliss_airbus/copilot_baro_push", BindCommand},
	40: {"R STD PULL", "toliss_airbus/copilot_baro_pull", BindCommand},
}

// Datarefs the bridge subscribes to. The int is the RREF frequency in Hz;
// values that drive the LCD refresh faster than lamp-only values.
var subscribedDatarefs = []struct {
	Ref  string
	Freq int
}{
	{"AirbusFBW/SPDdashed", 2},
	{"AirbusFBW/HDGdashed", 2},
	{"AirbusFBW/VSdashed", 2},
	{"sim/cockpit2/autopilot/airspeed_dial_kts_mach", 5},
	{"sim/cockpit/autopilot/airspeed_is_mach", 2},
	{"AirbusFBW/SPDmanaged", 2},
	{"sim/cockpit/autopilot/heading_mag", 5},
	{"AirbusFBW/HDGmanaged", 2},
	{"AirbusFBW/HDGTRKmode", 2},
	{"sim/cockpit/autopilot/altitude", 5},
	{"AirbusFBW/ALTmanaged", 2},
	{"sim/cockpit/autopilot/vertical_velocity", 5},
	{"sim/cockpit2/autopilot/fpa", 2},
	{"AirbusFBW/APVerticalMode", 5},
	{"sim/cockpit2/gauges/actuators/barometer_setting_in_hg_copilot", 2},
	{"AirbusFBW/BaroStdFO", 2},
	{"AirbusFBW/BaroUnitFO", 2},
	{"AirbusFBW/AP1Engage", 3},
	{"AirbusFBW/AP2Engage", 3},
	{"AirbusFBW/APPRilluminated", 3},
	{"AirbusFBW/ATHRmode", 3},
	{"AirbusFBW/LOCilluminated", 3},
	{"AirbusFBW/SupplLightLevelRehostats[0]", 3},
	{"AirbusFBW/SupplLightLevelRehostats[1]", 3},
	{"AirbusFBW/NDShowARPTFO", 3},
	{"AirbusFBW/NDShowNDBFO", 3},
	{"AirbusFBW/NDShowVORDFO", 3},
	{"AirbusFBW/NDShowWPTFO", 3},
	{"AirbusFBW/NDShowCSTRFO", 3},
	{"AirbusFBW/FD2Engage", 3},
	{"AirbusFBW/ILSonFO", 3},
}

// ledDatarefs maps illumination datarefs onto their LEDs. A non-zero value
// lights the LED at the current panel brightness.
var ledDatarefs = map[string]LedID{
	"AirbusFBW/AP1Engage":       LedAP1Green,
	"AirbusFBW/AP2Engage":       LedAP2Green,
	"AirbusFBW/APPRilluminated": LedApprGreen,
	"AirbusFBW/ATHRmode":        LedAthrGreen,
	"AirbusFBW/LOCilluminated":  LedLocGreen,
	"AirbusFBW/NDShowARPTFO":    LedEfisrArptGreen,
	"AirbusFBW/NDShowNDBFO":     LedEfisrNdbGreen,
	"AirbusFBW/NDShowVORDFO":    LedEfisrVordGreen,
	"AirbusFBW/NDShowWPTFO":     LedEfisrWptGreen,
	"AirbusFBW/NDShowCSTRFO":    LedEfisrCstrGreen,
	"AirbusFBW/FD2Engage":       LedEfisrFdGreen,
	"AirbusFBW/ILSonFO":         LedEfisrLsGreen,
}
