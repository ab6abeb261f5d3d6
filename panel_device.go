package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sstallion/go-hid"
)

var (
	ErrDeviceNotFound     = errors.New("no compatible winwing device found")
	ErrDeviceDisconnected = errors.New("winwing device disconnected")
	ErrReadTimeout        = errors.New("read timed out")
)

const winwingVendorID = 0x4098

// DeviceUnits describes which panels are present behind a product id.
type DeviceUnits struct {
	EfisR bool
	EfisL bool
}

type panelModel struct {
	productID uint16
	name      string
	units     DeviceUnits
}

// Known FCU product ids. The EFIS-L display is not driven, its product ids
// are listed so the combined units still open.
var panelModels = []panelModel{
	{0xbb10, "FCU", DeviceUnits{}},
	{0xbc1e, "FCU + EFIS-R", DeviceUnits{EfisR: true}},
	{0xbc1d, "FCU + EFIS-L", DeviceUnits{EfisL: true}},
	{0xba01, "FCU + EFIS-L + EFIS-R", DeviceUnits{EfisR: true, EfisL: true}},
}

// PanelTransport abstracts the USB HID connection to the panel so the engine
// can run against a fake in tests.
type PanelTransport interface {
	ReadReport(timeout time.Duration) ([]byte, error)
	WriteReport(report []byte) error
	Units() DeviceUnits
	Name() string
	Close() error
}

// PanelDevice is the hidapi-backed transport for a real panel.
type PanelDevice struct {
	dev   *hid.Device
	name  string
	units DeviceUnits
}

var hidInitOnce sync.Once

// OpenPanel enumerates the known product ids and opens the first panel found.
func OpenPanel() (*PanelDevice, error) {
	hidInitOnce.Do(func() {
		if err := hid.Init(); err != nil {
			slog.Error("hidapi init failed", "error", err)
		}
	})

	for _, m := range panelModels {
		dev, err := hid.OpenFirst(winwingVendorID, m.productID)
		if err != nil || dev == nil {
			continue
		}
		slog.Info("panel connected", "model", m.name)
		return &PanelDevice{dev: dev, name: m.name, units: m.units}, nil
	}
	return nil, ErrDeviceNotFound
}

func (p *PanelDevice) Name() string       { return p.name }
func (p *PanelDevice) Units() DeviceUnits { return p.units }

// ReadReport blocks for at most timeout. A timeout is reported as
// ErrReadTimeout so the read loop can poll without treating it as a failure;
// any other error means the device is gone.
func (p *PanelDevice) ReadReport(timeout time.Duration) ([]byte, error) {
	buf := make([]byte, outputReportLen)
	n, err := p.dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceDisconnected, err)
	}
	if n == 0 {
		return nil, ErrReadTimeout
	}
	return buf[:n], nil
}

func (p *PanelDevice) WriteReport(report []byte) error {
	if _, err := p.dev.Write(report); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceDisconnected, err)
	}
	return nil
}

func (p *PanelDevice) Close() error {
	return p.dev.Close()
}
