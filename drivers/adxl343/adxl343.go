// Package adxl343 drives the ADXL343 accelerometer over 4-wire SPI
// (mode 3, MSB first, up to 5 MHz).
//
// The driver owns the chip-select line through a setter so it works with
// machine.Pin on hardware and with a fake in tests:
//
//	d := adxl343.New(machine.SPI0, func(v bool) { cs.Set(v) })
//	err := d.Configure(adxl343.DefaultConfig())
//	src, err := d.InterruptSource()
//
// Reading INT_SOURCE clears the latched interrupt bits on the device.
package adxl343

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrDeviceID = errors.New("adxl343: unexpected device id")
	ErrLength   = errors.New("adxl343: bad transfer length")
)

// DumpLen is the THRESH_TAP..FIFO_STATUS block, the longest burst allowed.
const DumpLen = 29

// Config holds register values written by Configure, in device units.
type Config struct {
	Rate           uint8
	ActThreshold   uint8
	InactThreshold uint8
	InactTime      uint8
	ActInactCtl    uint8
	FreeFallThresh uint8
	FreeFallTime   uint8
	TapThreshold   uint8
	TapDuration    uint8
	TapLatency     uint8
	TapWindow      uint8
	TapAxes        uint8
	IntEnable      uint8
	PowerCtl       uint8
}

// DefaultConfig: 100 Hz low power, activity at 1/4 g, inactivity below
// 1/2 g for 4 s, free-fall under 0.56 g for 200 ms, double-tap at 3 g on
// all axes. Everything routes to INT1.
func DefaultConfig() Config {
	return Config{
		Rate:           BWLowPower | Rate100Hz,
		ActThreshold:   4,
		InactThreshold: 8,
		InactTime:      4,
		ActInactCtl:    0xFF,
		FreeFallThresh: 9,
		FreeFallTime:   40,
		TapThreshold:   48,
		TapDuration:    16,
		TapLatency:     80,
		TapWindow:      200,
		TapAxes:        0x07,
		IntEnable:      IntFreeFall | IntActivity | IntInactivity | IntDoubleTap,
		PowerCtl:       PowerLink | PowerAutoSleep | PowerMeasure,
	}
}

// Device is an ADXL343 on a configured SPI bus.
type Device struct {
	bus drivers.SPI
	cs  func(level bool)

	w [DumpLen + 1]byte
	r [DumpLen + 1]byte
}

// New does not touch the device. cs is driven low for the duration of
// each transfer; a nil cs means chip select is handled by the bus.
func New(bus drivers.SPI, cs func(level bool)) *Device {
	if cs == nil {
		cs = func(bool) {}
	}
	cs(true)
	return &Device{bus: bus, cs: cs}
}

func command(reg byte, n int, read bool) byte {
	c := reg & addrMask
	if n > 1 {
		c |= cmdMultiByte
	}
	if read {
		c |= cmdRead
	}
	return c
}

func (d *Device) xfer(n int) error {
	d.cs(false)
	err := d.bus.Tx(d.w[:n], d.r[:n])
	d.cs(true)
	return err
}

// ReadRegisters reads len(dst) consecutive registers starting at reg.
func (d *Device) ReadRegisters(reg byte, dst []byte) error {
	n := len(dst)
	if n == 0 || n > DumpLen {
		return ErrLength
	}
	d.w[0] = command(reg, n, true)
	for i := 1; i <= n; i++ {
		d.w[i] = 0xFF
	}
	if err := d.xfer(n + 1); err != nil {
		return err
	}
	copy(dst, d.r[1:n+1])
	return nil
}

func (d *Device) ReadRegister(reg byte) (byte, error) {
	var b [1]byte
	err := d.ReadRegisters(reg, b[:])
	return b[0], err
}

// WriteRegisters writes src to consecutive registers starting at reg.
func (d *Device) WriteRegisters(reg byte, src []byte) error {
	n := len(src)
	if n == 0 || n > DumpLen {
		return ErrLength
	}
	d.w[0] = command(reg, n, false)
	copy(d.w[1:], src)
	return d.xfer(n + 1)
}

func (d *Device) WriteRegister(reg, val byte) error {
	return d.WriteRegisters(reg, []byte{val})
}

func (d *Device) DeviceID() (byte, error) { return d.ReadRegister(RegDevID) }

// InterruptSource reads and clears INT_SOURCE.
func (d *Device) InterruptSource() (byte, error) { return d.ReadRegister(RegIntSource) }

// Acceleration returns the raw 10-bit right-justified samples.
func (d *Device) Acceleration() (x, y, z int16, err error) {
	var b [6]byte
	if err = d.ReadRegisters(RegDataX0, b[:]); err != nil {
		return
	}
	x = int16(uint16(b[0]) | uint16(b[1])<<8)
	y = int16(uint16(b[2]) | uint16(b[3])<<8)
	z = int16(uint16(b[4]) | uint16(b[5])<<8)
	return
}

// Configure checks the device id and programs the interrupt engine.
// Interrupts are masked while thresholds change and any latched source is
// cleared at the end.
func (d *Device) Configure(cfg Config) error {
	id, err := d.DeviceID()
	if err != nil {
		return err
	}
	if id != DeviceIDValue {
		return ErrDeviceID
	}

	seq := [...]struct{ reg, val byte }{
		{RegIntEnable, 0},
		{RegBWRate, cfg.Rate},
		{RegThreshInact, cfg.InactThreshold},
		{RegTimeInact, cfg.InactTime},
		{RegThreshAct, cfg.ActThreshold},
		{RegActInactCtl, cfg.ActInactCtl},
		{RegThreshFF, cfg.FreeFallThresh},
		{RegTimeFF, cfg.FreeFallTime},
		{RegThreshTap, cfg.TapThreshold},
		{RegDur, cfg.TapDuration},
		{RegLatent, cfg.TapLatency},
		{RegWindow, cfg.TapWindow},
		{RegTapAxes, cfg.TapAxes},
		{RegIntMap, 0},
		{RegIntEnable, cfg.IntEnable},
		{RegPowerCtl, cfg.PowerCtl},
	}
	for _, s := range seq {
		if err := d.WriteRegister(s.reg, s.val); err != nil {
			return err
		}
	}
	_, err = d.InterruptSource()
	return err
}

// Dump reads the THRESH_TAP..FIFO_STATUS block into dst.
func (d *Device) Dump(dst *[DumpLen]byte) error {
	return d.ReadRegisters(RegThreshTap, dst[:])
}
