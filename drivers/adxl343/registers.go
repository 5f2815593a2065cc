package adxl343

// Expected DEVID.
const DeviceIDValue = 0xE5

// SPI command byte layout.
const (
	cmdRead      = 0x80
	cmdMultiByte = 0x40
	addrMask     = 0x3F
)

// Register map.
const (
	RegDevID        = 0x00
	RegThreshTap    = 0x1D
	RegOfsX         = 0x1E
	RegOfsY         = 0x1F
	RegOfsZ         = 0x20
	RegDur          = 0x21
	RegLatent       = 0x22
	RegWindow       = 0x23
	RegThreshAct    = 0x24
	RegThreshInact  = 0x25
	RegTimeInact    = 0x26
	RegActInactCtl  = 0x27
	RegThreshFF     = 0x28
	RegTimeFF       = 0x29
	RegTapAxes      = 0x2A
	RegActTapStatus = 0x2B
	RegBWRate       = 0x2C
	RegPowerCtl     = 0x2D
	RegIntEnable    = 0x2E
	RegIntMap       = 0x2F
	RegIntSource    = 0x30
	RegDataFormat   = 0x31
	RegDataX0       = 0x32
	RegFIFOCtl      = 0x38
	RegFIFOStatus   = 0x39
)

// INT_ENABLE / INT_MAP / INT_SOURCE bits.
const (
	IntOverrun    = 0x01
	IntWatermark  = 0x02
	IntFreeFall   = 0x04
	IntInactivity = 0x08
	IntActivity   = 0x10
	IntDoubleTap  = 0x20
	IntSingleTap  = 0x40
	IntDataReady  = 0x80
)

// POWER_CTL bits.
const (
	PowerWakeup    = 0x03
	PowerSleep     = 0x04
	PowerMeasure   = 0x08
	PowerAutoSleep = 0x10
	PowerLink      = 0x20
)

// BW_RATE low-power flag; the low nibble is the rate code.
const BWLowPower = 0x10

// Rate codes.
const (
	Rate25Hz  = 0x08
	Rate50Hz  = 0x09
	Rate100Hz = 0x0A
	Rate200Hz = 0x0B
)
