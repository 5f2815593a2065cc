package config

import (
	"time"

	"motionlink-go/drivers/adxl343"
	"motionlink-go/types"
)

// Built-in configurations keyed by device ID (the value placed in ctx
// under CtxDeviceKey).

// pico: ADXL343 on SPI0, link co-processor on UART1, counter on the 1 MHz
// system timer.
var cfgPico = types.MotionConfig{
	Timer: types.TimerConfig{
		PeriodMs:  3000,
		OscHz:     1_000_000,
		Prescaler: 1,
	},
	Sensor: types.SensorConfig(adxl343.DefaultConfig()),
	Link: types.LinkConfig{
		Kind:       types.LinkKindNCP,
		Port:       "uart1",
		Baud:       115200,
		CmdTimeout: 200 * time.Millisecond,
	},
	HeartbeatPeriods: 10,
	AdvertiseRetryMs: 1000,
}

// sim: a 32.768 kHz low-energy timer prescaled by 4, loopback link.
var cfgSim = types.MotionConfig{
	Timer: types.TimerConfig{
		PeriodMs:  3000,
		OscHz:     32768,
		Prescaler: 4,
	},
	Sensor: types.SensorConfig(adxl343.DefaultConfig()),
	Link: types.LinkConfig{
		Kind:       types.LinkKindLoopback,
		AckTimeout: 50 * time.Millisecond,
	},
	HeartbeatPeriods: 1,
	AdvertiseRetryMs: 1000,
}

var embeddedConfigs = map[string]types.MotionConfig{
	"pico": cfgPico,
	"sim":  cfgSim,
}
