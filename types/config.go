package types

import (
	"time"

	"motionlink-go/errcode"
)

// TimerConfig describes the free-running hardware counter.
type TimerConfig struct {
	PeriodMs  uint32 `yaml:"period_ms"`
	OscHz     uint32 `yaml:"osc_hz"`
	Prescaler uint32 `yaml:"prescaler"`
}

// TicksPerSecond is the counter rate after prescaling.
func (t TimerConfig) TicksPerSecond() uint32 {
	if t.Prescaler == 0 {
		return 0
	}
	return t.OscHz / t.Prescaler
}

// PeriodTicks is the counter reload value.
func (t TimerConfig) PeriodTicks() uint32 {
	return uint32(uint64(t.PeriodMs) * uint64(t.TicksPerSecond()) / 1000)
}

// SensorConfig holds the accelerometer interrupt thresholds in register units.
type SensorConfig struct {
	Rate           uint8 `yaml:"rate"`            // BW_RATE value
	ActThreshold   uint8 `yaml:"act_threshold"`   // 62.5 mg/LSB
	InactThreshold uint8 `yaml:"inact_threshold"` // 62.5 mg/LSB
	InactTime      uint8 `yaml:"inact_time"`      // 1 s/LSB
	ActInactCtl    uint8 `yaml:"act_inact_ctl"`
	FreeFallThresh uint8 `yaml:"ff_threshold"`  // 62.5 mg/LSB
	FreeFallTime   uint8 `yaml:"ff_time"`       // 5 ms/LSB
	TapThreshold   uint8 `yaml:"tap_threshold"` // 62.5 mg/LSB
	TapDuration    uint8 `yaml:"tap_duration"`  // 625 us/LSB
	TapLatency     uint8 `yaml:"tap_latency"`   // 1.25 ms/LSB
	TapWindow      uint8 `yaml:"tap_window"`    // 1.25 ms/LSB
	TapAxes        uint8 `yaml:"tap_axes"`
	IntEnable      uint8 `yaml:"int_enable"`
	PowerCtl       uint8 `yaml:"power_ctl"`
}

// LinkKind selects the wireless link adapter.
type LinkKind string

const (
	LinkKindNCP      LinkKind = "ncp"
	LinkKindMQTT     LinkKind = "mqtt"
	LinkKindLoopback LinkKind = "loopback"
)

// LinkConfig configures the link adapter.
type LinkConfig struct {
	Kind        LinkKind      `yaml:"kind"`
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	Broker      string        `yaml:"broker"`
	TopicPrefix string        `yaml:"topic_prefix"`
	ClientID    string        `yaml:"client_id"`
	CmdTimeout  time.Duration `yaml:"cmd_timeout"`
	AckTimeout  time.Duration `yaml:"ack_timeout"`
}

// MotionConfig is the full device configuration.
type MotionConfig struct {
	Device           string       `yaml:"device"`
	Timer            TimerConfig  `yaml:"timer"`
	Sensor           SensorConfig `yaml:"sensor"`
	Link             LinkConfig   `yaml:"link"`
	HeartbeatPeriods uint32       `yaml:"heartbeat_periods"` // status every N overflows; 0 disables
	AdvertiseRetryMs uint32       `yaml:"advertise_retry_ms"`
}

// Validate rejects configurations the clock or link cannot run with.
func (c MotionConfig) Validate() error {
	const op = "config"
	switch {
	case c.Timer.PeriodMs == 0:
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "timer period is zero"}
	case c.Timer.OscHz == 0 || c.Timer.Prescaler == 0:
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "timer frequency is zero"}
	case c.Timer.TicksPerSecond() < 1000:
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "timer slower than 1 kHz"}
	case c.Timer.PeriodTicks() < 2:
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "timer period under 2 ticks"}
	case c.AdvertiseRetryMs == 0 || c.AdvertiseRetryMs >= c.Timer.PeriodMs:
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "advertising retry must fall inside one timer period"}
	}
	switch c.Link.Kind {
	case LinkKindNCP, LinkKindLoopback:
	case LinkKindMQTT:
		if c.Link.Broker == "" {
			return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "mqtt link needs a broker"}
		}
	default:
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "unknown link kind " + string(c.Link.Kind)}
	}
	return nil
}
