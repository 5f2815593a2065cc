// Package config resolves the device configuration and publishes it,
// retained, under config/<section> so services can pick up their part.
package config

import (
	"context"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) (types.MotionConfig, bool) {
	c, ok := embeddedConfigs[device]
	return c, ok
}

// Lookup returns the built-in configuration for device.
func Lookup(device string) (types.MotionConfig, error) {
	c, ok := EmbeddedConfigLookup(device)
	if !ok {
		return types.MotionConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config lookup", Msg: "no embedded config for device " + device}
	}
	c.Device = device
	return c, nil
}

// FromContext resolves the config for the device ID stored in ctx under
// CtxDeviceKey.
func FromContext(ctx context.Context) (types.MotionConfig, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return types.MotionConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config lookup", Msg: "missing device ID in context"}
	}
	return Lookup(device)
}

type ConfigService struct {
	Name string
	cfg  types.MotionConfig
}

func NewConfigService(cfg types.MotionConfig) *ConfigService {
	return &ConfigService{Name: serviceName, cfg: cfg}
}

func (s *ConfigService) Config() types.MotionConfig { return s.cfg }

type section struct {
	key string
	val any
}

// sections splits the config by the topic each part is published on.
func (s *ConfigService) sections() []section {
	return []section{
		{"device", s.cfg.Device},
		{"timer", s.cfg.Timer},
		{"sensor", s.cfg.Sensor},
		{"link", s.cfg.Link},
		{"heartbeat", s.cfg.HeartbeatPeriods},
		{"advertise_retry_ms", s.cfg.AdvertiseRetryMs},
	}
}

func (s *ConfigService) publishConfig(conn *bus.Connection) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	for _, sec := range s.sections() {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, sec.key), sec.val, true))
	}
	return nil
}

// Start publishes the config in a goroutine. A config that fails
// validation is logged and not published.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(conn); err != nil {
			logx.Error("[config] not published:", err)
			return
		}
		logx.Info("[config] published for", s.cfg.Device)
	}()
}
