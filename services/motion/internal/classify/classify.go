// Package classify turns the accelerometer's INT_SOURCE byte into
// notifications for the motion channels.
package classify

import (
	"motionlink-go/drivers/adxl343"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

// Source reads and clears the interrupt-source register.
type Source interface {
	InterruptSource() (byte, error)
}

// Sink takes one classified notification.
type Sink interface {
	Notify(id types.ChannelID, p types.Payload)
}

// rules are tested in order; every matching bit produces a notification.
var rules = [...]struct {
	bit  byte
	note types.Notification
}{
	{adxl343.IntFreeFall, types.Notification{Channel: types.ChannelFreeFall, Payload: types.Payload{Value: 1}}},
	{adxl343.IntActivity, types.Notification{Channel: types.ChannelActivity, Payload: types.Payload{Value: 1}}},
	{adxl343.IntInactivity, types.Notification{Channel: types.ChannelActivity, Payload: types.Payload{Value: 0}}},
	{adxl343.IntDoubleTap, types.Notification{Channel: types.ChannelDoubleTap, Payload: types.Payload{Value: 1}}},
}

// Decode calls fn for each recognised bit in src. Other bits are ignored.
func Decode(src byte, fn func(types.Notification)) {
	for _, r := range rules {
		if src&r.bit != 0 {
			fn(r.note)
		}
	}
}

type Classifier struct {
	src  Source
	sink Sink
}

func New(src Source, sink Sink) *Classifier {
	if src == nil || sink == nil {
		panic("classify: nil collaborator")
	}
	return &Classifier{src: src, sink: sink}
}

// Handle runs on a sensor interrupt. It returns the raw source byte. A read
// failure forwards nothing.
func (c *Classifier) Handle() (byte, error) {
	src, err := c.src.InterruptSource()
	if err != nil {
		logx.Warn("[classify] int source read failed:", err)
		return 0, err
	}
	logx.Debug("[classify] int source", src)
	Decode(src, func(n types.Notification) {
		c.sink.Notify(n.Channel, n.Payload)
	})
	return src, nil
}
