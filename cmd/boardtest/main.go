//go:build rp2040

// boardtest brings up the motion board piece by piece: accelerometer
// identity and register block, INT1 edges, and a command round trip to the
// link co-processor. It loops, printing a report every few seconds.
package main

import (
	"context"
	"machine"
	"time"

	"motionlink-go/bus"
	"motionlink-go/drivers/adxl343"
	"motionlink-go/errcode"
	"motionlink-go/services/linkncp"
	"motionlink-go/services/motion/irq"
	"motionlink-go/types"
)

const (
	reportEvery = 3 * time.Second
	ncpTimeout  = 200 * time.Millisecond
)

// discard drops events; the line's hit counter is all the test reads.
type discard struct{}

func (discard) PostEvent(types.Event) {}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}

func main() {
	time.Sleep(2 * time.Second)
	println("[boardtest] start")

	machine.GP17.Configure(machine.PinConfig{Mode: machine.PinOutput})
	_ = machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 5_000_000,
		Mode:      3,
		SCK:       machine.GP18,
		SDO:       machine.GP19,
		SDI:       machine.GP16,
	})
	acc := adxl343.New(machine.SPI0, machine.GP17.Set)

	id, err := acc.DeviceID()
	switch {
	case err != nil:
		println("[boardtest] adxl343 read failed:", err.Error())
	case id != adxl343.DeviceIDValue:
		println("[boardtest] adxl343 id", hexByte(id), "want", hexByte(adxl343.DeviceIDValue))
	default:
		println("[boardtest] adxl343 ok")
		if err := acc.Configure(adxl343.DefaultConfig()); err != nil {
			println("[boardtest] adxl343 configure:", err.Error())
		}
	}

	int1, err := irq.Bind(irq.MachinePin{Pin: machine.GP20}, irq.EdgeRising, discard{}, types.EventSensorInterrupt)
	if err != nil {
		println("[boardtest] int1 bind:", err.Error())
	}

	ctx := context.Background()
	b := bus.NewBus(4)
	ev := b.NewConnection("test").Subscribe(bus.T("link", "#"))
	var link *linkncp.Link
	if u, ok := linkncp.OpenUART("uart1", 115200, machine.GP4, machine.GP5); ok {
		link = linkncp.New(u, b.NewConnection("ncp"), bus.T("link", "event"), ncpTimeout)
		go link.Run(ctx)
	} else {
		println("[boardtest] uart1 unavailable")
	}

	var dump [adxl343.DumpLen]byte
	for cycle := 1; ; cycle++ {
		if int1 != nil {
			println("[boardtest] cycle", cycle, "int1 edges", int1.Hits())
		} else {
			println("[boardtest] cycle", cycle)
		}

		if err := acc.Dump(&dump); err != nil {
			println("[boardtest] dump:", err.Error())
		} else {
			line := make([]byte, 0, 3*len(dump))
			for _, v := range dump {
				line = append(line, hexByte(v)...)
				line = append(line, ' ')
			}
			println("[boardtest] regs 1d..39:", string(line))
		}
		if x, y, z, err := acc.Acceleration(); err == nil {
			println("[boardtest] accel", x, y, z)
		}
		if src, err := acc.InterruptSource(); err == nil {
			println("[boardtest] int source", hexByte(src))
		}

		if link != nil {
			start := time.Now()
			err := link.StartAdvertising()
			println("[boardtest] ncp adv_start:", string(errcode.Of(err)), time.Since(start).String())
			_ = link.StopAdvertising()
		}
		for drained := false; !drained; {
			select {
			case m := <-ev.Channel():
				if le, ok := m.Payload.(types.LinkEvent); ok {
					println("[boardtest] link event", le.Kind.String(), le.Conn, le.Attr)
				}
			default:
				drained = true
			}
		}
		time.Sleep(reportEvery)
	}
}
