//go:build rp2040

// motion-node is the firmware: ADXL343 on SPI0, its INT1 on GP20, BLE
// network co-processor on UART1, console log on UART0.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"motionlink-go/bus"
	"motionlink-go/drivers/adxl343"
	"motionlink-go/services/config"
	"motionlink-go/services/heartbeat"
	"motionlink-go/services/linkncp"
	"motionlink-go/services/motion"
	"motionlink-go/services/motion/irq"
	"motionlink-go/types"
	"motionlink-go/x/hwcounter"
	"motionlink-go/x/logx"
)

const (
	pinSCK  = machine.GP18
	pinSDO  = machine.GP19
	pinSDI  = machine.GP16
	pinCS   = machine.GP17
	pinINT1 = machine.GP20

	pinNcpTX = machine.GP4
	pinNcpRX = machine.GP5
)

func fatal(args ...any) {
	logx.Error(args...)
	for {
		time.Sleep(time.Second)
	}
}

func main() {
	// Allow the console to come up before we print.
	time.Sleep(2 * time.Second)

	if err := uartx.UART0.Configure(uartx.UARTConfig{BaudRate: 115200, TX: machine.GP0, RX: machine.GP1}); err == nil {
		logx.SetOutput(uartx.UART0)
	}
	logx.Info("[main] boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	cfg, err := config.FromContext(ctx)
	if err != nil {
		fatal("[main] config:", err)
	}

	b := bus.NewBus(8)
	config.NewConfigService(cfg).Start(ctx, b.NewConnection("config"))
	_ = (&heartbeat.Service{Interval: 10 * time.Second}).Start(ctx, b.NewConnection("heartbeat"))

	// Sensor.
	pinCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	if err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 5_000_000,
		Mode:      3,
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinSDI,
	}); err != nil {
		fatal("[main] spi:", err)
	}
	sensor := adxl343.New(machine.SPI0, pinCS.Set)
	if err := sensor.Configure(adxl343.Config(cfg.Sensor)); err != nil {
		fatal("[main] adxl343:", err)
	}

	// Link.
	uart, ok := linkncp.OpenUART(cfg.Link.Port, uint32(cfg.Link.Baud), pinNcpTX, pinNcpRX)
	if !ok {
		fatal("[main] no uart", cfg.Link.Port)
	}
	link := linkncp.New(uart, b.NewConnection("ncp"), motion.TopicLinkEvent, cfg.Link.CmdTimeout)
	go link.Run(ctx)

	// Counter and loop.
	tmr := hwcounter.NewTimer(cfg.Timer.PeriodTicks())
	svc := motion.New(motion.Deps{
		Conn:     b.NewConnection("motion"),
		Counter:  tmr,
		Sensor:   sensor,
		Link:     link,
		SystemID: machine.DeviceID(),
	}, cfg)
	tmr.SetHandlers(svc.HandleOverflow, svc.HandleCompare)
	tmr.Start()

	if _, err := irq.Bind(irq.MachinePin{Pin: pinINT1}, irq.EdgeRising, svc, types.EventSensorInterrupt); err != nil {
		fatal("[main] int1:", err)
	}
	// The line is edge triggered; a source latched before the handler was
	// installed would never produce another edge.
	svc.PostEvent(types.EventSensorInterrupt)

	if err := svc.Boot(); err != nil {
		logx.Warn("[main] advertising not started:", err)
	}
	_ = svc.Run(ctx)
}
