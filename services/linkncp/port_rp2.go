//go:build rp2040 || rp2350

package linkncp

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// OpenUART configures uart0 or uart1 for the co-processor and returns it.
func OpenUART(id string, baud uint32, tx, rx machine.Pin) (*uartx.UART, bool) {
	var u *uartx.UART
	switch id {
	case "uart0":
		u = uartx.UART0
	case "uart1":
		u = uartx.UART1
	default:
		return nil, false
	}
	if err := u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx}); err != nil {
		return nil, false
	}
	return u, true
}
