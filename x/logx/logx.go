// Package logx is the diagnostic log used across the firmware.
//
// Calls take a message followed by values, println style:
//
//	logx.Warn("[notify] indication dropped:", ch, err)
//
// Host builds write through glog. MCU builds format without fmt into a ring
// buffer that a goroutine drains to the console UART, so a log call from the
// event loop never waits on the wire. Never log from an interrupt handler.
package logx
