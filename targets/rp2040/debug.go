//go:build rp2040

package main

import (
	"machine"

	"coildriver/core"
)

// InitDebugUART routes core debug output to UART0 (GP0 TX, GP1 RX) at 115200.
// USB carries the command protocol and cannot be shared.
func InitDebugUART() {
	uart := machine.UART0
	err := uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()
	core.DebugPrintln("debug UART ready")
}
