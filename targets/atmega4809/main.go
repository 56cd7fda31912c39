//go:build tinygo && atmega4809

// Bridge firmware: serves the TWI0 register file over the USART so the
// twi-host tool can drive the bus from a PC.
package main

import (
	"machine"

	"megatwi/bridge"
	"megatwi/core"
	"megatwi/targets/atmega4809/twi0"
)

// baudRate matches serial.DefaultBaud on the host.
const baudRate = 115200

func main() {
	uart := machine.Serial
	uart.Configure(machine.UARTConfig{BaudRate: baudRate})

	// The host drives the bus in polled mode, so the TWIM vector is never
	// attached here.
	server := bridge.NewServer(twi0.Registers{}, twi0.Router{})
	for {
		if err := server.Serve(uart); err != nil {
			core.DebugPrintln("[BRIDGE] serve: " + err.Error())
		}
	}
}
