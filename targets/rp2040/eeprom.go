//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/at24cx"

	"coildriver/persist"
)

// OpenEEPROM configures I2C0 on its default pins and returns the wave store
// backed by an AT24Cxx at addr.
func OpenEEPROM(addr uint16, offset int64) (*persist.Store, error) {
	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
		return nil, err
	}

	dev := at24cx.New(bus)
	dev.Address = addr
	dev.Configure(at24cx.Config{})

	return persist.New(&dev, offset), nil
}
