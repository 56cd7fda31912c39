package core

import "tinygo.org/x/drivers"

// Bus satisfies the bus interface of the TinyGo driver collection, so
// sensors such as the ADXL345 can be created directly on it:
//
//	accel := adxl345.New(bus)
var _ drivers.I2C = (*Bus)(nil)

// DriverBus returns b as a drivers.I2C.
func DriverBus(b *Bus) drivers.I2C {
	return b
}
