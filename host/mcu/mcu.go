// Package mcu connects host tools to a TWI master: bridge firmware over a
// serial port, or the in-process simulator.
package mcu

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"megatwi/bridge"
	"megatwi/core"
	"megatwi/host/serial"
	"megatwi/sim"
)

// Config selects and configures the backend.
type Config struct {
	// Device is the serial device of the bridge firmware.
	Device string
	Baud   int

	// Simulate runs against sim.Peripheral instead of a device.
	Simulate bool

	// SimDevices lists 7-bit addresses where the simulator attaches a
	// 256-byte memory.
	SimDevices []uint8

	// Frequency is the SCL frequency in Hz.
	Frequency uint32

	// Timeout bounds each bus transaction.
	Timeout time.Duration

	// RequestTimeout bounds each bridge round trip.
	RequestTimeout time.Duration

	Logger logrus.FieldLogger
}

// MCU is a started bus and the backend behind it.
type MCU struct {
	Bus      *core.Bus
	Identity bridge.Identity

	client *bridge.Client
	periph *sim.Peripheral
	log    logrus.FieldLogger
}

// Connect opens the backend and starts the bus.
func Connect(cfg Config) (*MCU, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	m := &MCU{log: cfg.Logger.WithField("component", "mcu")}
	var err error
	if cfg.Simulate {
		m.simulate(cfg)
	} else if err = m.dial(cfg); err != nil {
		return nil, err
	}

	if r := m.Bus.Start(cfg.Frequency); r != core.ResultOk {
		m.Close()
		return nil, errors.Wrap(r.Err(), "mcu: start bus")
	}
	if err := m.Err(); err != nil {
		m.Close()
		return nil, errors.Wrap(err, "mcu: start bus")
	}

	m.log.WithFields(logrus.Fields{
		"backend":   m.Identity.Version,
		"frequency": m.Bus.Frequency(),
	}).Info("bus started")
	return m, nil
}

func (m *MCU) simulate(cfg Config) {
	m.periph = sim.New(cfg.Logger)
	for _, addr := range cfg.SimDevices {
		m.periph.Attach(addr, sim.NewMemory(256))
	}
	m.Bus = core.New(m.periph, core.Config{Timeout: cfg.Timeout, Router: m.periph})
	m.periph.SetInterruptHandler(m.Bus.HandleInterrupt)
	m.Identity = bridge.Identity{
		Version:    "simulator",
		Base:       core.TWI0Base,
		BufferSize: core.BufferSize,
	}
}

func (m *MCU) dial(cfg Config) error {
	scfg := serial.DefaultConfig(cfg.Device)
	if cfg.Baud > 0 {
		scfg.Baud = cfg.Baud
	}
	port, err := serial.Open(scfg)
	if err != nil {
		return err
	}
	if err := port.Flush(); err != nil {
		m.log.WithError(err).Debug("flush failed")
	}

	m.client = bridge.NewClient(port, bridge.ClientConfig{
		Timeout: cfg.RequestTimeout,
		Logger:  cfg.Logger,
	})
	m.Identity, err = m.client.Identify()
	if err != nil {
		m.client.Close()
		return errors.Wrapf(err, "mcu: identify %s", cfg.Device)
	}
	if m.Identity.Version != bridge.Version {
		m.log.WithField("version", m.Identity.Version).Warn("unexpected firmware version")
	}

	m.Bus = core.New(m.client, core.Config{
		Timeout: cfg.Timeout,
		Polled:  true,
		Router:  m.client,
	})
	return nil
}

// Simulator returns the simulated peripheral, or nil on real hardware.
func (m *MCU) Simulator() *sim.Peripheral {
	return m.periph
}

// Err reports a bridge link failure.
func (m *MCU) Err() error {
	if m.client == nil {
		return nil
	}
	return m.client.Err()
}

// ReadBlock reads n bytes starting at register start, in chunks that fit
// the transaction buffer.
func (m *MCU) ReadBlock(addr, start uint8, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		chunk := n - len(out)
		if chunk > core.BufferSize {
			chunk = core.BufferSize
		}
		buf := make([]byte, chunk)
		reg := start + uint8(len(out))
		if err := m.Bus.ReadRegister(addr, reg, buf); err != nil {
			return out, errors.Wrapf(err, "read 0x%02x at 0x%02x", addr, reg)
		}
		out = append(out, buf...)
	}
	return out, nil
}

// Close stops the bus and releases the backend.
func (m *MCU) Close() error {
	if m.Bus != nil && m.Bus.Started() {
		m.Bus.Stop()
	}
	if m.periph != nil {
		m.periph.Close()
	}
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
