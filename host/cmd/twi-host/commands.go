package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"megatwi/core"
	"megatwi/host/mcu"
)

// withBus connects, runs fn and tears the connection down.
func withBus(fn func(m *mcu.MCU) error) error {
	m, err := mcu.Connect(mcuConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := fn(m); err != nil {
		return err
	}
	return m.Err()
}

func parseUint8(s, what string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "bad %s %q", what, s)
	}
	return uint8(v), nil
}

func parseAddress(s string) (uint8, error) {
	addr, err := parseUint8(s, "address")
	if err != nil {
		return 0, err
	}
	if addr > 0x7F {
		return 0, core.ErrAddress
	}
	return addr, nil
}

func scan(c *cli.Context) error {
	return withBus(func(m *mcu.MCU) error {
		found := m.Bus.Scan()
		for _, addr := range found {
			fmt.Fprintf(c.App.Writer, "0x%02x\n", addr)
		}
		if len(found) == 0 {
			fmt.Fprintln(c.App.Writer, "no devices")
		}
		return nil
	})
}

func write(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return errors.New("usage: write ADDR REG BYTE...")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	reg, err := parseUint8(args[1], "register")
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(args)-2)
	for _, s := range args[2:] {
		b, err := parseUint8(s, "byte")
		if err != nil {
			return err
		}
		data = append(data, b)
	}

	return withBus(func(m *mcu.MCU) error {
		return errors.Wrapf(m.Bus.WriteRegister(addr, reg, data), "write 0x%02x", addr)
	})
}

func read(c *cli.Context) error {
	args := c.Args()
	if len(args) != 3 {
		return errors.New("usage: read ADDR REG COUNT")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	reg, err := parseUint8(args[1], "register")
	if err != nil {
		return err
	}
	count, err := parseUint8(args[2], "count")
	if err != nil {
		return err
	}

	return withBus(func(m *mcu.MCU) error {
		data, err := m.ReadBlock(addr, reg, int(count))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "% x\n", data)
		return nil
	})
}

func dump(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: dump ADDR")
	}
	addr, err := parseAddress(c.Args().First())
	if err != nil {
		return err
	}
	start, length := c.Uint("start"), c.Uint("length")
	if start > 0xFF || length == 0 || start+length > 0x100 {
		return errors.New("dump range must lie within 0x00..0xff")
	}

	return withBus(func(m *mcu.MCU) error {
		data, err := m.ReadBlock(addr, uint8(start), int(length))
		if err != nil {
			return err
		}
		for off := 0; off < len(data); off += 16 {
			end := off + 16
			if end > len(data) {
				end = len(data)
			}
			fmt.Fprintf(c.App.Writer, "%02x: % x\n", int(start)+off, data[off:end])
		}
		return nil
	})
}

func info(c *cli.Context) error {
	return withBus(func(m *mcu.MCU) error {
		w := c.App.Writer
		fmt.Fprintf(w, "backend:     %s\n", m.Identity.Version)
		fmt.Fprintf(w, "base:        0x%04x\n", m.Identity.Base)
		fmt.Fprintf(w, "buffer:      %d bytes\n", m.Identity.BufferSize)
		fmt.Fprintf(w, "frequency:   %d Hz\n", m.Bus.Frequency())
		fmt.Fprintf(w, "bus state:   %v\n", m.Bus.BusState())
		last := m.Bus.LastResult().String()
		if !m.Bus.LastResult().Terminal() && !m.Bus.InFlight() {
			last = "none"
		}
		fmt.Fprintf(w, "last result: %s\n", last)
		return nil
	})
}
