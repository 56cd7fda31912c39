// Command twi-host drives a TWI bus from a PC, through bridge firmware on
// an ATmega4809 or through the built-in simulator.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "twi-host"
	app.Usage = "TWI master tool for the ATmega4809 register bridge"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "device, d",
			Usage: "serial device of the bridge firmware",
		},
		cli.IntFlag{
			Name:  "baud",
			Usage: "serial baud rate",
		},
		cli.BoolFlag{
			Name:  "sim",
			Usage: "use the simulator instead of a device",
		},
		cli.UintFlag{
			Name:  "frequency, f",
			Usage: "SCL frequency in Hz",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-transaction timeout",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "log register traffic",
		},
	}

	app.Before = loadConfig
	app.Commands = []cli.Command{
		{
			Name:   "scan",
			Usage:  "list responding addresses",
			Action: scan,
		},
		{
			Name:      "write",
			Usage:     "write bytes starting at a register",
			ArgsUsage: "ADDR REG BYTE...",
			Action:    write,
		},
		{
			Name:      "read",
			Usage:     "read bytes starting at a register",
			ArgsUsage: "ADDR REG COUNT",
			Action:    read,
		},
		{
			Name:      "dump",
			Usage:     "hex dump a register range",
			ArgsUsage: "ADDR",
			Flags: []cli.Flag{
				cli.UintFlag{Name: "start", Usage: "first register"},
				cli.UintFlag{Name: "length, n", Value: 256, Usage: "number of bytes"},
			},
			Action: dump,
		},
		{
			Name:   "info",
			Usage:  "show backend and bus state",
			Action: info,
		},
	}
	return app
}
