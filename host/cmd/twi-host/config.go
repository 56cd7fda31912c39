package main

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"

	"megatwi/core"
	"megatwi/host/mcu"
	"megatwi/host/serial"
)

// loadConfig layers defaults, the config file, TWI_* environment
// variables and global flags, in increasing precedence.
func loadConfig(c *cli.Context) error {
	viper.SetDefault("device", "/dev/ttyUSB0")
	viper.SetDefault("baud", serial.DefaultBaud)
	viper.SetDefault("sim", false)
	viper.SetDefault("frequency", core.FrequencyStandard)
	viper.SetDefault("timeout", time.Second)
	viper.SetDefault("request_timeout", 500*time.Millisecond)
	viper.SetDefault("debug", false)
	viper.SetDefault("sim_devices", []int{0x50})

	viper.SetEnvPrefix("TWI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file := c.String("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", file)
		}
	}

	if c.IsSet("device") {
		viper.Set("device", c.String("device"))
	}
	if c.IsSet("baud") {
		viper.Set("baud", c.Int("baud"))
	}
	if c.IsSet("sim") {
		viper.Set("sim", c.Bool("sim"))
	}
	if c.IsSet("frequency") {
		viper.Set("frequency", c.Uint("frequency"))
	}
	if c.IsSet("timeout") {
		viper.Set("timeout", c.Duration("timeout"))
	}
	if c.IsSet("debug") {
		viper.Set("debug", c.Bool("debug"))
	}

	log.SetFormatter(&log.TextFormatter{DisableColors: true})
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

func mcuConfig() mcu.Config {
	var devices []uint8
	for _, addr := range viper.GetIntSlice("sim_devices") {
		devices = append(devices, uint8(addr))
	}
	return mcu.Config{
		Device:         viper.GetString("device"),
		Baud:           viper.GetInt("baud"),
		Simulate:       viper.GetBool("sim"),
		SimDevices:     devices,
		Frequency:      viper.GetUint32("frequency"),
		Timeout:        viper.GetDuration("timeout"),
		RequestTimeout: viper.GetDuration("request_timeout"),
		Logger:         log.StandardLogger(),
	}
}
