// Command cmqttd runs the C-Bus PCI protocol engine against a configured
// transport. MQTT broker wiring, Home Assistant discovery, and
// project-label archive reading are collaborator concerns (package bridge)
// this binary does not implement; it opens the PCI, starts the engine, and
// logs lifecycle events to stderr.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	cbus "github.com/mitchell-johnson/cbus"
)

func main() {
	app := &cli.App{
		Name:    "cmqttd",
		Usage:   "bridge a Clipsal C-Bus PCI to an MQTT broker (engine-only build)",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "serial-device",
				Usage:   "serial device the PCI is attached to, e.g. /dev/ttyUSB0",
				EnvVars: []string{"CBUSD_SERIAL_DEVICE"},
			},
			&cli.StringFlag{
				Name:    "tcp-address",
				Usage:   "host:port of a TCP-attached PCI; overrides --serial-device",
				EnvVars: []string{"CBUSD_TCP_ADDRESS"},
			},
			&cli.StringFlag{
				Name:    "mqtt-broker",
				Usage:   "MQTT broker URL (collaborator concern; not used by this binary)",
				EnvVars: []string{"CBUSD_MQTT_BROKER"},
			},
			&cli.StringFlag{
				Name:    "mqtt-username",
				EnvVars: []string{"CBUSD_MQTT_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "mqtt-password",
				EnvVars: []string{"CBUSD_MQTT_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:    "mqtt-tls",
				EnvVars: []string{"CBUSD_MQTT_TLS"},
			},
			&cli.StringFlag{
				Name:    "project-archive",
				Usage:   "optional zipped project-label archive path (collaborator concern; not read by this binary)",
				EnvVars: []string{"CBUSD_PROJECT_ARCHIVE"},
			},
			&cli.IntFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log verbosity: 0 for warnings, 1 for info, 2 or more for debug",
				EnvVars: []string{"CBUSD_VERBOSE"},
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := cbus.SetupLogging(c.Int("verbose"))

	cfg := cbus.DefaultConfig()
	switch {
	case c.String("tcp-address") != "":
		cfg.Transport = cbus.TransportTCP
		cfg.TCPAddress = c.String("tcp-address")
	case c.String("serial-device") != "":
		cfg.Transport = cbus.TransportSerial
		cfg.SerialDevice = c.String("serial-device")
	default:
		return fmt.Errorf("one of --serial-device or --tcp-address is required")
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	cb := cbus.Callbacks{
		OnConnected: func() {
			log.Info("PCI ready")
		},
		OnDisconnected: func(reason error) {
			log.Warningf("PCI disconnected: %v", reason)
		},
		OnCommandAbandoned: func(op string) {
			log.Warningf("command abandoned: %s", op)
		},
	}

	engine := cbus.NewEngine(cfg, cb)
	engine.Start()

	<-shutdown
	log.Info("shutting down")
	engine.Close()
	return nil
}
