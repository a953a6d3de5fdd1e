package cbus

import (
	"os"

	"github.com/op/go-logging"
)

// log is the single package-level logger, configured once by the CLI
// entrypoint via SetupLogging.
var log = logging.MustGetLogger("cbusd")

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} ▶%{color:reset} %{message}`,
)

// SetupLogging wires a stderr backend at a level derived from the
// CBUSD_LOG_LEVEL environment variable, falling back to verbosity (the
// CLI's --verbose/-v value: 0=WARNING, 1=INFO, 2+=DEBUG).
func SetupLogging(verbosity int) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)

	level := logging.WARNING
	switch verbosity {
	case 1:
		level = logging.INFO
	default:
		if verbosity >= 2 {
			level = logging.DEBUG
		}
	}
	switch os.Getenv("CBUSD_LOG_LEVEL") {
	case "CRITICAL":
		level = logging.CRITICAL
	case "ERROR":
		level = logging.ERROR
	case "WARNING":
		level = logging.WARNING
	case "NOTICE":
		level = logging.NOTICE
	case "INFO":
		level = logging.INFO
	case "DEBUG":
		level = logging.DEBUG
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	return log
}
