package cbus

import "time"

// TransportKind selects how the engine reaches the PCI.
type TransportKind int

const (
	TransportSerial TransportKind = iota
	TransportTCP
)

// Config bundles every tunable the engine needs, assembled once by the CLI
// (or by an embedding bridge) and passed by value into NewEngine. There is
// no package-level mutable configuration.
type Config struct {
	Transport    TransportKind
	SerialDevice string
	TCPAddress   string

	ConfirmTimeout time.Duration
	RetryInterval  time.Duration
	MaxAttempts    int
	ResetTimeout   time.Duration

	ClockPublishInterval time.Duration
	ClockCoalesceWindow  time.Duration
	ResyncInterval       time.Duration
	ResyncBlockSize      byte
	ResyncMaxInFlight    int

	// DefaultApplications seeds the resync controller's application set.
	// Seeded applications stay in the set; the engine adds further
	// applications as it observes lighting SALs or status reports on them.
	DefaultApplications []byte
}

// DefaultConfig returns the engine's defaults: 30s confirm timeout, 1s
// retry interval, 3 attempts, 5s reset timeout, 300s clock/resync
// intervals, 2s clock coalescing window, 32-group resync blocks, 4
// in-flight resync requests.
func DefaultConfig() Config {
	return Config{
		Transport: TransportTCP,

		ConfirmTimeout: 30 * time.Second,
		RetryInterval:  1 * time.Second,
		MaxAttempts:    3,
		ResetTimeout:   5 * time.Second,

		ClockPublishInterval: 300 * time.Second,
		ClockCoalesceWindow:  2 * time.Second,
		ResyncInterval:       300 * time.Second,
		ResyncBlockSize:      32,
		ResyncMaxInFlight:    4,

		DefaultApplications: []byte{0x38},
	}
}
