// Package constants holds values shared by the binaries and the service wiring.
package constants

import "runtime"

// Version holds the application version information
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

const (
	AppName = "pvforecast"

	// REST controller defaults when the config leaves them unset
	DefaultRESTPort       = 8080
	DefaultRESTListenAddr = "0.0.0.0"

	// Estimates served by /stored are kept this long in TimescaleDB
	RetentionDays = 90
)
