package config

import "time"

// License defaults.
const (
	DefaultTargetApplicationID = 374
	DefaultWorkers             = 0
	DefaultParallelThreshold   = 10000
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = FormatText
)

// Output defaults.
const (
	DefaultOutputFormat = FormatText
	DefaultOutputColor  = true
)

// Server defaults.
const (
	DefaultServerHost   = "127.0.0.1"
	DefaultServerPort   = 8080
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultMaxBodySize  = "32MB"
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 1.0
)
