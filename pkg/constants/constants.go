// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second

	// RedisHealthCheckInterval is the interval between Redis pings
	RedisHealthCheckInterval = 10 * time.Second

	// ReadHeaderTimeout bounds how long a client may take to send headers
	ReadHeaderTimeout = 10 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute
)

// Audit log constants
const (
	// AuditLogRetention is the duration audit logs are retained
	AuditLogRetention = 90 * 24 * time.Hour // 90 days
)

// Identifier constants
const (
	// MaxIDLength is the longest user or conversation ID accepted. Firebase
	// UIDs are at most 128 characters.
	MaxIDLength = 128
)

// Message constants
const (
	// MaxEnvelopeBytes is the largest request body accepted for one envelope
	MaxEnvelopeBytes = 1 << 20
)
