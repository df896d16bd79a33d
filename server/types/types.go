// Package types provides shared types for the server package and its subpackages.
package types

import (
	"os"
	"time"

	"github.com/nomis52/goharness/buildinfo"
)

// ServerProperties holds metadata about the running server instance.
type ServerProperties struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
}

// NewServerProperties captures the current process metadata.
func NewServerProperties() ServerProperties {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: time.Now(),
		Hostname:  hostname,
	}
}
