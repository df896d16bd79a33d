// Package hostcheck provides steps that verify a device host over SSH.
package hostcheck

import (
	"github.com/nomis52/goharness/clients/sshclient"
)

// Conn is the connection surface host checks need from an SSH client.
type Conn interface {
	Ping() error
	Run(command string) (string, string, error)
	Close() error
}

// Dialer opens connections to the device under test. Suites register a
// shared Dialer so every host check targets the same device.
type Dialer interface {
	Address() string
	Dial() (Conn, error)
}

// SSHDialer dials the device over SSH with key authentication.
type SSHDialer struct {
	cfg sshclient.Config
}

// NewSSHDialer creates a dialer for the host described by cfg.
func NewSSHDialer(cfg sshclient.Config) *SSHDialer {
	return &SSHDialer{cfg: cfg}
}

// Address returns the host:port this dialer connects to.
func (d *SSHDialer) Address() string {
	return d.cfg.Address
}

// Dial opens a new SSH connection.
func (d *SSHDialer) Dial() (Conn, error) {
	return sshclient.Connect(d.cfg)
}

var _ Dialer = (*SSHDialer)(nil)
