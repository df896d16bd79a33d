// Package sshclient provides a small SSH client for running commands on
// device hosts during checks.
package sshclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config holds the connection parameters for a device host.
type Config struct {
	// Address is the host:port of the SSH endpoint.
	Address string
	// User is the login user.
	User string
	// PrivateKeyPEM is the private key in PEM format.
	PrivateKeyPEM []byte
	// DialTimeout bounds the TCP dial and handshake. Zero means no timeout.
	DialTimeout time.Duration
}

// Client manages a persistent SSH connection for running multiple commands.
type Client struct {
	client *ssh.Client
}

// Connect opens an SSH connection to the host described by cfg.
func Connect(cfg Config) (*Client, error) {
	signer, err := ssh.ParsePrivateKey(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // NOTE: lab devices, host keys churn on reimage
		Timeout:         cfg.DialTimeout,
	}

	client, err := ssh.Dial("tcp", cfg.Address, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	return &Client{client: client}, nil
}

// Ping sends a keepalive request to verify the connection is still live.
func (c *Client) Ping() error {
	_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
	if err != nil {
		return fmt.Errorf("keepalive failed: %w", err)
	}
	return nil
}

// Run executes a command on the remote host using a new session on the
// existing connection. It returns the captured stdout and stderr. A non-zero
// remote exit is reported as an error carrying the exit status.
func (c *Client) Run(command string) (string, string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdoutBuf.String(), stderrBuf.String(),
				fmt.Errorf("command exited with status %d", exitErr.ExitStatus())
		}
		return stdoutBuf.String(), stderrBuf.String(), fmt.Errorf("failed to run command: %w", err)
	}

	return stdoutBuf.String(), stderrBuf.String(), nil
}

// RunWithWriter executes a command on the remote host and streams stdout/stderr
// to the provided writers. If stdoutWriter or stderrWriter is nil, that stream
// will be discarded. Returns any error from command execution.
func (c *Client) RunWithWriter(command string, stdoutWriter, stderrWriter io.Writer) error {
	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	if stdoutWriter != nil {
		session.Stdout = stdoutWriter
	}
	if stderrWriter != nil {
		session.Stderr = stderrWriter
	}

	if err := session.Run(command); err != nil {
		return fmt.Errorf("failed to run command: %w", err)
	}

	return nil
}

// Close closes the underlying SSH connection.
func (c *Client) Close() error {
	return c.client.Close()
}
