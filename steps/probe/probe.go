// Package probe provides a step that checks HTTP endpoints.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Probe checks that HTTP endpoints respond as expected. Endpoints are probed
// concurrently and all failures are reported together.
type Probe struct {
	// Dependencies
	Logger     *slog.Logger
	StatusLine *step.StatusLine

	// URLs are the endpoints to probe.
	URLs []string
	// ExpectStatus is the response code required from every endpoint.
	// Defaults to http.StatusOK.
	ExpectStatus int
	// BodyContains, when set, must appear in each response body.
	BodyContains string
	// Timeout bounds each request.
	Timeout time.Duration `harness:"probes.timeout"`
}

// Init performs structural validation.
func (p *Probe) Init() error {
	if len(p.URLs) == 0 {
		return fmt.Errorf("no probe URLs configured")
	}
	return nil
}

// Execute probes all endpoints concurrently.
func (p *Probe) Execute(ctx context.Context) error {
	return step.CaptureFailure(p.StatusLine, func() error {
		p.StatusLine.Set(fmt.Sprintf("probing %d endpoint(s)", len(p.URLs)))

		client := &http.Client{}

		var wg sync.WaitGroup
		errChan := make(chan error, len(p.URLs))

		for _, url := range p.URLs {
			wg.Add(1)
			go func(url string) {
				defer wg.Done()
				if err := p.probe(ctx, client, url); err != nil {
					p.Logger.Error("probe failed", "url", url, "error", err)
					errChan <- fmt.Errorf("%s: %w", url, err)
					return
				}
				p.Logger.Debug("probe passed", "url", url)
			}(url)
		}

		wg.Wait()
		close(errChan)

		errors := make([]error, 0)
		for err := range errChan {
			errors = append(errors, err)
		}

		if len(errors) > 0 {
			errMsg := fmt.Sprintf("%d probe(s) failed:", len(errors))
			for _, err := range errors {
				errMsg += "\n  - " + err.Error()
			}
			return fmt.Errorf("%s", errMsg)
		}

		p.StatusLine.Set(fmt.Sprintf("all %d endpoint(s) healthy", len(p.URLs)))
		return nil
	})
}

// probe issues one GET and applies the response checks.
func (p *Probe) probe(ctx context.Context, client *http.Client, url string) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	expect := p.ExpectStatus
	if expect == 0 {
		expect = http.StatusOK
	}
	if resp.StatusCode != expect {
		return fmt.Errorf("unexpected status %d (want %d)", resp.StatusCode, expect)
	}

	if p.BodyContains != "" && !strings.Contains(string(body), p.BodyContains) {
		return fmt.Errorf("response body does not contain %q", p.BodyContains)
	}

	return nil
}

var _ harness.Step = (*Probe)(nil)
