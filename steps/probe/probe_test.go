package probe

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProbe(urls ...string) (*Probe, *step.StatusHandler, harness.StepID) {
	id := harness.StepID{Module: "steps/probe", Type: "Probe"}
	handler := step.NewStatusHandler()
	return &Probe{
		Logger:     slog.Default(),
		StatusLine: step.NewStatusLine(id, slog.Default(), handler),
		URLs:       urls,
	}, handler, id
}

func TestProbe_HealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	p, handler, id := newProbe(server.URL)
	require.NoError(t, p.Init())
	require.NoError(t, p.Execute(context.Background()))

	assert.Equal(t, "all 1 endpoint(s) healthy", handler.Get(id))
}

func TestProbe_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p, handler, id := newProbe(server.URL)
	require.NoError(t, p.Init())

	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
	assert.Contains(t, handler.Get(id), "❌")
}

func TestProbe_ExpectStatusOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p, _, _ := newProbe(server.URL)
	p.ExpectStatus = http.StatusNoContent

	require.NoError(t, p.Init())
	require.NoError(t, p.Execute(context.Background()))
}

func TestProbe_BodyPredicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer server.Close()

	p, _, _ := newProbe(server.URL)
	p.BodyContains = `"status":"ok"`

	require.NoError(t, p.Init())

	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response body does not contain")
}

func TestProbe_CollectsAllFailures(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	refused := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	refused.Close() // probe should see connection refused

	p, _, _ := newProbe(healthy.URL, broken.URL, refused.URL)
	require.NoError(t, p.Init())

	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 probe(s) failed")
	assert.Contains(t, err.Error(), broken.URL)
	assert.Contains(t, err.Error(), refused.URL)
}

func TestProbe_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p, _, _ := newProbe(server.URL)
	p.Timeout = 20 * time.Millisecond

	require.NoError(t, p.Init())

	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestProbe_InitRequiresURLs(t *testing.T) {
	p, _, _ := newProbe()
	require.Error(t, p.Init())
}
