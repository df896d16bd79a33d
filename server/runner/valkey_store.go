package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

// valkeyOpTimeout bounds individual store operations so an unreachable
// valkey node cannot stall the API handlers.
const valkeyOpTimeout = 5 * time.Second

// defaultValkeyKey is the list key run records are pushed to.
const defaultValkeyKey = "goharness:runs"

// ValkeyStore keeps run history in a valkey list, newest first. It lets
// several server instances share one history without a shared filesystem.
type ValkeyStore struct {
	client   valkey.Client
	key      string
	maxCount int
	logger   *slog.Logger
}

// ValkeyOptions configures the connection to the valkey deployment.
type ValkeyOptions struct {
	Addresses []string
	Username  string
	Password  string
}

// NewValkeyStore connects to valkey and returns a store over the runs list.
func NewValkeyStore(opts ValkeyOptions, maxCount int, logger *slog.Logger) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: opts.Addresses,
		Username:    opts.Username,
		Password:    opts.Password,
		ClientName:  "goharness",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	return &ValkeyStore{
		client:   client,
		key:      defaultValkeyKey,
		maxCount: maxCount,
		logger:   logger,
	}, nil
}

// History returns all runs as summaries.
func (s *ValkeyStore) History() []RunSummary {
	runs, err := s.fetch()
	if err != nil {
		s.logger.Warn("failed to fetch run history from valkey", "error", err)
		return nil
	}

	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = run.RunSummary
	}
	return summaries
}

// Logs returns the step executions for a specific run.
func (s *ValkeyStore) Logs(id string) ([]StepExecution, error) {
	runs, err := s.fetch()
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.ID == id {
			return run.StepExecutions, nil
		}
	}
	return nil, ErrRunNotFound
}

// Save pushes a run onto the list and trims the list to the configured size.
func (s *ValkeyStore) Save(summary RunSummary, steps []StepExecution) error {
	// Ensure ID is populated
	if summary.ID == "" {
		summary.ID = NewRunID()
	}

	data, err := json.Marshal(runRecord{
		RunSummary:     summary,
		StepExecutions: steps,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
	defer cancel()

	err = s.client.Do(ctx, s.client.B().Lpush().Key(s.key).Element(string(data)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to push run to valkey: %w", err)
	}

	// A failed trim leaves extra entries behind until the next save trims
	// again, so it does not fail the run.
	err = s.client.Do(ctx, s.client.B().Ltrim().Key(s.key).Start(0).Stop(int64(s.maxCount-1)).Build()).Error()
	if err != nil {
		s.logger.Warn("failed to trim run history in valkey", "error", err)
	}

	return nil
}

// Close releases the valkey connection.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

// fetch reads the runs list up to the configured size.
func (s *ValkeyStore) fetch() ([]runRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
	defer cancel()

	entries, err := s.client.Do(ctx, s.client.B().Lrange().Key(s.key).Start(0).Stop(int64(s.maxCount-1)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to read run history from valkey: %w", err)
	}

	runs := make([]runRecord, 0, len(entries))
	for _, entry := range entries {
		var run runRecord
		if err := json.Unmarshal([]byte(entry), &run); err != nil {
			s.logger.Warn("failed to parse run record from valkey", "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

var _ Store = (*ValkeyStore)(nil)
