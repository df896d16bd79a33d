package runner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DiskStore persists run history to disk as one JSON file per run.
type DiskStore struct {
	dir       string
	logger    *slog.Logger
	maxCount  int
	summaries []RunSummary               // protected by mu
	steps     map[string][]StepExecution // protected by mu
	mu        sync.Mutex
}

// NewDiskStore creates a new disk-backed store.
// The directory is created if it doesn't exist, and existing runs are loaded.
func NewDiskStore(dir string, maxCount int, logger *slog.Logger) (*DiskStore, error) {
	s := &DiskStore{
		dir:       dir,
		logger:    logger,
		maxCount:  maxCount,
		summaries: make([]RunSummary, 0),
		steps:     make(map[string][]StepExecution),
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// Load existing runs
	summaries, steps, err := s.load()
	if err != nil {
		logger.Warn("failed to load existing runs", "error", err)
		// Continue without existing data
	} else {
		s.summaries = summaries
		s.steps = steps
	}

	return s, nil
}

// History returns all runs as summaries.
func (s *DiskStore) History() []RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RunSummary, len(s.summaries))
	copy(result, s.summaries)
	return result
}

// Logs returns the step executions for a specific run.
func (s *DiskStore) Logs(id string) ([]StepExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if steps, ok := s.steps[id]; ok {
		result := make([]StepExecution, len(steps))
		copy(result, steps)
		return result, nil
	}
	return nil, ErrRunNotFound
}

// Save persists a run to disk and updates the in-memory representation.
func (s *DiskStore) Save(summary RunSummary, steps []StepExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure ID is populated
	if summary.ID == "" {
		summary.ID = NewRunID()
	}

	run := runRecord{
		RunSummary:     summary,
		StepExecutions: steps,
	}

	// ULIDs sort chronologically, so the run ID doubles as the filename
	path := filepath.Join(s.dir, summary.ID+".json")

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}

	// Add to in-memory representation (prepend to keep most recent first)
	s.summaries = append([]RunSummary{summary}, s.summaries...)
	s.steps[summary.ID] = steps

	// Enforce max count, removing the pruned run's file as well so it does
	// not reappear on the next restart.
	if len(s.summaries) > s.maxCount {
		oldest := s.summaries[len(s.summaries)-1]
		delete(s.steps, oldest.ID)
		s.summaries = s.summaries[:s.maxCount]

		oldPath := filepath.Join(s.dir, oldest.ID+".json")
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to prune run file", "path", oldPath, "error", err)
		}
	}

	s.logger.Debug("saved run to disk", "path", path)
	return nil
}

// Reload re-loads all runs from disk.
func (s *DiskStore) Reload() error {
	summaries, steps, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = summaries
	s.steps = steps

	return nil
}

// load loads all runs from disk.
func (s *DiskStore) load() ([]RunSummary, map[string][]StepExecution, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	// Count JSON files to pre-size the slice
	jsonFileCount := 0
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			jsonFileCount++
		}
	}

	capacity := jsonFileCount
	if capacity > s.maxCount {
		capacity = s.maxCount
	}
	runs := make([]runRecord, 0, capacity)

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read run file", "file", path, "error", err)
			continue
		}

		var run runRecord
		if err := json.Unmarshal(data, &run); err != nil {
			s.logger.Warn("failed to parse run file", "file", path, "error", err)
			continue
		}

		if run.ID == "" {
			// A record without an ID cannot be looked up, skip it
			s.logger.Warn("run file has no id", "file", path)
			continue
		}

		runs = append(runs, run)
	}

	// Sort by start time descending (most recent first)
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt == nil {
			return false
		}
		if runs[j].StartedAt == nil {
			return true
		}
		return runs[i].StartedAt.After(*runs[j].StartedAt)
	})

	// Limit to max count
	if len(runs) > s.maxCount {
		runs = runs[:s.maxCount]
	}

	summaries := make([]RunSummary, len(runs))
	steps := make(map[string][]StepExecution, len(runs))
	for i, run := range runs {
		summaries[i] = run.RunSummary
		steps[run.ID] = run.StepExecutions
	}

	s.logger.Info("loaded run history from disk", "count", len(summaries))

	return summaries, steps, nil
}

var _ Store = (*DiskStore)(nil)
