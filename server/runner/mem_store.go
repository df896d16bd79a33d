package runner

import "sync"

// MemoryStore keeps run history in memory only (no persistence).
type MemoryStore struct {
	runs []runRecord
	mu   sync.Mutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make([]runRecord, 0),
	}
}

// History returns all runs as summaries.
func (s *MemoryStore) History() []RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RunSummary, len(s.runs))
	for i, run := range s.runs {
		result[i] = run.RunSummary
	}
	return result
}

// Logs returns the step executions for a specific run.
func (s *MemoryStore) Logs(id string) ([]StepExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.ID == id {
			result := make([]StepExecution, len(run.StepExecutions))
			copy(result, run.StepExecutions)
			return result, nil
		}
	}
	return nil, ErrRunNotFound
}

// Save stores a run in memory.
func (s *MemoryStore) Save(summary RunSummary, steps []StepExecution) error {
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

	// Prepend to keep most recent first
	s.runs = append([]runRecord{run}, s.runs...)
	return nil
}

var _ Store = (*MemoryStore)(nil)
