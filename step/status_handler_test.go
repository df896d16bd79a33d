package step

import (
	"testing"

	"github.com/nomis52/goharness/harness"
	"github.com/stretchr/testify/assert"
)

func TestStatusHandler(t *testing.T) {
	stepID := harness.StepID{Module: "test/module", Type: "TestStep"}

	t.Run("set and get", func(t *testing.T) {
		handler := NewStatusHandler()
		handler.Set(stepID, "running")
		assert.Equal(t, "running", handler.Get(stepID))
	})

	t.Run("get returns empty for unknown step", func(t *testing.T) {
		handler := NewStatusHandler()
		assert.Equal(t, "", handler.Get(stepID))
	})

	t.Run("all returns copy of statuses", func(t *testing.T) {
		handler := NewStatusHandler()
		handler.Set(stepID, "done")

		all := handler.All()
		assert.Equal(t, "done", all[stepID])

		// Modifying returned map doesn't affect handler
		all[stepID] = "modified"
		assert.Equal(t, "done", handler.Get(stepID))
	})
}
