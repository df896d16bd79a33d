package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStepID_Methods tests all StepID methods
func TestStepID_Methods(t *testing.T) {
	id := StepID{
		Module: "github.com/nomis52/goharness/steps/hostcheck",
		Type:   "ConnectHost",
	}

	t.Run("String", func(t *testing.T) {
		expected := "github.com/nomis52/goharness/steps/hostcheck.ConnectHost"
		assert.Equal(t, expected, id.String())
	})

	t.Run("Key", func(t *testing.T) {
		// Key should currently be same as String
		assert.Equal(t, id.String(), id.Key())
	})

	t.Run("IsValid", func(t *testing.T) {
		assert.True(t, id.IsValid(), "ID with both fields should be valid")

		invalidID1 := StepID{Module: "", Type: "TestStep"}
		assert.False(t, invalidID1.IsValid(), "ID with empty Module should be invalid")

		invalidID2 := StepID{Module: "test", Type: ""}
		assert.False(t, invalidID2.IsValid(), "ID with empty Type should be invalid")

		invalidID3 := StepID{}
		assert.False(t, invalidID3.IsValid(), "Empty ID should be invalid")
	})

	t.Run("Equal", func(t *testing.T) {
		sameID := StepID{
			Module: "github.com/nomis52/goharness/steps/hostcheck",
			Type:   "ConnectHost",
		}
		assert.True(t, id.Equal(sameID), "Identical IDs should be equal")

		differentModule := StepID{
			Module: "github.com/other/steps",
			Type:   "ConnectHost",
		}
		assert.False(t, id.Equal(differentModule), "Different modules should not be equal")

		differentType := StepID{
			Module: "github.com/nomis52/goharness/steps/hostcheck",
			Type:   "HostInfo",
		}
		assert.False(t, id.Equal(differentType), "Different types should not be equal")
	})

	t.Run("ShortString", func(t *testing.T) {
		expected := "hostcheck.ConnectHost"
		assert.Equal(t, expected, id.ShortString())

		// Test with single component module
		simpleID := StepID{Module: "main", Type: "TaskStep"}
		assert.Equal(t, "main.TaskStep", simpleID.ShortString())

		// Test with empty module
		emptyModuleID := StepID{Module: "", Type: "TaskStep"}
		assert.Equal(t, "TaskStep", emptyModuleID.ShortString())
	})

	t.Run("MetricName", func(t *testing.T) {
		assert.Equal(t, "connect_host", id.MetricName())

		scriptID := StepID{Module: "m", Type: "ScriptCheck"}
		assert.Equal(t, "script_check", scriptID.MetricName())

		singleID := StepID{Module: "m", Type: "Probe"}
		assert.Equal(t, "probe", singleID.MetricName())
	})
}

// TestStepID_CollisionPrevention tests the collision prevention capabilities
func TestStepID_CollisionPrevention(t *testing.T) {
	// Steps with the same struct name but different modules are unique
	id1 := StepID{
		Module: "github.com/user/app/steps",
		Type:   "ConnectHost",
	}

	id2 := StepID{
		Module: "github.com/vendor/lib/steps",
		Type:   "ConnectHost",
	}

	assert.False(t, id1.Equal(id2), "Steps with same Type but different Module should not be equal")
	assert.NotEqual(t, id1.String(), id2.String(), "String representations should be different")
	assert.NotEqual(t, id1.Key(), id2.Key(), "Keys should be different")

	// Test map key uniqueness
	stepMap := make(map[string]bool)
	stepMap[id1.Key()] = true
	stepMap[id2.Key()] = true

	assert.Len(t, stepMap, 2, "Should have 2 unique keys in map")
}

// TestStepID_EdgeCases tests edge cases and boundary conditions
func TestStepID_EdgeCases(t *testing.T) {
	t.Run("EmptyFields", func(t *testing.T) {
		emptyID := StepID{}
		assert.Equal(t, ".", emptyID.String())
		assert.Equal(t, ".", emptyID.Key())
		assert.Equal(t, "", emptyID.ShortString())
		assert.False(t, emptyID.IsValid())
	})

	t.Run("OnlyModule", func(t *testing.T) {
		moduleOnlyID := StepID{Module: "github.com/test/module"}
		assert.Equal(t, "github.com/test/module.", moduleOnlyID.String())
		assert.Equal(t, "module.", moduleOnlyID.ShortString())
		assert.False(t, moduleOnlyID.IsValid())
	})

	t.Run("OnlyType", func(t *testing.T) {
		typeOnlyID := StepID{Type: "TestStep"}
		assert.Equal(t, ".TestStep", typeOnlyID.String())
		assert.Equal(t, "TestStep", typeOnlyID.ShortString())
		assert.False(t, typeOnlyID.IsValid())
	})

	t.Run("SpecialCharacters", func(t *testing.T) {
		specialID := StepID{
			Module: "github.com/test-user/my_app/steps",
			Type:   "ScriptCheck_V2",
		}
		assert.True(t, specialID.IsValid())
		assert.Equal(t, "steps.ScriptCheck_V2", specialID.ShortString())
	})

	t.Run("DeepNestedModule", func(t *testing.T) {
		deepID := StepID{
			Module: "github.com/company/project/internal/services/device/steps",
			Type:   "DeepTask",
		}
		assert.Equal(t, "steps.DeepTask", deepID.ShortString())
		assert.Contains(t, deepID.String(), "internal/services/device/steps.DeepTask")
	})
}
