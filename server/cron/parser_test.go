package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAvailableSuites = map[string]bool{
	"device": true,
	"web":    true,
	"demo":   true,
}

func TestParseTriggerSpecs_ValidSingleTrigger(t *testing.T) {
	specs, err := ParseTriggerSpecs("device:0 2 * * *", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"device"}, specs[0].Suites)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)
}

func TestParseTriggerSpecs_ValidMultipleSuites(t *testing.T) {
	specs, err := ParseTriggerSpecs("device,web:0 2 * * *", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"device", "web"}, specs[0].Suites)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)
}

func TestParseTriggerSpecs_ValidMultipleTriggers(t *testing.T) {
	specs, err := ParseTriggerSpecs("device,web:0 2 * * *;demo:0 3 * * *", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, []string{"device", "web"}, specs[0].Suites)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"demo"}, specs[1].Suites)
	assert.Equal(t, "0 3 * * *", specs[1].CronSpec)
}

func TestParseTriggerSpecs_WhitespaceHandling(t *testing.T) {
	specs, err := ParseTriggerSpecs("  device , web : 0 2 * * * ; demo : 0 3 * * *  ", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, []string{"device", "web"}, specs[0].Suites)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"demo"}, specs[1].Suites)
	assert.Equal(t, "0 3 * * *", specs[1].CronSpec)
}

func TestParseTriggerSpecs_TrailingSemicolon(t *testing.T) {
	specs, err := ParseTriggerSpecs("device:0 2 * * *;", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"device"}, specs[0].Suites)
}

func TestParseTriggerSpecs_DuplicateSuitesAcrossTriggers(t *testing.T) {
	// Duplicate suites across different triggers should be allowed
	specs, err := ParseTriggerSpecs("device:0 2 * * *;device:0 14 * * *", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, []string{"device"}, specs[0].Suites)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"device"}, specs[1].Suites)
	assert.Equal(t, "0 14 * * *", specs[1].CronSpec)
}

func TestParseTriggerSpecs_EmptySpec(t *testing.T) {
	_, err := ParseTriggerSpecs("", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestParseTriggerSpecs_WhitespaceOnlySpec(t *testing.T) {
	_, err := ParseTriggerSpecs("   ", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestParseTriggerSpecs_MissingColon(t *testing.T) {
	_, err := ParseTriggerSpecs("device,web", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected format 'suites:cron'")
}

func TestParseTriggerSpecs_MissingSuites(t *testing.T) {
	_, err := ParseTriggerSpecs(":0 2 * * *", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing suites")
}

func TestParseTriggerSpecs_MissingCronSpec(t *testing.T) {
	_, err := ParseTriggerSpecs("device,web:", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing cron schedule")
}

func TestParseTriggerSpecs_InvalidCronExpression(t *testing.T) {
	_, err := ParseTriggerSpecs("device:invalid cron", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestParseTriggerSpecs_UnknownSuite(t *testing.T) {
	_, err := ParseTriggerSpecs("unknown:0 2 * * *", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown suite 'unknown'")
	assert.Contains(t, err.Error(), "(available: ")
}

func TestParseTriggerSpecs_DuplicateSuiteInTrigger(t *testing.T) {
	_, err := ParseTriggerSpecs("device,device:0 2 * * *", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate suite 'device'")
}

func TestParseTriggerSpecs_OnlySemicolons(t *testing.T) {
	_, err := ParseTriggerSpecs(";;;", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid triggers")
}

func TestParseTriggerSpecs_EmptySuiteInList(t *testing.T) {
	// Should skip empty suite names and succeed
	specs, err := ParseTriggerSpecs("device,,web:0 2 * * *", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"device", "web"}, specs[0].Suites)
}

func TestParseTriggerSpecs_AllSuitesEmpty(t *testing.T) {
	_, err := ParseTriggerSpecs(",,:0 2 * * *", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid suites")
}

func TestParseTriggerSpecs_ComplexValid(t *testing.T) {
	specs, err := ParseTriggerSpecs("device:0 2 * * *;web:0 3 * * *;demo:*/5 * * * *", testAvailableSuites)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, []string{"device"}, specs[0].Suites)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"web"}, specs[1].Suites)
	assert.Equal(t, "0 3 * * *", specs[1].CronSpec)

	assert.Equal(t, []string{"demo"}, specs[2].Suites)
	assert.Equal(t, "*/5 * * * *", specs[2].CronSpec)
}

func TestParseTriggerSpecs_MultipleColons(t *testing.T) {
	_, err := ParseTriggerSpecs("device:0:2:* * *", testAvailableSuites)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected format 'suites:cron'")
}
