package cron

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	triggerSeparator   = ";"
	suiteSeparator     = ":"
	suiteListSeparator = ","
)

// TriggerSpec represents a parsed trigger specification with suites and cron schedule.
type TriggerSpec struct {
	Suites   []string
	CronSpec string
}

// ParseTriggerSpecs parses a multi-trigger specification string into individual trigger specs.
// The format is: suite1,suite2:cron_expression;suite3:cron_expression2
//
// Example:
//
//	"device,web:0 2 * * *;demo:0 3 * * *"
//
// Returns an error if:
//   - Any trigger is missing suites or cron expression
//   - Any suite name is not in availableSuites
//   - Any cron expression is invalid
//   - Any trigger has duplicate suites
func ParseTriggerSpecs(spec string, availableSuites map[string]bool) ([]TriggerSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("cron spec cannot be empty")
	}

	// Split by semicolon for multiple triggers
	triggerStrs := strings.Split(spec, triggerSeparator)
	specs := make([]TriggerSpec, 0, len(triggerStrs))

	for _, triggerStr := range triggerStrs {
		triggerStr = strings.TrimSpace(triggerStr)
		if triggerStr == "" {
			continue // Skip empty triggers (e.g., trailing semicolon)
		}

		triggerSpec, err := parseSingleTrigger(triggerStr, availableSuites)
		if err != nil {
			return nil, err
		}
		specs = append(specs, triggerSpec)
	}

	if len(specs) == 0 {
		return nil, errors.New("no valid triggers found in cron spec")
	}

	return specs, nil
}

// parseSingleTrigger parses a single trigger specification.
func parseSingleTrigger(triggerStr string, availableSuites map[string]bool) (TriggerSpec, error) {
	// Split by colon to separate suites from cron expression
	parts := strings.Split(triggerStr, suiteSeparator)
	if len(parts) != 2 {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: expected format 'suites:cron', got '%s'", triggerStr)
	}

	suitesStr := strings.TrimSpace(parts[0])
	cronSpec := strings.TrimSpace(parts[1])

	// Validate suites part is not empty
	if suitesStr == "" {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: missing suites in '%s'", triggerStr)
	}

	// Validate cron spec part is not empty
	if cronSpec == "" {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: missing cron schedule in '%s'", triggerStr)
	}

	// Parse suites
	suiteStrs := strings.Split(suitesStr, suiteListSeparator)
	suiteNames := make([]string, 0, len(suiteStrs))
	seen := make(map[string]bool, len(suiteStrs))

	for _, s := range suiteStrs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue // Skip empty suite names
		}

		// Check for duplicates within this trigger
		if seen[s] {
			return TriggerSpec{}, fmt.Errorf("invalid trigger spec: duplicate suite '%s' in '%s'", s, triggerStr)
		}
		seen[s] = true

		// Validate suite exists
		if !availableSuites[s] {
			return TriggerSpec{}, fmt.Errorf("invalid trigger spec: unknown suite '%s' in '%s' (available: %s)",
				s, triggerStr, formatAvailableSuites(availableSuites))
		}

		suiteNames = append(suiteNames, s)
	}

	if len(suiteNames) == 0 {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: no valid suites in '%s'", triggerStr)
	}

	// Validate cron expression
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronSpec); err != nil {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: invalid cron expression in '%s': %w", triggerStr, err)
	}

	return TriggerSpec{
		Suites:   suiteNames,
		CronSpec: cronSpec,
	}, nil
}

// formatAvailableSuites formats the available suites for error messages.
func formatAvailableSuites(availableSuites map[string]bool) string {
	suiteNames := make([]string, 0, len(availableSuites))
	for s := range availableSuites {
		suiteNames = append(suiteNames, s)
	}
	sort.Strings(suiteNames)
	return strings.Join(suiteNames, ", ")
}
