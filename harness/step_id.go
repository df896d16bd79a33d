package harness

import (
	"fmt"
	"reflect"

	"github.com/iancoleman/strcase"
)

// StepID provides collision-proof identification for steps across packages.
// It combines the full import path with the struct name so two packages can
// each define a step named ConnectHost without colliding.
type StepID struct {
	// Module is the full import path of the package containing the step,
	// obtained via reflect.TypeOf(step).Elem().PkgPath().
	// Example: "github.com/nomis52/goharness/steps/hostcheck"
	Module string

	// Type is the struct name of the step,
	// obtained via reflect.TypeOf(step).Elem().Name().
	// Example: "ConnectHost"
	Type string
}

// String returns the "Module.Type" form, identifying the step's origin and
// type unambiguously.
//
// Example: "github.com/nomis52/goharness/steps/hostcheck.ConnectHost"
func (id StepID) String() string {
	return fmt.Sprintf("%s.%s", id.Module, id.Type)
}

// Key returns a string suitable for use as a map key. Currently identical to
// String(), kept as a separate method so the representation can change
// without touching callers.
func (id StepID) Key() string {
	return id.String()
}

// IsValid returns true if the StepID has both Module and Type populated.
func (id StepID) IsValid() bool {
	return id.Module != "" && id.Type != ""
}

// Equal returns true if both Module and Type match exactly.
func (id StepID) Equal(other StepID) bool {
	return id.Module == other.Module && id.Type == other.Type
}

// ShortString returns a shortened form for display: the last component of
// the module path plus the type.
//
// Example: "github.com/nomis52/goharness/steps/hostcheck.ConnectHost"
// becomes "hostcheck.ConnectHost".
func (id StepID) ShortString() string {
	if id.Module == "" {
		return id.Type
	}

	lastSlash := -1
	for i := len(id.Module) - 1; i >= 0; i-- {
		if id.Module[i] == '/' {
			lastSlash = i
			break
		}
	}

	var packageName string
	if lastSlash >= 0 && lastSlash < len(id.Module)-1 {
		packageName = id.Module[lastSlash+1:]
	} else {
		packageName = id.Module
	}

	return fmt.Sprintf("%s.%s", packageName, id.Type)
}

// MetricName returns the step's type name in snake_case, suitable for use
// as a metric label value.
//
// Example: "ConnectHost" becomes "connect_host".
func (id StepID) MetricName() string {
	return strcase.ToSnake(id.Type)
}

// GetStepID returns the StepID for a step. Steps can use this to identify
// themselves when reporting status.
func GetStepID(step Step) StepID {
	stepType := reflect.TypeOf(step).Elem()
	return StepID{
		Module: stepType.PkgPath(),
		Type:   stepType.Name(),
	}
}
