// Package all registers the built-in suites. Importing it for side effects
// makes every built-in suite available to the registry:
//
//	import _ "github.com/nomis52/goharness/suites/all"
package all

import (
	"github.com/nomis52/goharness/suites"
	"github.com/nomis52/goharness/suites/demo"
	"github.com/nomis52/goharness/suites/device"
	"github.com/nomis52/goharness/suites/web"
)

func init() {
	mustRegister(demo.Name, demo.New)
	mustRegister(device.Name, device.New)
	mustRegister(web.Name, web.New)
}

func mustRegister(name string, builder suites.Builder) {
	if err := suites.Register(name, builder); err != nil {
		panic(err)
	}
}
