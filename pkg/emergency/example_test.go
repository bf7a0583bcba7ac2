package emergency_test

import (
	"fmt"

	"github.com/netfault/faultctl/pkg/emergency"
)

// Example demonstrates wiring an OnStop callback and triggering an
// emergency stop the way pkg/starter.Starter.Start does for a running
// fault run (shut down every active fault, then exit).
func Example() {
	controller := emergency.New(emergency.Config{StopFile: "/tmp/faultctl-example-stop"})

	controller.OnStop(func() {
		fmt.Println("shutting down active faults...")
		fmt.Println("shutdown complete")
	})

	fmt.Println("requesting emergency stop")
	controller.Stop("operator requested abort")
	fmt.Println("stopped:", controller.IsStopped())

	// Output:
	// requesting emergency stop
	// shutting down active faults...
	// shutdown complete
	// stopped: true
}
