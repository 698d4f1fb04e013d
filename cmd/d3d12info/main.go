// Command d3d12info reports how the runtime sees the adapters of a
// backend: capability negotiation, feature levels, queue families and
// descriptor heap limits. Adapter profiles can be captured into report
// archives and replayed where no driver is present.
package main

import "os"

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}
