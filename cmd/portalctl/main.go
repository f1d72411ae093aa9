// Command portalctl runs maintenance tasks against the portal backend.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
