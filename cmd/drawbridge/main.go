// Drawbridge is a front door for single-page applications: it serves the
// static asset bundle, reverse-proxies API traffic to a pool of backend
// replicas, and holds backend startup behind a datastore readiness gate.
//
// Usage:
//
//	# Start the front door with the default configuration
//	drawbridge run
//
//	# Start with a custom configuration file
//	drawbridge run --config /etc/drawbridge/config.yaml
//
//	# Block until the datastore is ready (for external supervisors)
//	drawbridge wait
//
//	# Validate the configuration and route table without starting
//	drawbridge validate
//
//	# Show version information
//	drawbridge version
package main

import "os"

func main() {
	os.Exit(Execute())
}
