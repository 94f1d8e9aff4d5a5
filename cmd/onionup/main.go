// Package main provides the entry point for the onionup CLI.
//
// onionup brings a Tor v3 hidden service online: it prepares the tor
// environment, drives the control port, publishes the service, and
// keeps it up until interrupted.
//
// Usage:
//
//	onionup up
//	onionup up --simulate
//	onionup check
//	onionup history
//
// See --help for all available options.
package main

// main is the entry point for onionup.
func main() {
	Execute()
}
