// Package onion manages the lifecycle of a v3 hidden service: it
// derives and validates onion addresses, publishes services through a
// tor control connection, and offers a simulated controller that
// produces deterministic addresses without a daemon.
package onion
