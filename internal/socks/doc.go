// Package socks probes Tor's SOCKS5 port and dials connections
// through it. The probe performs a real SOCKS5 handshake rather than
// a bare TCP connect, so it can tell a Tor proxy apart from any other
// program squatting on the port.
package socks
