// Package server runs the local TCP backend a hidden service forwards
// to. It ships a trivial line-echo protocol so a freshly published
// onion address can be exercised without any external application.
package server
