// Package control implements a minimal client for tor's control-port
// line protocol: cookie authentication, bootstrap monitoring, and the
// ADD_ONION/DEL_ONION service lifecycle.
//
// The package is layered in two pieces. Conn owns one transport and
// the SendCommand primitive: a CRLF-terminated command out, a framed
// multi-line reply back ("250-" continuation lines, "250 " final line,
// leading digit 2 meaning success). Client sits on top as a small
// forward-only state machine (disconnected, connected, authenticated,
// bootstrapped, service-active) that refuses operations invoked out of
// order instead of sending commands tor would reject anyway.
//
// Scope is deliberately narrow: one connection, one in-flight command,
// cookie auth only, no async event subscriptions. Callers needing the
// rest of the control protocol want a full controller library, not
// this package.
package control
