// Package config defines the configuration model for onionup.
//
// Configuration flows from three sources with increasing precedence:
// built-in defaults (NewConfig), an optional .onionup YAML file, and
// CLI flags. The resulting Config is validated once, before any
// filesystem or network activity, and then passed by value through the
// application - there is no global configuration state.
//
// The model is split into three value structs that mirror the
// responsibilities downstream:
//   - Paths: filesystem locations the environment configurator touches
//   - Settings: Tor daemon bring-up knobs (ports, timeouts, torrc policy)
//   - Service: the onion service to publish and its local target
package config
