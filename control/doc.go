// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot reload, metrics and debug introspection for
// event-driven sockets.
//
// Provides:
//   - Config with TOML loading and human readable byte sizes
//   - ConfigStore holding the current Config and running reload hooks
//   - Prometheus metrics wired to listeners through bookkeeping events
//   - Debug probes dumping socket state on request
package control
