// Package server owns the telemetry endpoint runtime.
//
// Ownership boundary:
// - accept loop, admission control and accept throttling
// - per-connection handler state machine (connect, read, leave)
// - diagnostic selector scoping and one-shot consumption
// - quit handling, periodic status reporting and the HTTP status surface
package server
