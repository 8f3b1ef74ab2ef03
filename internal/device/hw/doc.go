// Package hw holds the pieces shared by the emulated hardware generations:
// fault injection, clock gating and the register dump sink.
package hw
