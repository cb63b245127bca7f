// Package cli holds shared helpers for the drawbridge commands: error
// types, the exit-code contract, and signal handling.
package cli
