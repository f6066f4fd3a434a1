// Package state keeps the per-user conversation state machine in an external
// key-value store. Nothing is cached in process: every read goes to the store.
package state
