// Package aggregates defines the coded error contract shared by the curriculum store,
// the placement engine and the transports that surface their failures.
package aggregates
