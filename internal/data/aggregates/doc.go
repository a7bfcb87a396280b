// Package aggregates owns the transaction boundary of the curriculum store and the
// mapping of repo and driver failures onto coded domain errors.
package aggregates
