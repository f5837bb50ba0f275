// Package aggregates implements the carousel aggregate contracts over the
// table repos in internal/data/repos and owns their transaction boundaries.
package aggregates
