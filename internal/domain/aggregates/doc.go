// Package aggregates defines the write boundaries of the carousel domain.
//
// Each aggregate method is one atomic unit: implementations own the
// transaction and enforce the slide-version invariants inside it.
package aggregates
