// Package errbound implements a named error boundary: wrap an
// operation, retry it a fixed number of times with a fixed delay,
// fall back to a caller-supplied value on final failure, and record
// metrics while preserving the original error's identity across
// nested boundaries.
//
// The counter-and-flag shape -- attempts exhausted flips an "error
// state" until explicitly cleared -- generalizes a consecutive-
// failures-against-a-threshold hysteresis pattern from health-check
// polling to any wrapped operation.
package errbound
