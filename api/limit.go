// File: api/limit.go
// Author: momentics <momentics@gmail.com>

package api

import "strconv"

// Limit is an optional upper bound on a byte or peer count.
// The zero value means no limit.
type Limit struct {
	max int
	set bool
}

// NoLimit returns an unbounded Limit.
func NoLimit() Limit { return Limit{} }

// LimitOf returns a Limit capping totals at max. Negative values are
// treated as zero.
func LimitOf(max int) Limit {
	if max < 0 {
		max = 0
	}
	return Limit{max: max, set: true}
}

// Get returns the bound and whether one is configured.
func (l Limit) Get() (int, bool) { return l.max, l.set }

// Allows reports whether total stays within the limit.
func (l Limit) Allows(total int) bool {
	return !l.set || total <= l.max
}

// Reached reports whether count has hit the limit.
func (l Limit) Reached(count int) bool {
	return l.set && count >= l.max
}

func (l Limit) String() string {
	if !l.set {
		return "unlimited"
	}
	return strconv.Itoa(l.max)
}
