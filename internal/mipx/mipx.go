// Package mipx holds the handful of MIP linearization idioms every hard-rule
// file in internal/hardrules reuses: boolean reification expressed as plain
// linear inequalities, one-hot encoding of an integer variable, and the
// big-M case-split pattern, so each rule file states its constraint in terms
// of these primitives instead of re-deriving the inequalities by hand.
package mipx

import "github.com/nextmv-io/sdk/mip"

// Channel links a boolean "indicator" variable to a set of zero-or-more
// boolean "members" such that indicator == 1 iff at least one member == 1.
// This is the bidirectional linking used for the day-worked indicators that
// C3 and C5 read: indicator >= member_i for every member (so any active member forces
// the indicator on), and sum(members) >= indicator (so the indicator can only
// be on when some member is).
func Channel(m mip.Model, indicator mip.Bool, members []mip.Bool) {
	if len(members) == 0 {
		return
	}
	for _, member := range members {
		c := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
		c.NewTerm(1.0, indicator)
		c.NewTerm(-1.0, member)
	}
	sum := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
	sum.NewTerm(-1.0, indicator)
	for _, member := range members {
		sum.NewTerm(1.0, member)
	}
}

// AtMostOne adds sum(vars) <= 1 over the given boolean variables. Used
// throughout the hard-rule pack (C4 rest period, C14 travel time, C16
// overlap) to forbid two slots being assigned to the same employee together.
func AtMostOne(m mip.Model, vars ...mip.Bool) {
	if len(vars) < 2 {
		return
	}
	c := m.NewConstraint(mip.LessThanOrEqual, 1.0)
	for _, v := range vars {
		c.NewTerm(1.0, v)
	}
}

// Forbid fixes a variable to zero. Used by every rule that disqualifies an
// otherwise candidate-eligible (slot, employee) pair outright (C1, C7, C8,
// C10, C11, C12, C15, and the fixed-offset branch of the rotation pattern
// rule).
func Forbid(m mip.Model, v mip.Bool) {
	c := m.NewConstraint(mip.Equal, 0.0)
	c.NewTerm(1.0, v)
}

// BigMLessThanOrEqual adds expr <= bound + bigM*(1-indicator): the
// constraint only binds when indicator == 1. Used for the two-branch
// (is4DaysOrLess) case split in C6.
func BigMLessThanOrEqual(m mip.Model, terms []Term, bound float64, indicator mip.Bool, bigM float64) {
	c := m.NewConstraint(mip.LessThanOrEqual, bound+bigM)
	for _, t := range terms {
		c.NewTerm(t.Coefficient, t.Variable)
	}
	c.NewTerm(bigM, indicator)
}

// Term is a (coefficient, variable) pair fed into a constraint or objective.
type Term struct {
	Coefficient float64
	Variable    mip.Bool
}

// OneHot creates one boolean per candidate value such that exactly one is
// true, and constrains intVar to equal the value corresponding to whichever
// boolean is on. Used to linearize the variable-rotation-offset mode, where
// each employee's chosen offset needs a boolean per possible value so other
// constraints can reference "offset == k" directly.
func OneHot(m mip.Model, intVar mip.Int, values []int) []mip.Bool {
	bools := make([]mip.Bool, len(values))
	sumC := m.NewConstraint(mip.Equal, 1.0)
	linkC := m.NewConstraint(mip.Equal, 0.0)
	linkC.NewTerm(1.0, intVar)
	for i, v := range values {
		b := m.NewBool()
		bools[i] = b
		sumC.NewTerm(1.0, b)
		linkC.NewTerm(-float64(v), b)
	}
	return bools
}
