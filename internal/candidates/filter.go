// Package candidates decides, for each (slot, employee) pair, whether a
// decision variable is worth creating at all. Gender, scheme, blacklist and
// whitelist rules eliminate pairs before the model even sees them, keeping
// the variable count proportional to pairs that could plausibly be assigned
// rather than the full cross product of slots and employees.
package candidates

import (
	"example.com/your_project/vso-roster-solver/internal/roster"
)

// Pair is one (slot, employee) combination that survived filtering and
// therefore needs a decision variable.
type Pair struct {
	Slot     roster.Slot
	Employee roster.Employee
}

// Index groups the surviving pairs the way the model builder and hard
// constraint pack need them: by slot id and by employee id.
type Index struct {
	Pairs       []Pair
	BySlot      map[string][]Pair
	ByEmployee  map[string][]Pair
	NoCandidate map[string]bool // slot ids with zero surviving candidates
}

// Build evaluates every (slot, employee) combination and returns the index of
// pairs that pass gender, scheme, blacklist and whitelist filtering. Slots
// with no surviving candidate are recorded in NoCandidate; their unassigned
// variable must be fixed to 1 by the model builder.
func Build(slots []roster.Slot, employees []roster.Employee) Index {
	idx := Index{
		BySlot:      make(map[string][]Pair, len(slots)),
		ByEmployee:  make(map[string][]Pair, len(employees)),
		NoCandidate: make(map[string]bool),
	}

	for _, slot := range slots {
		found := false
		for _, emp := range employees {
			if !Eligible(slot, emp) {
				continue
			}
			pair := Pair{Slot: slot, Employee: emp}
			idx.Pairs = append(idx.Pairs, pair)
			idx.BySlot[slot.SlotID] = append(idx.BySlot[slot.SlotID], pair)
			idx.ByEmployee[emp.EmployeeID] = append(idx.ByEmployee[emp.EmployeeID], pair)
			found = true
		}
		if !found {
			idx.NoCandidate[slot.SlotID] = true
		}
	}

	return idx
}

// Eligible reports whether the (slot, employee) pair survives the four
// candidate-filter checks. It does not check hard-constraint rules (C1-C17):
// those forbid the variable's value, not its existence.
func Eligible(slot roster.Slot, emp roster.Employee) bool {
	return genderOK(slot, emp) && schemeOK(slot, emp) && !blacklisted(slot, emp) && whitelistedOK(slot, emp)
}

func genderOK(slot roster.Slot, emp roster.Employee) bool {
	switch slot.GenderRequirement {
	case roster.GenderAny, roster.GenderMix, "":
		return true
	case roster.GenderM:
		return emp.Gender == roster.GenderM
	case roster.GenderF:
		return emp.Gender == roster.GenderF
	default:
		return true
	}
}

func schemeOK(slot roster.Slot, emp roster.Employee) bool {
	if slot.SchemeRequirement == roster.SchemeGlobal || slot.SchemeRequirement == "" {
		return true
	}
	return slot.SchemeRequirement == emp.Scheme
}

func blacklisted(slot roster.Slot, emp roster.Employee) bool {
	for _, entry := range slot.Blacklist.EmployeeIDs {
		if entry.EmployeeID != emp.EmployeeID {
			continue
		}
		if !slot.Date.Before(entry.BlacklistStartDate) && !slot.Date.After(entry.BlacklistEndDate) {
			return true
		}
	}
	return false
}

func whitelistedOK(slot roster.Slot, emp roster.Employee) bool {
	teams := slot.Whitelist.TeamIDs
	ids := slot.Whitelist.EmployeeIDs
	if len(teams) == 0 && len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == emp.EmployeeID {
			return true
		}
	}
	for _, t := range teams {
		if t == emp.TeamID {
			return true
		}
	}
	return false
}
