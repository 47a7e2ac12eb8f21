package analysis

import (
	"math"
)

// MacroArgs is always considered assigned; MapTool sets it before a macro
// runs.
const MacroArgs = "macro.args"

// NeverSet is the earliest set offset of a variable that is never assigned.
const NeverSet = math.MaxInt

type Get struct {
	Offset int
	Length int
}

type VariableUsage struct {
	Sets []int
	Gets []Get
}

// EarliestSet returns the smallest set offset, or NeverSet.
func (u *VariableUsage) EarliestSet() int {
	earliest := NeverSet
	for _, off := range u.Sets {
		earliest = min(earliest, off)
	}
	return earliest
}

// Vars maps variable names to their usage, remembering the order in which
// names were first seen.
type Vars struct {
	order []string
	usage map[string]*VariableUsage
}

func NewVars() *Vars {
	v := &Vars{usage: map[string]*VariableUsage{}}
	v.Set(MacroArgs, -1)
	return v
}

func (v *Vars) touch(name string) *VariableUsage {
	u, ok := v.usage[name]
	if !ok {
		u = &VariableUsage{Sets: []int{}, Gets: []Get{}}
		v.usage[name] = u
		v.order = append(v.order, name)
	}
	return u
}

func (v *Vars) Set(name string, offset int) {
	u := v.touch(name)
	u.Sets = append(u.Sets, offset)
}

func (v *Vars) Get(name string, offset, length int) {
	u := v.touch(name)
	u.Gets = append(u.Gets, Get{Offset: offset, Length: length})
}

func (v *Vars) Usage(name string) (*VariableUsage, bool) {
	u, ok := v.usage[name]
	return u, ok
}

// Names returns variable names in first-seen order.
func (v *Vars) Names() []string {
	return v.order
}

func (v *Vars) Len() int {
	return len(v.order)
}
