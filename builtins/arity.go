package builtins

import (
	"fmt"
	"math"
)

// Unbounded marks an ArityRange without an upper limit.
const Unbounded = math.MaxInt

type ArityRange struct {
	Min int
	Max int
}

func (r ArityRange) IsUnbounded() bool {
	return r.Max == Unbounded
}

func (r ArityRange) Accepts(n int) bool {
	return n >= r.Min && (r.IsUnbounded() || n <= r.Max)
}

func (r ArityRange) String() string {
	if r.IsUnbounded() {
		return fmt.Sprintf("%d..", r.Min)
	} else if r.Min == r.Max {
		return fmt.Sprintf("%d", r.Min)
	}
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}

// SignatureArity walks the parameters in declared order. A variadic
// parameter ends the walk and lifts the upper bound; when it has no default
// it still counts once toward the minimum.
func SignatureArity(sig UsageSignature) ArityRange {
	localMin, localMax := 0, 0
	for _, param := range sig.Parameters {
		localMax++
		if param.Required() {
			localMin++
		}
		if param.IsVariadic {
			localMax = Unbounded
			break
		}
	}
	return ArityRange{Min: localMin, Max: localMax}
}

// Arity is the union of the argument counts accepted by every overload.
func (def *Definition) Arity() ArityRange {
	if len(def.Usages) == 0 {
		return ArityRange{}
	}

	result := ArityRange{Min: Unbounded, Max: 0}
	for _, usage := range def.Usages {
		if len(usage.Parameters) == 0 {
			result.Min = 0
			continue
		}

		local := SignatureArity(usage)
		result.Min = min(result.Min, local.Min)
		result.Max = max(result.Max, local.Max)
	}
	return result
}
