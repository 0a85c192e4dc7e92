package stim

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/KuantumBS/Stim/gate"
)

// targetSlice is an arena-relative view: an operation never owns its
// words, it names a range inside whichever arena it was built in. Cloning
// an Operation by value (as REPEAT expansion and self-composition both do)
// shares the underlying words rather than duplicating them; Circuit.Clone
// instead copies the words into a new arena and rebinds every operation.
type targetSlice struct {
	arena  *TargetArena
	offset int
	length int
}

func (ts targetSlice) view() []Target {
	if ts.arena == nil {
		return nil
	}
	return ts.arena.View(ts.offset, ts.length)
}

// Operation is one gate application: a gate descriptor, a scalar argument,
// and a slice of target words.
type Operation struct {
	Gate *gate.Gate
	Arg  float64

	targets targetSlice
}

// Targets returns the operation's target words. The returned slice
// aliases arena storage and must not be mutated.
func (op Operation) Targets() []Target {
	return op.targets.view()
}

// canFuse reports whether a freshly-built operation with the same gate and
// arg as op is eligible to be merged into op rather than pushed as a new
// entry.
func (op Operation) canFuse(gateID int, arg float64) bool {
	return op.Gate.ID == gateID && op.Arg == arg && !op.Gate.Flags.Has(gate.IsNotFusable)
}

// Equal reports exact equality: same gate id and bit-identical targets.
// The scalar argument is also compared exactly.
func (op Operation) Equal(other Operation) bool {
	return op.Gate.ID == other.Gate.ID && op.Arg == other.Arg && slices.Equal(op.Targets(), other.Targets())
}

// ApproxEqual is like Equal but tolerates an argument difference of up to
// atol.
func (op Operation) ApproxEqual(other Operation, atol float64) bool {
	if op.Gate.ID != other.Gate.ID || !slices.Equal(op.Targets(), other.Targets()) {
		return false
	}
	return math.Abs(op.Arg-other.Arg) <= atol
}

// String renders the operation in the textual instruction format: the
// canonical gate name, an optional "(arg)", then a space-separated
// target list.
func (op Operation) String() string {
	var sb strings.Builder
	sb.WriteString(op.Gate.Name)
	flags := op.Gate.Flags
	if op.Arg != 0 || flags.Has(gate.TakesParensArgument) {
		sb.WriteByte('(')
		sb.WriteString(formatArg(op.Arg))
		sb.WriteByte(')')
	}
	for _, t := range op.Targets() {
		sb.WriteByte(' ')
		switch {
		case flags.Has(gate.ProducesResults):
			if t.Inverted() {
				sb.WriteByte('!')
			}
			fmt.Fprintf(&sb, "%d", t.Qubit())
		case flags.Has(gate.TargetsPauliString):
			x, z := t.Pauli()
			sb.WriteByte("IXZY"[boolToInt(x)+boolToInt(z)*2])
			fmt.Fprintf(&sb, "%d", t.Qubit())
		default:
			fmt.Fprintf(&sb, "%d", t.Qubit())
			if dt := t.RecordLookback(); dt != 0 {
				fmt.Fprintf(&sb, "@-%d", dt)
			}
		}
	}
	return sb.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatArg renders a scalar argument: as an integer when it has no
// fractional part, otherwise as a real number.
func formatArg(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
