// Package gate holds the read-only gate catalog consumed by the circuit
// model and parser. Entries are looked up by name; nothing in this package
// depends on how a gate is interpreted numerically.
package gate

import "github.com/pkg/errors"

// Flags is a bitmask describing how a gate's targets and argument are
// shaped. The circuit builder and parser branch on these bits; they never
// special-case a gate by name except for the three distinguished ids
// (Repeat, Detector, ObservableInclude).
type Flags uint16

const (
	// TakesParensArgument means the gate requires a "(real)" argument
	// before its target list.
	TakesParensArgument Flags = 1 << iota
	// ProducesResults means each target contributes one measurement.
	ProducesResults
	// TargetsPauliString means targets are X/Y/Z-tagged qubits.
	TargetsPauliString
	// OnlyTargetsMeasurementRecord means every target must be a
	// qubit@-dt record lookback.
	OnlyTargetsMeasurementRecord
	// CanTargetMeasurementRecord means targets may optionally carry a
	// qubit@-dt record lookback.
	CanTargetMeasurementRecord
	// TargetsPairs means the target count must be even and no adjacent
	// pair may interact a qubit with itself.
	TargetsPairs
	// IsBlock means the operation is followed by a "{ ... }" body.
	IsBlock
	// IsNotFusable means adjacent same-gate operations never merge.
	IsNotFusable
)

var flagNames = map[string]Flags{
	"TAKES_PARENS_ARGUMENT":           TakesParensArgument,
	"PRODUCES_RESULTS":                ProducesResults,
	"TARGETS_PAULI_STRING":            TargetsPauliString,
	"ONLY_TARGETS_MEASUREMENT_RECORD": OnlyTargetsMeasurementRecord,
	"CAN_TARGET_MEASUREMENT_RECORD":   CanTargetMeasurementRecord,
	"TARGETS_PAIRS":                   TargetsPairs,
	"IS_BLOCK":                        IsBlock,
	"IS_NOT_FUSABLE":                  IsNotFusable,
}

// Has reports whether f carries every bit set in bit.
func (f Flags) Has(bit Flags) bool {
	return f&bit == bit
}

// parseFlags turns the catalog YAML's flag name list into a bitmask.
func parseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		bit, ok := flagNames[n]
		if !ok {
			return 0, errors.Errorf("gate catalog: unknown flag %q", n)
		}
		f |= bit
	}
	return f, nil
}
