package stim

import "github.com/KuantumBS/Stim/gate"

// Target is a single 32-bit word naming one operand of an Operation. Bits
// 0-23 hold a qubit index; the remaining bits are gate-specific flags
// whose legality is decided by the owning gate's Flags (see
// validateTargets).
//
//	bits  0-23: qubit index
//	bit      24: Pauli X component
//	bit      25: Pauli Z component (X|Z together mean Y)
//	bits 28-31: measurement-record lookback dt, 0 meaning "none"
//	bit      31: on a result-producing target, marks result inversion
//
// The lookback field and the inversion bit share bit 31 because no single
// gate ever permits both kinds of extra bits on the same target (see
// validTargetMask); which meaning applies is decided entirely by the
// owning gate's flags.
type Target uint32

const (
	QubitMask    Target = 0x00FFFFFF
	PauliXMask   Target = 1 << 24
	PauliZMask   Target = 1 << 25
	RecordShift        = 28
	RecordMask   Target = 0xF << RecordShift
	InvertedMask Target = 1 << 31

	// MaxQubit is the largest qubit index the 24-bit qubit field can hold.
	MaxQubit = 1<<24 - 1
	// MaxRecordLookback is the largest dt a record target may encode.
	MaxRecordLookback = 15
)

// Qubit returns the qubit index encoded in t.
func (t Target) Qubit() uint32 {
	return uint32(t & QubitMask)
}

// Pauli returns the X and Z components of a Pauli-string target.
func (t Target) Pauli() (x, z bool) {
	return t&PauliXMask != 0, t&PauliZMask != 0
}

// RecordLookback returns the dt value of a record target, or 0 if the
// target carries no record reference.
func (t Target) RecordLookback() uint32 {
	return uint32((t & RecordMask) >> RecordShift)
}

// Inverted reports whether a result target's inversion bit is set.
func (t Target) Inverted() bool {
	return t&InvertedMask != 0
}

// NewQubitTarget builds a plain qubit target.
func NewQubitTarget(qubit uint32) Target {
	return Target(qubit) & QubitMask
}

// NewResultTarget builds a result-producing target, optionally inverted.
func NewResultTarget(qubit uint32, inverted bool) Target {
	t := Target(qubit) & QubitMask
	if inverted {
		t |= InvertedMask
	}
	return t
}

// NewPauliTarget builds a Pauli-string target; x and z must not both be
// false (that combination is the Pauli "I", which callers should omit
// rather than encode).
func NewPauliTarget(qubit uint32, x, z bool) Target {
	t := Target(qubit) & QubitMask
	if x {
		t |= PauliXMask
	}
	if z {
		t |= PauliZMask
	}
	return t
}

// NewRecordTarget builds a qubit@-dt target. dt of 0 means "no record
// reference" (legal only where the gate makes the record optional).
func NewRecordTarget(qubit uint32, dt uint32) Target {
	return (Target(qubit) & QubitMask) | (Target(dt) << RecordShift)
}

// validTargetMask returns the set of bits (beyond QubitMask) a target of
// a gate with the given flags is permitted to carry. This is the target
// validation policy.
func validTargetMask(flags gate.Flags) Target {
	mask := QubitMask
	if flags.Has(gate.ProducesResults) {
		mask |= InvertedMask
	}
	if flags.Has(gate.TargetsPauliString) {
		mask |= PauliXMask | PauliZMask
	}
	if flags.Has(gate.OnlyTargetsMeasurementRecord) || flags.Has(gate.CanTargetMeasurementRecord) {
		mask |= RecordMask
	}
	return mask
}
