package stim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KuantumBS/Stim/gate"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Circuit owns a target arena and an ordered operation sequence. NumQubits
// and NumMeasurements are maintained incrementally by every mutator; they
// are never recomputed from scratch except by Clear.
type Circuit struct {
	Operations []Operation

	NumQubits       int
	NumMeasurements int

	arena   *TargetArena
	catalog *gate.Catalog
	logger  *zap.Logger
}

// Option configures a Circuit at construction time.
type Option func(*Circuit)

// WithCatalog overrides the gate catalog a circuit resolves gate names
// against. Without this option, NewCircuit uses gate.Default().
func WithCatalog(c *gate.Catalog) Option {
	return func(circ *Circuit) { circ.catalog = c }
}

// WithLogger attaches a structured logger used for debug-level tracing of
// fusion and REPEAT expansion. Without this option, logs are discarded.
func WithLogger(l *zap.Logger) Option {
	return func(circ *Circuit) { circ.logger = l }
}

// NewCircuit returns an empty circuit backed by a fresh arena.
func NewCircuit(opts ...Option) (*Circuit, error) {
	c := &Circuit{arena: &TargetArena{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		cat, err := gate.Default()
		if err != nil {
			return nil, errors.Wrap(err, "building circuit")
		}
		c.catalog = cat
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Catalog returns the gate catalog this circuit resolves names against.
func (c *Circuit) Catalog() *gate.Catalog {
	return c.catalog
}

// Clear resets the circuit to empty, discarding the arena.
func (c *Circuit) Clear() {
	c.Operations = nil
	c.NumQubits = 0
	c.NumMeasurements = 0
	c.arena = &TargetArena{}
}

// Clone returns a deep, independent copy: a new arena holding copies of
// every target word, with every operation rebound to it.
func (c *Circuit) Clone() *Circuit {
	newArena := c.arena.Clone()
	ops := make([]Operation, len(c.Operations))
	for i, op := range c.Operations {
		ops[i] = Operation{
			Gate: op.Gate,
			Arg:  op.Arg,
			targets: targetSlice{
				arena:  newArena,
				offset: op.targets.offset,
				length: op.targets.length,
			},
		}
	}
	return &Circuit{
		Operations:      ops,
		NumQubits:       c.NumQubits,
		NumMeasurements: c.NumMeasurements,
		arena:           newArena,
		catalog:         c.catalog,
		logger:          c.logger,
	}
}

// validateTargets checks §4.1's target validation policy and, for gates
// with TargetsPairs, the even-count/no-self-interaction rule.
func validateTargets(g *gate.Gate, targets []Target) error {
	mask := validTargetMask(g.Flags)
	for _, t := range targets {
		if t != (t & mask) {
			return schemaErrorf(g.Name, "target %d has invalid flag bits %#x", t.Qubit(), uint32(t&^mask))
		}
		if g.Flags.Has(gate.OnlyTargetsMeasurementRecord) && t.RecordLookback() == 0 {
			return schemaErrorf(g.Name, "target %d is missing a required record lookback (like 2@-3)", t.Qubit())
		}
	}
	if g.Flags.Has(gate.TargetsPairs) {
		if len(targets)%2 != 0 {
			return schemaErrorf(g.Name, "applied to an odd number of targets (%d)", len(targets))
		}
		for i := 0; i+1 < len(targets); i += 2 {
			if targets[i].Qubit() == targets[i+1].Qubit() {
				return schemaErrorf(g.Name, "interacting a target with itself (qubit %d)", targets[i].Qubit())
			}
		}
	}
	return nil
}

// updateCountsFromOperation folds op's targets into NumQubits and, if the
// gate produces results, NumMeasurements. It always accounts for op's
// full current target list, so a caller that is about to extend a fused
// operation must subtract the old count first.
func (c *Circuit) updateCountsFromOperation(op *Operation) {
	targets := op.Targets()
	for _, t := range targets {
		if q := int(t.Qubit()) + 1; q > c.NumQubits {
			c.NumQubits = q
		}
	}
	if op.Gate.Flags.Has(gate.ProducesResults) {
		c.NumMeasurements += len(targets)
	}
}

// AppendGate is the operation builder: it looks up gateName, validates
// targets, and either fuses into the previous operation or pushes a new
// one. This is the entry point both the parser and external callers use
// to grow a circuit one instruction at a time.
func (c *Circuit) AppendGate(gateName string, targets []Target, arg float64, allowFusing bool) error {
	g, ok := c.catalog.Lookup(gateName)
	if !ok {
		return schemaErrorf(gateName, "unknown gate")
	}
	if err := validateTargets(g, targets); err != nil {
		return err
	}
	if arg != 0 && !g.Flags.Has(gate.TakesParensArgument) {
		return schemaErrorf(g.Name, "does not take a parens argument")
	}

	if allowFusing && len(c.Operations) > 0 {
		last := &c.Operations[len(c.Operations)-1]
		if last.canFuse(g.ID, arg) {
			if last.Gate.Flags.Has(gate.ProducesResults) {
				c.NumMeasurements -= last.targets.length
			}
			c.arena.Append(targets...)
			last.targets.length += len(targets)
			c.updateCountsFromOperation(last)
			c.logger.Debug("fused operation",
				zap.String("gate", g.Name), zap.Int("added_targets", len(targets)))
			return nil
		}
	}

	offset, length := c.arena.Append(targets...)
	c.Operations = append(c.Operations, Operation{
		Gate:    g,
		Arg:     arg,
		targets: targetSlice{arena: c.arena, offset: offset, length: length},
	})
	c.updateCountsFromOperation(&c.Operations[len(c.Operations)-1])
	return nil
}

// appendOperationValue copies op's target words (read from op's own arena) into
// c's own arena and pushes a fresh operation for them. Used when
// composing operations from a different circuit, where arena slices
// cannot be shared.
func (c *Circuit) appendOperationValue(op Operation) {
	words := op.Targets()
	offset, length := c.arena.Append(words...)
	newOp := Operation{
		Gate:    op.Gate,
		Arg:     op.Arg,
		targets: targetSlice{arena: c.arena, offset: offset, length: length},
	}
	c.Operations = append(c.Operations, newOp)
	c.updateCountsFromOperation(&c.Operations[len(c.Operations)-1])
}

// AppendCircuit appends other's operations, then replicates the resulting
// operation sequence repetitions-1 further times. A repetitions of 0 is a
// no-op. Appending a circuit to itself is handled by snapshotting the
// original operation count before mutating.
func (c *Circuit) AppendCircuit(other *Circuit, repetitions int) error {
	if repetitions == 0 {
		return nil
	}
	if repetitions < 0 {
		return rangeErrorf("repetition count must be non-negative, got %d", repetitions)
	}
	originalSize := len(c.Operations)

	if other == c {
		c.NumMeasurements *= repetitions + 1
		segment := slices.Clone(c.Operations[:originalSize])
		for i := 0; i < repetitions; i++ {
			c.Operations = append(c.Operations, segment...)
		}
		c.logger.Debug("self-composed circuit", zap.Int("repetitions", repetitions+1))
		return nil
	}

	measurementsBefore := c.NumMeasurements
	for _, op := range other.Operations {
		c.appendOperationValue(op)
	}
	singleRepEnd := len(c.Operations)
	if repetitions > 1 {
		c.NumMeasurements += (c.NumMeasurements - measurementsBefore) * (repetitions - 1)
		segment := slices.Clone(c.Operations[originalSize:singleRepEnd])
		for i := 1; i < repetitions; i++ {
			c.Operations = append(c.Operations, segment...)
		}
	}
	return nil
}

// Repeat mutates c in place to hold totalCopies back-to-back copies of
// itself. totalCopies of 0 clears the circuit.
func (c *Circuit) Repeat(totalCopies int) error {
	if totalCopies == 0 {
		c.Clear()
		return nil
	}
	if totalCopies < 0 {
		return rangeErrorf("repetition count must be non-negative, got %d", totalCopies)
	}
	return c.AppendCircuit(c, totalCopies-1)
}

// Equal reports exact circuit equality: same qubit/measurement counts and
// pairwise-equal operations in the same order.
func (c *Circuit) Equal(other *Circuit) bool {
	if c.NumQubits != other.NumQubits || c.NumMeasurements != other.NumMeasurements {
		return false
	}
	if len(c.Operations) != len(other.Operations) {
		return false
	}
	for i := range c.Operations {
		if !c.Operations[i].Equal(other.Operations[i]) {
			return false
		}
	}
	return true
}

// ApproxEqual is like Equal but tolerates per-operation argument
// differences up to atol.
func (c *Circuit) ApproxEqual(other *Circuit, atol float64) bool {
	if c.NumQubits != other.NumQubits || c.NumMeasurements != other.NumMeasurements {
		return false
	}
	if len(c.Operations) != len(other.Operations) {
		return false
	}
	for i := range c.Operations {
		if !c.Operations[i].ApproxEqual(other.Operations[i], atol) {
			return false
		}
	}
	return true
}

// String renders the circuit in canonical form: a header line followed by
// one line per operation.
func (c *Circuit) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Circuit [num_qubits=%d, num_measurements=%d]", c.NumQubits, c.NumMeasurements)
	for _, op := range c.Operations {
		sb.WriteByte('\n')
		sb.WriteString(op.String())
	}
	return sb.String()
}
