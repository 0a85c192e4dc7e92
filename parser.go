package stim

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/KuantumBS/Stim/gate"
	"go.uber.org/zap"
)

// ByteSource is the pluggable character source the parser pulls from. It
// is invoked once per byte and never yields control internally: there are
// no suspension points and no cancellation protocol. A caller that needs
// either wraps the source itself (e.g. returning ok=false to abort).
type ByteSource interface {
	// Next returns the next input byte, or ok=false at end of input.
	Next() (b byte, ok bool)
}

type stringSource struct {
	s string
	i int
}

// NewStringSource returns a ByteSource that yields the bytes of s in
// order.
func NewStringSource(s string) ByteSource {
	return &stringSource{s: s}
}

func (src *stringSource) Next() (byte, bool) {
	if src.i >= len(src.s) {
		return 0, false
	}
	b := src.s[src.i]
	src.i++
	return b, true
}

type readerSource struct {
	r *bufio.Reader
}

// NewReaderSource adapts an io.Reader (e.g. an open file) into a
// ByteSource, buffering reads internally.
func NewReaderSource(r io.Reader) ByteSource {
	return &readerSource{r: bufio.NewReader(r)}
}

func (src *readerSource) Next() (byte, bool) {
	b, err := src.r.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

// ReadCondition controls how much of the source a single parse call
// consumes.
type ReadCondition int

const (
	// UntilEndOfFile reads operations until the source is exhausted.
	UntilEndOfFile ReadCondition = iota
	// UntilEndOfBlock reads operations until a balancing '}' is found.
	// It is used internally for REPEAT bodies; a caller that starts a
	// top-level parse with this condition will fail if no '}' appears.
	UntilEndOfBlock
	// AsLittleAsPossible returns after exactly one top-level operation
	// (REPEAT blocks still expand in full). Used to stream a circuit
	// one instruction at a time.
	AsLittleAsPossible
)

const eof = -1

func isNameChar(c int) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

func isDoubleChar(c int) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-'
}

func isLineSpace(c int) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func describeChar(c int) string {
	if c == eof {
		return "end of input"
	}
	return fmt.Sprintf("%q", rune(c))
}

// scanner drives a single ByteSource through the grammar, writing target
// words and operations directly into the circuit being built.
type scanner struct {
	src      ByteSource
	c        int
	circuit  *Circuit
	repeatID int
}

func newScanner(src ByteSource, c *Circuit) *scanner {
	s := &scanner{src: src, circuit: c, repeatID: -1}
	if g, ok := c.catalog.Lookup(gate.Repeat); ok {
		s.repeatID = g.ID
	}
	return s
}

func (s *scanner) advance() {
	b, ok := s.src.Next()
	if !ok {
		s.c = eof
		return
	}
	s.c = int(b)
}

func (s *scanner) skipInlineWhitespace() {
	for s.c == ' ' || s.c == '\t' {
		s.advance()
	}
}

func (s *scanner) skipDeadSpace() {
	for {
		for isLineSpace(s.c) {
			s.advance()
		}
		if s.c == eof || s.c != '#' {
			return
		}
		for s.c != '\n' && s.c != eof {
			s.advance()
		}
	}
}

func (s *scanner) readGateName() (string, error) {
	var sb strings.Builder
	for isNameChar(s.c) {
		sb.WriteByte(byte(s.c))
		s.advance()
	}
	if sb.Len() == 0 {
		return "", syntaxErrorf("expected a gate name but got %s", describeChar(s.c))
	}
	return sb.String(), nil
}

func (s *scanner) readNonNegativeFloat() (float64, error) {
	var sb strings.Builder
	for isDoubleChar(s.c) && sb.Len() < 63 {
		sb.WriteByte(byte(s.c))
		s.advance()
	}
	token := sb.String()
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, rangeErrorWrap(err, "not a non-negative real number: %q", token)
	}
	if !(v >= 0) {
		return 0, rangeErrorf("not a non-negative real number: %q", token)
	}
	return v, nil
}

func (s *scanner) readParensArgument(gateName string) (float64, error) {
	if s.c != '(' {
		return 0, schemaErrorf(gateName, "missing a parens argument")
	}
	s.advance()
	s.skipInlineWhitespace()
	v, err := s.readNonNegativeFloat()
	if err != nil {
		return 0, err
	}
	s.skipInlineWhitespace()
	if s.c != ')' {
		return 0, schemaErrorf(gateName, "missing a closing parens for its argument")
	}
	s.advance()
	return v, nil
}

func (s *scanner) readUint24() (uint32, error) {
	if !(s.c >= '0' && s.c <= '9') {
		return 0, syntaxErrorf("expected a digit but got %s", describeChar(s.c))
	}
	var result uint32
	for s.c >= '0' && s.c <= '9' {
		result = result*10 + uint32(s.c-'0')
		if result > MaxQubit {
			return 0, rangeErrorf("qubit index too large (must be <= %d)", MaxQubit)
		}
		s.advance()
	}
	return result, nil
}

// readUntilNextLineArg consumes inline whitespace and comments between
// targets, reporting whether another target follows on this line.
func (s *scanner) readUntilNextLineArg() (bool, error) {
	if s.c != ' ' && s.c != '#' && s.c != '\t' && s.c != '\n' && s.c != '{' && s.c != eof {
		return false, syntaxErrorf("gate targets must be separated by spacing, got %s", describeChar(s.c))
	}
	for s.c == ' ' || s.c == '\t' {
		s.advance()
	}
	if s.c == '#' {
		for s.c != '\n' && s.c != eof {
			s.advance()
		}
	}
	return s.c != '\n' && s.c != '{' && s.c != eof, nil
}

func (s *scanner) readRecordTarget(required bool) (Target, error) {
	q, err := s.readUint24()
	if err != nil {
		return 0, err
	}
	var dt uint32
	if s.c == '@' {
		s.advance()
		if s.c != '-' {
			return 0, syntaxErrorf("missing '-' after '@' in record target (like '2@-3')")
		}
		s.advance()
		dt, err = s.readUint24()
		if err != nil {
			return 0, err
		}
		if dt == 0 {
			return 0, rangeErrorf("minimum lookback in a record target (like 2@-3) is -1, not -0")
		}
		if dt > MaxRecordLookback {
			return 0, rangeErrorf("maximum lookback in a record target (like 2@-3) is -%d", MaxRecordLookback)
		}
	} else if required {
		return 0, syntaxErrorf("missing '@' in record target (like '2@-3')")
	}
	return NewRecordTarget(q, dt), nil
}

func (s *scanner) readRecordTargets(required bool) error {
	for {
		more, err := s.readUntilNextLineArg()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		t, err := s.readRecordTarget(required)
		if err != nil {
			return err
		}
		s.circuit.arena.Append(t)
	}
}

func (s *scanner) readPauliTargets() error {
	for {
		more, err := s.readUntilNextLineArg()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		var x, z bool
		switch s.c {
		case 'X', 'x':
			x = true
		case 'Y', 'y':
			x, z = true, true
		case 'Z', 'z':
			z = true
		default:
			return syntaxErrorf("expected a Pauli (X, Y or Z) but got %s", describeChar(s.c))
		}
		s.advance()
		if s.c == ' ' {
			return syntaxErrorf("unexpected space after Pauli before its target qubit index")
		}
		q, err := s.readUint24()
		if err != nil {
			return err
		}
		s.circuit.arena.Append(NewPauliTarget(q, x, z))
	}
}

// readResultTargets reads a plain-or-inverted qubit target list: an
// optional leading '!' followed by a qubit index. It backs both
// PRODUCES_RESULTS targets and the plain-qubit default case, since the
// lexer admits '!' in either position; whether the inversion bit is
// actually legal on the resulting target is left to validateTargets.
func (s *scanner) readResultTargets() error {
	for {
		more, err := s.readUntilNextLineArg()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		inverted := false
		if s.c == '!' {
			inverted = true
			s.advance()
		}
		q, err := s.readUint24()
		if err != nil {
			return err
		}
		s.circuit.arena.Append(NewResultTarget(q, inverted))
	}
}

func (s *scanner) readTargetsForGate(g *gate.Gate) error {
	switch {
	case g.Flags.Has(gate.OnlyTargetsMeasurementRecord):
		return s.readRecordTargets(true)
	case g.Flags.Has(gate.CanTargetMeasurementRecord):
		return s.readRecordTargets(false)
	case g.Flags.Has(gate.ProducesResults):
		return s.readResultTargets()
	case g.Flags.Has(gate.TargetsPauliString):
		return s.readPauliTargets()
	default:
		return s.readResultTargets()
	}
}

// readSingleOperation parses one instruction, starting with leadChar as
// the first character of its gate name, and appends the resulting
// Operation to the circuit. No partial operation survives a failure: the
// arena may have grown, but the caller (readOperations) always aborts the
// whole parse on error, so a half-built operation is never observed.
func (s *scanner) readSingleOperation(leadChar int) error {
	s.c = leadChar
	name, err := s.readGateName()
	if err != nil {
		return err
	}
	g, ok := s.circuit.catalog.Lookup(name)
	if !ok {
		return schemaErrorf(name, "unknown gate")
	}

	var arg float64
	if g.Flags.Has(gate.TakesParensArgument) {
		s.skipInlineWhitespace()
		arg, err = s.readParensArgument(g.Name)
		if err != nil {
			return err
		}
	} else if s.c == '(' {
		// A gate without TakesParensArgument accepts a parens argument
		// only when its value is zero.
		arg, err = s.readParensArgument(g.Name)
		if err != nil {
			return err
		}
		if arg != 0 {
			return schemaErrorf(g.Name, "does not take a parens argument")
		}
	}

	offset := s.circuit.arena.Len()
	if err := s.readTargetsForGate(g); err != nil {
		return err
	}
	length := s.circuit.arena.Len() - offset

	if g.Flags.Has(gate.IsBlock) && s.c != '{' {
		return schemaErrorf(g.Name, "missing '{' at the start of its block")
	}
	if s.c == '{' && !g.Flags.Has(gate.IsBlock) {
		return schemaErrorf(g.Name, "unexpected '{' after a non-block command")
	}

	targets := s.circuit.arena.View(offset, length)
	if g.Flags.Has(gate.TargetsPairs) {
		if length%2 != 0 {
			return schemaErrorf(g.Name, "applied to an odd number of targets (%d)", length)
		}
		for i := 0; i+1 < length; i += 2 {
			if targets[i].Qubit() == targets[i+1].Qubit() {
				return schemaErrorf(g.Name, "interacting a target with itself (qubit %d)", targets[i].Qubit())
			}
		}
	}
	if err := validateTargets(g, targets); err != nil {
		return err
	}

	op := Operation{
		Gate: g,
		Arg:  arg,
		targets: targetSlice{
			arena:  s.circuit.arena,
			offset: offset,
			length: length,
		},
	}
	s.circuit.Operations = append(s.circuit.Operations, op)
	s.circuit.updateCountsFromOperation(&s.circuit.Operations[len(s.circuit.Operations)-1])
	return nil
}

// readOperations is the recursive core of the parser: it reads
// operations until the read condition is satisfied, fusing adjacent
// fusable operations and expanding REPEAT blocks in place.
func (s *scanner) readOperations(condition ReadCondition) error {
	canFuse := false
	for {
		s.advance()
		s.skipDeadSpace()

		if s.c == eof {
			if condition == UntilEndOfBlock {
				return syntaxErrorf("unterminated block: got '{' without a matching '}'")
			}
			return nil
		}
		if s.c == '}' {
			if condition != UntilEndOfBlock {
				return syntaxErrorf("unexpected '}' without a matching '{'")
			}
			return nil
		}

		before := len(s.circuit.Operations)
		numQubitsBefore := s.circuit.NumQubits
		leadChar := s.c
		if err := s.readSingleOperation(leadChar); err != nil {
			return err
		}

		newGateID := s.circuit.Operations[before].Gate.ID
		newArg := s.circuit.Operations[before].Arg
		newLength := s.circuit.Operations[before].targets.length

		switch {
		case s.repeatID >= 0 && newGateID == s.repeatID:
			if newLength != 1 {
				return schemaErrorf(gate.Repeat, "expected exactly one repetition count target, like REPEAT 100 {")
			}
			repCount := int(s.circuit.arena.PopLast().Qubit())
			s.circuit.Operations = s.circuit.Operations[:before]
			// The repetition count was read as an ordinary target, which
			// folded it into NumQubits via updateCountsFromOperation. It
			// names a repeat count, not a qubit, so undo that here.
			s.circuit.NumQubits = numQubitsBefore
			if repCount == 0 {
				return rangeErrorf("REPEAT 0 times is not supported")
			}

			bodyStart := len(s.circuit.Operations)
			measureStart := s.circuit.NumMeasurements
			if err := s.readOperations(UntilEndOfBlock); err != nil {
				return err
			}
			bodyEnd := len(s.circuit.Operations)
			delta := s.circuit.NumMeasurements - measureStart
			s.circuit.NumMeasurements += delta * (repCount - 1)
			if repCount > 1 {
				segment := slices.Clone(s.circuit.Operations[bodyStart:bodyEnd])
				for i := 1; i < repCount; i++ {
					s.circuit.Operations = append(s.circuit.Operations, segment...)
				}
			}
			s.circuit.logger.Debug("expanded REPEAT block",
				zap.Int("repetitions", repCount), zap.Int("body_operations", bodyEnd-bodyStart))
			canFuse = false

		case canFuse && before > 0 && s.circuit.Operations[before-1].canFuse(newGateID, newArg):
			s.circuit.Operations[before-1].targets.length += newLength
			s.circuit.Operations = s.circuit.Operations[:before]

		default:
			canFuse = true
		}

		if condition == AsLittleAsPossible {
			return nil
		}
	}
}

// AppendFromSource reads operations from src under the given condition,
// appending them to c. It reports whether any operation was appended.
func (c *Circuit) AppendFromSource(src ByteSource, condition ReadCondition) (bool, error) {
	before := len(c.Operations)
	s := newScanner(src, c)
	if err := s.readOperations(condition); err != nil {
		return len(c.Operations) > before, err
	}
	return len(c.Operations) > before, nil
}

// AppendFromText parses text in full and appends its operations to c.
func (c *Circuit) AppendFromText(text string) (bool, error) {
	return c.AppendFromSource(NewStringSource(text), UntilEndOfFile)
}

// AppendFromReader parses from r. If stopASAP is set, it returns after
// the first top-level operation instead of reading to the end.
func (c *Circuit) AppendFromReader(r io.Reader, stopASAP bool) (bool, error) {
	condition := UntilEndOfFile
	if stopASAP {
		condition = AsLittleAsPossible
	}
	return c.AppendFromSource(NewReaderSource(r), condition)
}

// ParseCircuit parses text into a brand new circuit.
func ParseCircuit(text string, opts ...Option) (*Circuit, error) {
	c, err := NewCircuit(opts...)
	if err != nil {
		return nil, err
	}
	if _, err := c.AppendFromText(text); err != nil {
		return nil, err
	}
	return c, nil
}
