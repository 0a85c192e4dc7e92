package stim

import "github.com/KuantumBS/Stim/gate"

// DetectorsAndObservables performs the single forward pass described for
// the detector/observable resolver: it walks the circuit's operations in
// order, tracking each qubit's measurement history, and resolves every
// DETECTOR and OBSERVABLE_INCLUDE target to an absolute measurement
// index.
//
// The returned detector list has one entry per DETECTOR operation, in
// program order. The returned observable list is index-addressed by the
// integer argument of OBSERVABLE_INCLUDE operations; unreferenced indices
// below the maximum used index are present as empty slices.
func (c *Circuit) DetectorsAndObservables() (detectors [][]int, observables [][]int, err error) {
	detectorGate, ok := c.catalog.Lookup(gate.Detector)
	if !ok {
		return nil, nil, schemaErrorf(gate.Detector, "not present in gate catalog")
	}
	observableGate, ok := c.catalog.Lookup(gate.ObservableInclude)
	if !ok {
		return nil, nil, schemaErrorf(gate.ObservableInclude, "not present in gate catalog")
	}

	qubitMeasureIndices := map[uint32][]int{}
	nextMeasurement := 0

	resolve := func(op Operation) ([]int, error) {
		result := make([]int, 0, len(op.Targets()))
		for _, t := range op.Targets() {
			dt := t.RecordLookback()
			if dt == 0 {
				return nil, rangeErrorf("record lookback can't be 0 (unspecified) on qubit %d", t.Qubit())
			}
			history := qubitMeasureIndices[t.Qubit()]
			if int(dt) > len(history) {
				return nil, rangeErrorf(
					"qubit %d: referred to a measurement result before the beginning of time (dt=%d, have %d)",
					t.Qubit(), dt, len(history))
			}
			result = append(result, history[len(history)-int(dt)])
		}
		return result, nil
	}

	for _, op := range c.Operations {
		switch {
		case op.Gate.Flags.Has(gate.ProducesResults):
			for _, t := range op.Targets() {
				q := t.Qubit()
				qubitMeasureIndices[q] = append(qubitMeasureIndices[q], nextMeasurement)
				nextMeasurement++
			}
		case op.Gate.ID == detectorGate.ID:
			resolved, rerr := resolve(op)
			if rerr != nil {
				return nil, nil, rerr
			}
			detectors = append(detectors, resolved)
		case op.Gate.ID == observableGate.ID:
			obsIndex := int(op.Arg)
			if float64(obsIndex) != op.Arg || obsIndex < 0 {
				return nil, nil, rangeErrorf("observable index must be a non-negative integer, got %v", op.Arg)
			}
			resolved, rerr := resolve(op)
			if rerr != nil {
				return nil, nil, rerr
			}
			for len(observables) <= obsIndex {
				observables = append(observables, nil)
			}
			observables[obsIndex] = append(observables[obsIndex], resolved...)
		}
	}

	return detectors, observables, nil
}
