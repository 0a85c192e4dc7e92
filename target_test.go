package stim

import (
	"testing"

	"github.com/KuantumBS/Stim/gate"
)

func TestTargetAccessors(t *testing.T) {
	q := NewQubitTarget(5)
	if q.Qubit() != 5 {
		t.Fatalf("NewQubitTarget(5).Qubit() = %d, want 5", q.Qubit())
	}

	r := NewResultTarget(7, true)
	if r.Qubit() != 7 || !r.Inverted() {
		t.Fatalf("NewResultTarget(7, true) = %#x, want qubit=7 inverted=true", uint32(r))
	}

	p := NewPauliTarget(9, true, true)
	x, z := p.Pauli()
	if p.Qubit() != 9 || !x || !z {
		t.Fatalf("NewPauliTarget(9, true, true) = %#x, want qubit=9 X=Z=true", uint32(p))
	}

	rec := NewRecordTarget(3, 2)
	if rec.Qubit() != 3 || rec.RecordLookback() != 2 {
		t.Fatalf("NewRecordTarget(3, 2) = %#x, want qubit=3 dt=2", uint32(rec))
	}
}

func TestRecordLookbackFitsFourBits(t *testing.T) {
	rec := NewRecordTarget(0, MaxRecordLookback)
	if rec.RecordLookback() != MaxRecordLookback {
		t.Fatalf("RecordLookback() = %d, want %d", rec.RecordLookback(), MaxRecordLookback)
	}
	t.Logf("max record lookback %d encoded without clobbering qubit bits: %#x", MaxRecordLookback, uint32(rec))
}

func TestValidTargetMask(t *testing.T) {
	tests := []struct {
		name  string
		flags gate.Flags
		want  Target
	}{
		{"plain", 0, QubitMask},
		{"results", gate.ProducesResults, QubitMask | InvertedMask},
		{"pauli", gate.TargetsPauliString, QubitMask | PauliXMask | PauliZMask},
		{"record-only", gate.OnlyTargetsMeasurementRecord, QubitMask | RecordMask},
		{"record-optional", gate.CanTargetMeasurementRecord, QubitMask | RecordMask},
	}
	for _, tt := range tests {
		if got := validTargetMask(tt.flags); got != tt.want {
			t.Errorf("validTargetMask(%s) = %#x, want %#x", tt.name, uint32(got), uint32(tt.want))
		}
	}
}
