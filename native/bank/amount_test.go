package bank

import (
	"errors"
	"math"
	"testing"
)

func TestScaleAmount(t *testing.T) {
	scaled, err := ScaleAmount(3, 5)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if scaled.Uint64() != 300000 {
		t.Fatalf("unexpected scaled amount %s", scaled)
	}
	zero, err := ScaleAmount(0, 9)
	if err != nil || zero.Sign() != 0 {
		t.Fatalf("expected zero, got %v (%v)", zero, err)
	}
}

func TestScaleAmountOverflow(t *testing.T) {
	if _, err := ScaleAmount(math.MaxUint64, 1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := ScaleAmount(1, 20); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow for 10^20, got %v", err)
	}
	if _, err := ScaleAmount(1, 19); err != nil {
		t.Fatalf("10^19 fits in uint64: %v", err)
	}
}
