// ABOUTME: Tests for the scheduled slice pool
// ABOUTME: Verifies the capacity cap and completion lifecycle
package duplex

import (
	"errors"
	"testing"
)

func TestSlicePoolStartsFull(t *testing.T) {
	p := NewSlicePool()
	if got := p.Available(); got != SliceCount {
		t.Errorf("expected %d available slots, got %d", SliceCount, got)
	}
}

func TestSlicePoolCapacityCap(t *testing.T) {
	p := NewSlicePool()

	claimed := make([]*Slice, 0, SliceCount)
	for i := 0; i < SliceCount; i++ {
		s, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
		claimed = append(claimed, s)
	}

	if _, err := p.Acquire(); !errors.Is(err, ErrNoFreeSlices) {
		t.Fatalf("expected ErrNoFreeSlices, got %v", err)
	}

	// Completing one slot frees exactly one subsequent Acquire
	claimed[3].Complete()
	if _, err := p.Acquire(); err != nil {
		t.Fatalf("Acquire after completion failed: %v", err)
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrNoFreeSlices) {
		t.Fatalf("expected ErrNoFreeSlices after refill, got %v", err)
	}
}

func TestSliceInstallReplacesPayload(t *testing.T) {
	p := NewSlicePool()
	s, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}

	first := make([]int32, 64)
	s.install(first, 32, 100, nil)
	s.arm()
	s.Complete()

	s2, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if s2 != s {
		// Pool scan order makes the same slot come back first
		t.Log("different slot returned; payload replacement still checked")
	}
	second := make([]int32, 16)
	s2.install(second, 8, sliceTimeASAP, nil)
	if s2.frameCount != 8 || s2.timestamp != sliceTimeASAP || s2.rendered != 0 {
		t.Errorf("payload not replaced: frames=%d ts=%d rendered=%d", s2.frameCount, s2.timestamp, s2.rendered)
	}
}

func TestCompletionMarkRunsOncePerClaim(t *testing.T) {
	p := NewSlicePool()
	s, _ := p.Acquire()

	calls := 0
	s.install(make([]int32, 8), 4, sliceTimeASAP, func(*Slice) { calls++ })
	s.arm()

	s.Complete()
	if calls != 1 {
		t.Fatalf("expected one completion call, got %d", calls)
	}
	if !s.available.Load() {
		t.Error("slot not returned to pool after completion")
	}
}

func TestCompleteAllFreesArmedSlices(t *testing.T) {
	p := NewSlicePool()

	s1, _ := p.Acquire()
	s1.install(make([]int32, 8), 4, 100, nil)
	s1.arm()
	s2, _ := p.Acquire()
	s2.install(make([]int32, 8), 4, 200, nil)
	s2.arm()

	p.completeAll()
	if got := p.Available(); got != SliceCount {
		t.Errorf("expected all slots free after completeAll, got %d", got)
	}

	// Idempotent on an idle pool
	p.completeAll()
	if got := p.Available(); got != SliceCount {
		t.Errorf("expected all slots free, got %d", got)
	}
}
