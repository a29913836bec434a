package service_test

import (
	"math"
	"testing"

	"github.com/medme/secwatch/internal/domain/service"
)

func TestSuspicionScore_Formulas(t *testing.T) {
	tests := []struct {
		typ   string
		count int
		want  int
	}{
		{"RAPID_CLICKING", 10, 20},
		{"RAPID_CLICKING", 30, 60},
		{"RAPID_CLICKING", 80, 60},
		{"UNUSUAL_NAVIGATION", 999, 30},
		{"AUTOMATED_BEHAVIOR", 1, 80},
		{"UNKNOWN", 5, 20},
	}
	for _, tt := range tests {
		if got := service.SuspicionScore(tt.typ, tt.count); got != tt.want {
			t.Errorf("SuspicionScore(%s, %d) = %d, want %d", tt.typ, tt.count, got, tt.want)
		}
	}
}

func TestSuspicionScore_RapidClickingMonotonicAndCapped(t *testing.T) {
	prev := -1
	for count := -10; count <= 200; count++ {
		got := service.SuspicionScore("RAPID_CLICKING", count)
		if got < prev {
			t.Fatalf("score decreased at count %d: %d < %d", count, got, prev)
		}
		if got > 60 {
			t.Fatalf("score %d exceeds cap at count %d", got, count)
		}
		prev = got
	}
	if got := service.SuspicionScore("RAPID_CLICKING", math.MaxInt); got != 60 {
		t.Errorf("expected 60 for huge count, got %d", got)
	}
}

func TestSuspicionScore_AlwaysBounded(t *testing.T) {
	types := []string{"RAPID_CLICKING", "UNUSUAL_NAVIGATION", "AUTOMATED_BEHAVIOR", "", "X"}
	counts := []int{math.MinInt, -1, 0, 1, 75, math.MaxInt}
	for _, typ := range types {
		for _, c := range counts {
			if got := service.SuspicionScore(typ, c); got < 0 || got > 100 {
				t.Errorf("SuspicionScore(%q, %d) = %d out of range", typ, c, got)
			}
		}
	}
}

func TestScorer_ShouldEscalate(t *testing.T) {
	s := service.NewScorer(0)
	if s.Threshold() != service.DefaultEscalationThreshold {
		t.Fatalf("expected default threshold, got %d", s.Threshold())
	}
	if s.ShouldEscalate(75) {
		t.Error("75 must not escalate")
	}
	if !s.ShouldEscalate(76) {
		t.Error("76 must escalate")
	}
	if !service.NewScorer(50).ShouldEscalate(60) {
		t.Error("custom threshold not honoured")
	}
}
