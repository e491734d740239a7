package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatrixMultiplyOrder(t *testing.T) {
	// Scale then translate: the translation is not scaled.
	m := Scale(2, 2).Multiply(Translate(10, 20))
	got := m.Transform(Point{1, 1})
	if diff := cmp.Diff(Point{12, 22}, got); diff != "" {
		t.Errorf("Transform() mismatch (-want +got):\n%s", diff)
	}

	// Translate then scale: it is.
	m = Translate(10, 20).Multiply(Scale(2, 2))
	got = m.Transform(Point{1, 1})
	if diff := cmp.Diff(Point{22, 42}, got); diff != "" {
		t.Errorf("Transform() mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentity(t *testing.T) {
	m := Matrix{2, 0, 0, 3, 4, 5}
	if m.Multiply(Identity()) != m || Identity().Multiply(m) != m {
		t.Error("identity is not neutral")
	}
}

func TestVerticalScale(t *testing.T) {
	tests := []struct {
		m    Matrix
		want float64
	}{
		{Identity(), 1},
		{Scale(1, 12), 12},
		{Matrix{0, 3, -4, 0, 0, 0}, 4},
	}
	for _, tt := range tests {
		if got := tt.m.VerticalScale(); got != tt.want {
			t.Errorf("%v.VerticalScale() = %v, want %v", tt.m, got, tt.want)
		}
	}
}
