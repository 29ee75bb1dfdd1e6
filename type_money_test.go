package portfolio

import (
	"math"
	"testing"
)

func TestMoneyRatio(t *testing.T) {
	tests := []struct {
		name string
		m, n Money
		want float64
	}{
		{"half", KRW(500000), KRW(1000000), 0.5},
		{"exact third stays exact", M(1, "KRW"), M(3, "KRW"), 1.0 / 3.0},
		{"weight of odd amounts", KRW(333333), KRW(999999), 1.0 / 3.0},
		{"greater than one", USD(150), USD(100), 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Ratio(tt.n); math.Abs(got-tt.want) > 1e-15 {
				t.Errorf("Ratio() = %v, want %v", got, tt.want)
			}
		})
	}
}
