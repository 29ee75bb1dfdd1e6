package cmd

import (
	"testing"

	"github.com/goyangwoody/portfolio-manager"
)

func TestPeriodFlags_Spec(t *testing.T) {
	tests := []struct {
		name    string
		flags   periodFlags
		want    portfolio.PeriodSpec
		wantErr bool
	}{
		{
			name:  "default is all time",
			flags: periodFlags{unit: "month"},
			want:  portfolio.WholeHistory(),
		},
		{
			name:  "trailing periods",
			flags: periodFlags{last: 3, unit: "month"},
			want:  portfolio.LastPeriods(3, portfolio.Monthly),
		},
		{
			name:  "explicit window",
			flags: periodFlags{start: "2025-01-02", end: "2025-03-31"},
			want:  portfolio.Between(portfolio.NewDate(2025, 1, 2), portfolio.NewDate(2025, 3, 31)),
		},
		{
			name:    "start without end",
			flags:   periodFlags{start: "2025-01-02"},
			wantErr: true,
		},
		{
			name:    "bad unit",
			flags:   periodFlags{last: 2, unit: "fortnight"},
			wantErr: true,
		},
		{
			name:    "bad date",
			flags:   periodFlags{start: "02/01/2025", end: "2025-03-31"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.spec()
			if (err != nil) != tt.wantErr {
				t.Fatalf("spec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("spec() = %v, want %v", got, tt.want)
			}
		})
	}
}
