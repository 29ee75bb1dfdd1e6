package portfolio

import "fmt"

// Return is a rate of return expressed as a decimal fraction (0.012 is 1.2%).
// Formatting to a percentage is a presentation concern only.
type Return float64

// Equal compares two returns with the tolerance used throughout reports.
func (r Return) Equal(s Return) bool {
	const precision = 1e-9
	diff := r - s
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

// Percent formats the return as a percentage string.
func (r Return) Percent() string {
	return fmt.Sprintf("%.2f%%", float64(r)*100)
}

// SignedPercent is like Percent with an explicit sign; zero renders as "-".
func (r Return) SignedPercent() string {
	res := fmt.Sprintf("%+.2f%%", float64(r)*100)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
