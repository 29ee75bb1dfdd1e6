package portfolio

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// RiskConfig parameterizes the risk calculators.
type RiskConfig struct {
	// PeriodsPerYear is the annualization factor: 252 for daily series.
	// It is configuration rather than a constant so weekly or monthly
	// series annualize correctly.
	PeriodsPerYear float64

	// RiskFreeRate is the annualized risk-free rate used by the Sharpe
	// ratio, as a decimal fraction.
	RiskFreeRate float64

	// Confidence is the VaR confidence level (0.95 reports the 5th
	// percentile loss).
	Confidence float64

	// MinSample is the floor below which VaR and volatility estimation
	// fail with ErrInsufficientSample instead of returning a
	// statistically meaningless number.
	MinSample int
}

// DefaultRiskConfig returns the configuration for daily return series.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		PeriodsPerYear: 252,
		RiskFreeRate:   0,
		Confidence:     0.95,
		MinSample:      20,
	}
}

// RiskMetrics is the derived risk profile of a return series.
type RiskMetrics struct {
	// Volatility is the annualized sample standard deviation of the
	// daily returns.
	Volatility float64

	// Sharpe is nil when volatility is zero: an all-cash fund has no
	// meaningful ratio, and that is a valid portfolio state rather than
	// an error.
	Sharpe *float64

	// MaxDrawdown is the deepest peak-to-trough decline of the
	// compounded NAV index, reported as a positive magnitude in [0, 1].
	// (The dashboard charts it negative; that is presentation.)
	MaxDrawdown float64

	// VaR95 and VaR99 are historical-simulation value-at-risk figures:
	// losses reported as positive magnitudes.
	VaR95 float64
	VaR99 float64
}

// RiskCalculator derives volatility, Sharpe ratio, max drawdown and VaR
// from a daily return series.
type RiskCalculator struct {
	cfg RiskConfig
}

// NewRiskCalculator returns a calculator with the given configuration;
// zero-value fields fall back to DefaultRiskConfig.
func NewRiskCalculator(cfg RiskConfig) *RiskCalculator {
	def := DefaultRiskConfig()
	if cfg.PeriodsPerYear == 0 {
		cfg.PeriodsPerYear = def.PeriodsPerYear
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = def.Confidence
	}
	if cfg.MinSample == 0 {
		cfg.MinSample = def.MinSample
	}
	return &RiskCalculator{cfg: cfg}
}

// Compute derives the full risk profile. It fails with
// ErrInsufficientSample when the sample is below the configured floor.
func (c *RiskCalculator) Compute(returns []float64) (*RiskMetrics, error) {
	if len(returns) < c.cfg.MinSample {
		return nil, fmt.Errorf("risk metrics need %d observations, have %d: %w",
			c.cfg.MinSample, len(returns), ErrInsufficientSample)
	}

	vol := c.Volatility(returns)
	m := &RiskMetrics{
		Volatility:  vol,
		Sharpe:      c.SharpeRatio(returns, vol),
		MaxDrawdown: MaxDrawdown(returns),
		VaR95:       c.valueAtRisk(returns, 0.95),
		VaR99:       c.valueAtRisk(returns, 0.99),
	}
	return m, nil
}

// Volatility is the annualized sample standard deviation of the returns.
func (c *RiskCalculator) Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(c.cfg.PeriodsPerYear)
}

// SharpeRatio is (mean·N − riskFree) / volatility, annualized. It returns
// nil when volatility is zero rather than raising or returning infinity.
func (c *RiskCalculator) SharpeRatio(returns []float64, volatility float64) *float64 {
	if volatility == 0 || len(returns) == 0 {
		return nil
	}
	sharpe := (stat.Mean(returns, nil)*c.cfg.PeriodsPerYear - c.cfg.RiskFreeRate) / volatility
	return &sharpe
}

// ValueAtRisk is the historical-simulation VaR at the configured
// confidence level, as a positive loss magnitude. It fails with
// ErrInsufficientSample below the configured floor.
func (c *RiskCalculator) ValueAtRisk(returns []float64) (float64, error) {
	if len(returns) < c.cfg.MinSample {
		return 0, fmt.Errorf("VaR needs %d observations, have %d: %w",
			c.cfg.MinSample, len(returns), ErrInsufficientSample)
	}
	return c.valueAtRisk(returns, c.cfg.Confidence), nil
}

func (c *RiskCalculator) valueAtRisk(returns []float64, confidence float64) float64 {
	sorted := slices.Clone(returns)
	slices.Sort(sorted)
	// Select the tail observation by rank: float arithmetic on
	// 1-confidence can land a hair above the p·n boundary and make a
	// quantile routine skip past the worst observations.
	idx := int(math.Ceil((1-confidence)*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	q := sorted[idx]
	if q > 0 {
		return 0 // the loss tail is positive: no loss at this confidence
	}
	return -q
}

// MaxDrawdown rebuilds the compounded NAV index from the returns and
// returns the deepest peak-to-trough decline as a positive fraction.
// For any series with nav > 0 throughout it lies in [0, 1].
func MaxDrawdown(returns []float64) float64 {
	index, peak := 1.0, 1.0
	var worst float64
	for _, r := range returns {
		index *= 1 + r
		if index > peak {
			peak = index
		}
		if dd := (peak - index) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}
