package portfolio

import "errors"

// Error kinds of the engine. All are recoverable by the caller: the Facade
// catches them and omits the affected report section or marks it
// unavailable, it never substitutes a fabricated zero.
var (
	// ErrInsufficientData reports that too few snapshots exist for the
	// requested computation (a period return needs at least two).
	ErrInsufficientData = errors.New("insufficient data for requested period")

	// ErrNoBenchmarkData reports that a benchmark series has no points in
	// the requested window.
	ErrNoBenchmarkData = errors.New("no benchmark data in requested window")

	// ErrInsufficientSample reports a return sample below the configured
	// floor for VaR or volatility estimation.
	ErrInsufficientSample = errors.New("return sample below configured floor")

	// ErrDataUnavailable reports that the backing store failed to deliver
	// the snapshot window in time.
	ErrDataUnavailable = errors.New("time series data unavailable")
)
