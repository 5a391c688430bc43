package contracts

import "fmt"

// FetchError is a transient upstream failure (network, rate limit, bad payload).
// Retried with bounded backoff, then surfaced per ticker without aborting the batch.
type FetchError struct {
	Ticker string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Ticker, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// DataQualityError means a ticker's data is unusable after cleaning.
// The ticker is skipped and excluded from the assembled dataset.
type DataQualityError struct {
	Ticker string
	Reason string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality check failed for %s: %s", e.Ticker, e.Reason)
}

// InsufficientHistoryError means a ticker lacks the warm-up window for the
// longest indicator. Local to the ticker, never fails the run.
type InsufficientHistoryError struct {
	Ticker string
	Have   int
	Need   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: have %d bars, need %d", e.Ticker, e.Have, e.Need)
}

// InsufficientDataError means a simulation cannot run (fewer than 2 bars)
type InsufficientDataError struct {
	Ticker string
	Have   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d bars, no trade possible", e.Ticker, e.Have)
}

// ModelUnavailableError means the predictor artifact/service cannot be reached.
// Fatal for the predictor stage only; the pipeline and simulator stay usable
// with externally supplied signals.
type ModelUnavailableError struct {
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Cause)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}
