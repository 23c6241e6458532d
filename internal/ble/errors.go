package ble

import "errors"

// Domain errors for the radio access layer.
var (
	// ErrAdapterUnavailable is returned when the system has no usable
	// BLE adapter or it cannot be enabled.
	ErrAdapterUnavailable = errors.New("ble: adapter unavailable")

	// ErrTransmitFailure is returned when a broadcast burst cannot be
	// started. Pipelines absorb it until their retries are exhausted.
	ErrTransmitFailure = errors.New("ble: transmit failed")

	// ErrScanFailure is returned when a scan session ends abnormally.
	// The monitor loop recovers it by restarting; it never reaches callers.
	ErrScanFailure = errors.New("ble: scan failed")

	// ErrResetFailure is returned when the adapter power cycle fails.
	// Callers log it and carry on; their retry logic treats it as non-fatal.
	ErrResetFailure = errors.New("ble: adapter reset failed")
)
