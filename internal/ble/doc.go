// Package ble is the radio access layer. It owns the single physical
// BLE adapter and serialises every scan and broadcast through one mutex,
// so no two radio sequences ever interleave.
//
// Transmission is connectionless and best-effort: a broadcast burst
// repeats the enable/dwell/disable cycle a small fixed number of times
// because any single advertisement may be lost. Confirmation, retries
// and verification live in the pipeline layer above.
package ble
