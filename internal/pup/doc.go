// Package pup implements the Powered-Up BLE advertisement codec.
//
// Trains and switches are not connected to; commands travel as
// manufacturer-specific advertising payloads (manufacturer id 919) and
// hubs broadcast their status the same way. The medium is lossy and
// connectionless, so reliability lives in the layers above (repetition
// and verification), never here.
//
// All encode/decode functions are pure. Out-of-range command values fail
// with ErrInvalidCommand rather than being clamped; malformed or foreign
// frames fail with ErrInvalidFrame.
//
// The wire conventions (fixed 0x08 length byte, self-drive sentinels
// 101/102, the port bit mapping) are matched to hub firmware this
// service does not control. Preserve them exactly.
package pup
