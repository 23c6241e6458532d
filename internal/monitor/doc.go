// Package monitor supervises the scan side of the radio. It keeps one
// scan session alive for the service lifetime, decoding hub status
// advertisements into the registry and fanning accepted updates out to
// observers (MQTT, telemetry, WebSocket clients).
//
// Recovery is deliberately blunt: on any scan failure the loop stops,
// waits a fixed delay and restarts, without distinguishing causes and
// without a retry ceiling.
package monitor
