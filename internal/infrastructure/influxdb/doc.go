// Package influxdb is the optional telemetry sink. Train speed and
// signal strength, switch positions and per-port delivery reliability
// are written non-blocking through the batching WriteAPI.
//
// The service holds no state here; if InfluxDB is disabled or down the
// railway runs exactly the same.
package influxdb
