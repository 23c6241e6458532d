// Package control is the facade between the outer surfaces (HTTP, MQTT
// consumers) and the core. It validates targets against the registry,
// clamps and encodes command values, feeds the pipelines and fans
// accepted status updates out to the broker and the telemetry sink.
package control
