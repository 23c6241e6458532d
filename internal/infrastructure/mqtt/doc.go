// Package mqtt provides the broker connection used to fan hub state out
// of the service.
//
// Every accepted registry update is published retained on
// railyard/state/{train,switch}/<channel>, so dashboards and the
// WebSocket bridge see the current layout the moment they subscribe.
// Service availability is announced on railyard/system/status with a
// Last Will and Testament for crash detection.
//
// The client wraps github.com/eclipse/paho.mqtt.golang and restores
// subscriptions automatically after a reconnect.
package mqtt
