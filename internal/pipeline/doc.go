// Package pipeline turns accepted commands into radio broadcasts.
//
// Each device class has its own pipeline with its own trade-off. Trains
// are fire-and-forget with batched draining, because live speed control
// wants latency over certainty. Switches are processed serially with
// backoff, retries and registry verification, because a missed point
// change derails the railway rather than just arriving late.
//
// Per-command lifecycle: Queued -> Sending -> Verifying -> Succeeded or
// Exhausted. The reliability tracker counts every physical attempt and
// every confirmed success per (channel, port).
package pipeline
