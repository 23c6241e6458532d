// Package device holds the domain model for Powered-Up hubs and the
// in-memory registry that tracks them.
//
// Hubs auto-register on first sighting and are never deleted; liveness
// is derived from the age of the last decoded advertisement. The active
// flag is separate from liveness: it marks hubs that were commanded
// recently so the monitor accepts denser status updates for them.
//
// Nothing in this package touches the radio. The monitor feeds decoded
// statuses in; pipelines and the API read snapshots out.
package device
