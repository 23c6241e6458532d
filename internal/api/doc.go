// Package api provides the HTTP REST API and WebSocket server for
// Railyard Core.
//
// It exposes train and switch commands, the connected-device listings
// and system management endpoints to user interfaces (throttle apps,
// layout control panels, dashboards).
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
