// Package api implements the HTTP REST API and WebSocket server of the
// simulated ESP32.
//
// This package provides:
//   - The device routes: status, sensors, control, config and reboot
//   - History routes backed by the optional SQLite store
//   - A WebSocket hub that streams simulator events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Optional HS256 bearer tokens on the mutating routes
//
// # Response shapes
//
// Successful reads return the resource itself. Mutations return an object
// with "success": true. Every failure returns
//
//	{"success": false, "code": "...", "message": "..."}
//
// with 400 for malformed bodies and values outside the allow-lists, 404 for
// unknown paths and 405 for wrong methods.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
