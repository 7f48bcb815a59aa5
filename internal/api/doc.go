// Package api implements the climate skill's HTTP surface.
//
// The API is an operator and test tool; voice traffic arrives over MQTT.
// It provides:
//   - POST /api/v1/intents to run a request through the engine synchronously
//   - registry stats and a manual refresh
//   - the command audit trail
//   - GET /api/v1/health and the Prometheus /metrics endpoint
//
// The server follows the same lifecycle as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
