// Package serve runs routecheck as an HTTP service.
//
// # Endpoints
//
//	GET /healthz   liveness probe
//	GET /check     runs a check and returns the JSON report
//	GET /metrics   Prometheus metrics
//	GET /live      websocket; every "check" message runs a check
//
// A fatal check error makes /check respond 500 with the coded error as
// JSON. On /live the server answers a "check" message with one JSON
// message per diagnostic followed by a summary:
//
//	{"id":"urlchecker.E002","level":"error",...}
//	{"done":true,"endpoints":12,"errors":1,"warnings":0}
//
// When watch paths are configured the server polls them and pushes a new
// run to every live client whenever a file changes.
package serve
