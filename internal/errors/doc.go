// Package errors provides coded, actionable errors for the routecheck
// command and server.
//
// These are host failures: a missing configuration file, an unreadable
// route table, a Go source file that does not parse. Route/handler
// mismatches are not errors; they are reported as urlcheck diagnostics.
//
// # Error Codes
//
// Each error has a code (e.g., "RC110") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// Codes are grouped by category:
//   - config (RC100-RC109): routecheck.json
//   - routes (RC110-RC119): route table files
//   - source (RC120-RC129): handler source directories
//   - check and publish (RC130-RC169): check runs, reports, the server
//
// # Usage
//
//	err := errors.New(errors.CodeRoutesNotFound).
//	    WithFile("routes.yaml").
//	    WithSuggestion("Set \"routes\" in routecheck.json or pass --routes")
//
//	errors.PrintError(err)
//	// Output:
//	// ERROR RC110: Route table not found
//	//
//	//   routes.yaml
//	//
//	//   The route table file, or a file it includes, does not exist.
//	//
//	//   Hint: Set "routes" in routecheck.json or pass --routes
package errors
