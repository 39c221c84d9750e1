// Package api implements the typed RPC surface exposed to the rendered
// client: login, the public list operations, and the protected publish and
// delete operations. Every call is an HTTP POST with a JSON payload; results
// and errors share a single JSON shape.
package api
