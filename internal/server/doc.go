// Package server hosts the rendered site and its JSON API from a single HTTP
// server.
//
// Routes are declared in two groups. The public group carries the readable
// pages and the read-only API; the protected group carries the admin page and
// every operation that mutates records, and is wrapped by the session gate
// before both groups merge into one multiplexer. The middleware chain of rate
// limiting, metrics, audit, and logging applies uniformly to both groups.
package server
