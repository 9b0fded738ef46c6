// Package server implements the HTTP layer of pdfcollate. It wires together
// the routes, middleware, and dependencies (ephemeral store, merge engine)
// and provides lifecycle helpers used by tests and the production binary.
// The merge pipeline itself lives in internal/merge; this package only
// translates multipart uploads into pipeline inputs and pipeline results
// into HTTP responses.
package server
