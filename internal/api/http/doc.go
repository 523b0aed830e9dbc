// Package http provides the JSON API of the playground backend.
//
// Endpoints:
//   - GET /, GET /health, GET /metrics/json
//   - POST /transpile: TypeScript lowering only
//   - POST /run: run code to completion (bounded by the run budget) and
//     return its entries, optionally persisting them to a session
//   - POST /share, GET /share?code=: share link codec
//   - /state/:session: persisted editor state (GET, PUT, DELETE) and its
//     logs (POST appends, DELETE clears)
//
// Errors are answered as {"error": "..."} with a 4xx or 5xx status.
package http
