// Package http exposes the asset lifecycle over JSON and websockets.
//
// The router exposes the following endpoints:
//   - POST /tokens: exchanges {"operator_id","api_key"} for a bearer token.
//     Response: {"token","expires_at","role","capabilities"}.
//   - GET /healthz: liveness with a store ping. GET /metrics: Prometheus text format.
//   - GET /assets/resolve?tag=: exact, case-insensitive tag lookup.
//   - GET /assets/suggest?q=&for=&limit=: candidate list for pickers; for is
//     checkout, checkin, reserve or any.
//   - GET /assets/{tag}/history: checkouts (with their checkins) and reservations.
//   - POST /checkouts, POST /checkins, POST /reservations: batch transitions
//     exchanging the DTOs in transition_handler.go. 200 when every asset
//     succeeded, 207 Multi-Status otherwise.
//   - DELETE /reservations/{id}: cancels a reservation.
//   - GET /events?tag=: websocket stream of committed transitions.
//
// Everything except /tokens, /healthz and /metrics requires
// "Authorization: Bearer <token>"; websocket clients may pass ?token= instead.
package http
