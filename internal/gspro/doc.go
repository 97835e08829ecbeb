// Package gspro manages the connection to the simulator backend.
//
// Two layers:
//   - Client: one WebSocket connection (read loop, serialized writes,
//     keepalive pings)
//   - Link: the self-reconnecting handle the routing layer uses; owns the
//     backoff state machine and never gives up until shutdown
//
// Senders block while the link is down: Send joins the shared connect
// attempt and writes once the backend is reachable again.
package gspro
