// Package stream turns bus subscriptions into per-user SSE frame streams.
//
// # Overview
//
// The Manager opens one Stream per client connection. A Stream subscribes to
// the bus, emits a synthetic connection_established frame, then forwards the
// events addressed to its user (plus heartbeats) encoded as SSE data frames.
// When no event has been forwarded for the heartbeat interval, the Stream
// synthesizes a heartbeat frame so intermediaries keep the connection alive.
//
// The bus subscription is released on every exit path; closing the request
// context is enough to fully tear a stream down.
//
// # Frame format
//
// Every frame is exactly
//
//	data: <event JSON>\n\n
//
// with the event serialized via its wire mapping (type, data, user_id,
// conversation_id, timestamp, metadata).
package stream
