// Package drinkup provides a unified client for AT Protocol sync
// streams: Firehose (subpackage firehose), Jetstream (subpackage
// jetstream), and Tap (subpackage tap). All three share a single
// connection engine (subpackage engine) implementing the connect,
// reconnect, and back-pressure semantics common to every stream type,
// and a single event dispatcher (subpackage dispatch) for delivering
// decoded events to user handlers without a slow or panicking handler
// affecting the read loop.
package drinkup
