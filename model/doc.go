// Package model holds the wire-agnostic event types shared by the
// firehose, jetstream, and tap adapters: the discriminated event
// variants, their typed enums, and the lenient parsing helpers used to
// build them from decoded payload maps. Nothing in this package knows
// about CBOR, zstd, JSON, or WebSocket framing.
package model
