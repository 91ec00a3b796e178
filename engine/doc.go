// Package engine is the shared transport core described in the root
// package documentation: one state machine, three adapters. It knows
// nothing about AT Protocol wire formats — that lives in firehose,
// jetstream, and tap, each of which implements Adapter.
package engine
