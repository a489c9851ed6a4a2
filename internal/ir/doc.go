// Package ir defines the node and graph types of the wisp intermediate
// representation: a graph-based functional IR with nested closures.
//
// A Node is one of three variants. Constants carry an immutable payload (a
// cty.Value, an *Operation, or a *Graph used as a call target or closure
// reference). Parameters belong to exactly one owning Graph and compare by
// identity. Apply nodes hold an ordered input sequence whose element 0 is
// the operation being invoked and whose remaining elements are arguments;
// the sequence is mutable in place.
//
// The package performs structural construction only. Cross-graph reference
// invariants are enforced by the manager package, which owns all structural
// mutation of managed graphs.
package ir
