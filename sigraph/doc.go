// Package sigraph implements the provenance graph behavior: upserting
// decoded system-provenance events into a deduplicated graph of process,
// file, registry, network and module interactions, aggregating per-trace
// summaries, cleaning up isolated single-event traces, and answering
// bounded-hop traversal queries over the result.
//
// The package owns the graph schema (node labels, primary keys, uniqueness
// constraints) and all domain queries. It talks to the database through the
// small Store interface satisfied by graph.Client, so every behavior is
// testable against an in-memory fake.
//
// Concurrent upserts of the same artifact or trace are serialized through
// an in-process keyed mutex. Every mutating step is merge-based, so a
// mid-sequence failure leaves the graph partially applied but safe to
// retry: re-running the whole upsert converges to the same state.
package sigraph
