// Package graph is the low-level client for the provenance graph database.
//
// It speaks Bolt through the official Neo4j driver but exposes only plain
// value types: Node and Relationship carry labels and property maps with no
// driver types attached, and every query result row is normalized into
// map[string]any before it leaves this package. Higher layers never touch
// driver-native records.
//
// Three operations cover everything the engine needs:
//
//   - Run executes a read query in a fresh session.
//   - MergeNode performs an idempotent merge-on-key write: match or create
//     the node by its primary key, overlay all remaining properties, attach
//     any extra labels.
//   - CreateRelation merges both endpoint nodes by their configured primary
//     keys and merges the edge between them inside one write transaction,
//     so endpoint existence and the edge are established atomically.
//
// Transient failures (service unavailable, leader switches, deadlocks) are
// retried with quadratic backoff; all other failures propagate immediately.
// The client never times out on its own — callers bound the total wait with
// a context deadline.
package graph
