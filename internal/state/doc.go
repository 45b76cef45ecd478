// Package state provides the hierarchical state store of the orchestration core.
//
// State is a tree of objects, lists and scalars addressed by dot-delimited
// paths such as "user.profile.name". The tree is persistent: every write
// publishes a new root that copies only the nodes along the written path
// and shares every other branch with the previous root. Readers receive a
// Value, a read-only view of one node; nothing reachable from a Value can be
// changed, so a snapshot stays valid after later writes.
//
// # Subscriptions
//
// A subscription watches one path, or every path when registered with the
// empty path. After a write to P the store notifies, in registration order:
//
//   - subscribers of P itself
//   - subscribers of every ancestor of P, with the ancestor's new subtree
//   - subscribers of descendants of P whose subtree was replaced
//   - global subscribers, with the value written at P
//
// Callbacks run synchronously before the write returns. A panicking
// callback is recovered and logged and the remaining callbacks still run.
//
// # History
//
// The store keeps the most recent changes (default 10) for inspection.
// History is read-only; there is no undo.
package state
