// Package monitor tracks connected launch monitors.
//
// The Registry:
//   - Preserves insertion order (the "first monitor" fallback depends on it)
//   - Is the single source of truth for active flags
//   - Guards all per-monitor mutable state behind one lock, no I/O held
//   - Keeps a most-recently-activated hint, used only as a routing fallback
//
// A Monitor owns its outbound Transport; the registry holds the handle for
// dispatch but never reads from the connection.
package monitor
